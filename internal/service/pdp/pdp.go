package pdp

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

// Response is the PDP's output for one evaluation: the combined
// Decision and Status, any Obligations/Advice attached by the winning
// decision path, the Request attributes the caller asked to have
// echoed back, and (if the Request's ReturnPolicyIdList flag was set)
// the identifiers of every Policy/PolicySet that contributed to the
// decision.
type Response struct {
	Decision decision.Result
	Status decision.Status
	Obligations []policytree.ResolvedObligation
	Advice []policytree.ResolvedAdvice
	EchoedAttributes []evalctx.Attribute
	PolicyIdentifiers []string
}

// PDP is a pure function of (immutable *PolicySnapshot, Request). A
// *PDP value itself holds only the atomically-swapped snapshot and the
// finder chain/clock every evaluation is constructed with; nothing
// about the value is mutated per-evaluation, so evaluations are
// independent and parallel-safe.
type PDP struct {
	snapshot atomic.Pointer[PolicySnapshot]
	finders []evalctx.AttributeFinder
	now func() time.Time
	tracer trace.Tracer
}

// Option configures a PDP at construction.
type Option func(*PDP)

// WithAttributeFinders appends Policy Information Point modules to the
// finder chain every RequestContext is built with.
func WithAttributeFinders(finders ...evalctx.AttributeFinder) Option {
	return func(p *PDP) { p.finders = append(p.finders, finders...) }
}

// WithClock overrides the clock used for current_date_time() when a
// Request supplies no environment:current-dateTime attribute. Defaults
// to time.Now; tests should override this for determinism.
func WithClock(now func() time.Time) Option {
	return func(p *PDP) { p.now = now }
}

// WithTracer installs the Tracer EvaluateContext starts its spans from.
// Defaults to a no-op tracer, so tracing is strictly opt-in and never
// changes Evaluate's return value.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *PDP) { p.tracer = tracer }
}

// New returns a PDP with no policies loaded; Load must be called before
// Evaluate will do anything but return NotApplicable.
func New(opts ...Option) *PDP {
	p := &PDP{now: time.Now, tracer: nooptrace.NewTracerProvider().Tracer("pdp")}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Load atomically installs snap as this PDP's active policy set; it does
// no validation of its own (BuildSnapshot validates). A PDP is otherwise
// immutable after Load returns.
func (p *PDP) Load(snap *PolicySnapshot) {
	p.snapshot.Store(snap)
}

// Snapshot returns the currently active PolicySnapshot, or nil if Load
// has never been called.
func (p *PDP) Snapshot() *PolicySnapshot {
	return p.snapshot.Load()
}

// SyntaxErrorResponse builds the Response a caller returns when a
// Request fails to parse before it ever reaches Evaluate (a malformed or
// timezone-less dateTime literal, an AttributeValue missing its
// DataType, malformed XML): every failure manifests as one of
// Indeterminate(missing-attribute), Indeterminate(syntax-error), or
// Indeterminate(processing-error), never a language-level exception, and
// that applies just as much to load-before-evaluate failures as to
// failures discovered mid-evaluation.
func SyntaxErrorResponse(err error) *Response {
	return &Response{Decision: decision.IndeterminateDP, Status: decision.SyntaxError(err.Error())}
}

// Evaluate runs the full decision procedure against req. It is a
// context.Background()-rooted convenience wrapper around EvaluateContext
// for callers with no request-scoped context to propagate (existing
// tests, the admin policy-test route).
func (p *PDP) Evaluate(req *evalctx.Request) *Response {
	return p.EvaluateContext(context.Background(), req)
}

// EvaluateContext runs the full decision procedure against req: build a
// RequestContext, ask every top-level root for its decision (skipping
// any the Bloom pre-filter provably rules out), combine with the root
// algorithm, and assemble a Response. When a real Tracer was installed
// via WithTracer, the whole call is wrapped in a pdp.evaluate span with
// pdp.target_match/pdp.combine children; with the default no-op tracer
// this adds no overhead beyond the interface calls themselves.
func (p *PDP) EvaluateContext(ctx context.Context, req *evalctx.Request) *Response {
	spanCtx, span := p.tracer.Start(ctx, "pdp.evaluate")
	defer span.End()

	snap := p.snapshot.Load()
	if snap == nil {
		return &Response{Decision: decision.NotApplicable, Status: decision.OK}
	}

	rctx := evalctx.New(req, p.now(), p.finders...)

	_, matchSpan := p.tracer.Start(spanCtx, "pdp.target_match")
	children := make([]decision.Child, 0, len(snap.roots))
	outcomes := make([]policytree.EvalOutcome, 0, len(snap.roots))
	for _, entry := range snap.roots {
		if snap.bloomOn && !couldMatchRequest(entry, req) {
			continue
		}
		out := entry.node.Eval(rctx, snap)
		children = append(children, decision.Child{ID: entry.node.NodeID(), Result: out.Result, Status: out.Status})
		outcomes = append(outcomes, out)
	}
	matchSpan.SetAttributes(attribute.Int("pdp.roots_evaluated", len(children)))
	matchSpan.End()

	_, combineSpan := p.tracer.Start(spanCtx, "pdp.combine")
	result, status := snap.rootAlg(children)
	combineSpan.SetAttributes(attribute.String("pdp.result", result.DecisionString()))
	if status.Code != decision.OK.Code {
		combineSpan.SetStatus(codes.Error, status.Message)
	}
	combineSpan.End()
	span.SetAttributes(attribute.String("pdp.decision", result.DecisionString()))

	var obligations []policytree.ResolvedObligation
	var advice []policytree.ResolvedAdvice
	var policyIDs []string
	for i, out := range outcomes {
		if children[i].Result != result {
			continue
		}
		obligations = append(obligations, out.Obligations...)
		advice = append(advice, out.Advice...)
		policyIDs = append(policyIDs, out.PolicyIDs...)
	}

	resp := &Response{
		Decision: result,
		Status: status,
		Obligations: obligations,
		Advice: advice,
		EchoedAttributes: echoedAttributes(req),
	}
	if req.ReturnPolicyIdList {
		resp.PolicyIdentifiers = policyIDs
	}
	return resp
}

func echoedAttributes(req *evalctx.Request) []evalctx.Attribute {
	var out []evalctx.Attribute
	for _, g := range req.Groups {
		for _, a := range g.Attributes {
			if a.IncludeInResult {
				out = append(out, a)
			}
		}
	}
	return out
}

// couldMatchRequest reports whether entry's Target might still match
// req. It only prunes (returns false) when every (category,
// attributeId) pair the Target's equality Matches address is present in
// the Request *and* none of those attributes' actual values hash to a
// literal the Target ever compared against. "At least one equality
// comparison could be true" is a necessary condition for any
// AND/OR combination of those comparisons to be true, so checking it
// across the whole Target (rather than trying to reconstruct the
// AnyOf/AllOf structure here) is always conservative: a request this
// judges prunable truly cannot satisfy the Target. If the Request is
// silent on one of the pairs, a Finder could still supply it at
// evaluation time via MustBePresent, so this refuses to prune rather
// than guess.
func couldMatchRequest(entry rootEntry, req *evalctx.Request) bool {
	if !entry.indexable || entry.index == nil {
		return true
	}
	anyHit := false
	for pair := range entry.pairedKeys {
		category, attrID := pair[0], pair[1]
		g, ok := req.Groups[category]
		if !ok {
			return true
		}
		found := false
		for _, a := range g.Attributes {
			if a.ID != attrID {
				continue
			}
			found = true
			for _, v := range a.Values.Values {
				if entry.index.MightContain(category, attrID, valueLiteral(v)) {
					anyHit = true
				}
			}
		}
		if !found {
			return true
		}
	}
	return anyHit
}

func valueLiteral(v value.Value) string {
	return v.String()
}
