package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/decision"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
	"github.com/xacmlgo/pdp/internal/domain/value"
	"github.com/xacmlgo/pdp/internal/service/pdp"
)

// DecisionResponse is the JSON body GET /getDecision returns:
// {"decision": "...", "obligations": [...], "reason": [...] | null}.
type DecisionResponse struct {
	Decision    string            `json:"decision"`
	Obligations []ObligationJSON  `json:"obligations"`
	Reason      []string          `json:"reason"`
}

// ObligationJSON is the wire shape of one resolved obligation.
type ObligationJSON struct {
	ID          string            `json:"id"`
	Assignments map[string]string `json:"assignments,omitempty"`
}

// DecisionHandler builds a Request from query parameters, evaluates it
// against engine through PDP.Evaluate, and writes a DecisionResponse.
type DecisionHandler struct {
	engine  *pdp.PDP
	metrics *Metrics
	record  func(decisionStr, subject, resource, action string, obligations []policytree.ResolvedObligation, statusCode string)
	observe func(ctx context.Context, decisionStr string, elapsed time.Duration)
}

// SetObserver installs an OTel-side observation hook called once per
// evaluation with the decision string and wall-clock duration, alongside
// (not instead of) the Prometheus metrics the transport installs.
func (h *DecisionHandler) SetObserver(f func(ctx context.Context, decisionStr string, elapsed time.Duration)) {
	h.observe = f
}

// NewDecisionHandler builds a DecisionHandler. record, if non-nil, is
// called after every evaluation to feed the audit trail; pass nil to
// skip auditing.
func NewDecisionHandler(engine *pdp.PDP, metrics *Metrics, record func(decisionStr, subject, resource, action string, obligations []policytree.ResolvedObligation, statusCode string)) *DecisionHandler {
	return &DecisionHandler{engine: engine, metrics: metrics, record: record}
}

// ServeHTTP implements GET /getDecision?action=...&<category.id>=<value>...
// One flat "resource" category plus subject/action/environment well-known
// prefixes. Every query value is treated as an xs:string attribute;
// callers needing a typed attribute should use the XML Request path
// (xacmlxml package) instead.
func (h *DecisionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req := requestFromQuery(r.URL.Query())
	start := time.Now()
	resp := h.engine.Evaluate(req)
	elapsed := time.Since(start)

	decisionStr := resp.Decision.DecisionString()
	if h.metrics != nil {
		h.metrics.EvaluationsTotal.WithLabelValues(decisionStr).Inc()
		h.metrics.EvaluationDuration.Observe(elapsed.Seconds())
		if decisionStr == "Indeterminate" {
			h.metrics.IndeterminateTotal.WithLabelValues(resp.Status.Code).Inc()
		}
	}

	if h.observe != nil {
		h.observe(r.Context(), decisionStr, elapsed)
	}

	if h.record != nil {
		subj := firstValue(req, evalctx.CategorySubject, "subject-id")
		rsrc := firstValue(req, evalctx.CategoryResource, "resource-id")
		act := firstValue(req, evalctx.CategoryAction, "action-id")
		h.record(decisionStr, subj, rsrc, act, resp.Obligations, resp.Status.Code)
	}

	out := DecisionResponse{
		Decision:    decisionStr,
		Obligations: obligationsToJSON(resp.Obligations),
		Reason:      reasonFromStatus(resp.Status),
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// requestFromQuery builds an evalctx.Request from GET query parameters.
// "action" is a bare key naming the action-id attribute. Every other key
// is "<category>.<attributeId>" (category one of subject/resource/
// environment), defaulting to the resource category when no prefix is
// recognized.
func requestFromQuery(q map[string][]string) *evalctx.Request {
	req := evalctx.NewRequest()
	groups := map[string]*evalctx.AttributesGroup{
		evalctx.CategorySubject:     {Category: evalctx.CategorySubject},
		evalctx.CategoryResource:    {Category: evalctx.CategoryResource},
		evalctx.CategoryAction:      {Category: evalctx.CategoryAction},
		evalctx.CategoryEnvironment: {Category: evalctx.CategoryEnvironment},
	}

	for key, vals := range q {
		if len(vals) == 0 {
			continue
		}
		category, attrID := splitParamKey(key)
		g := groups[category]
		attr := evalctx.Attribute{
			Category:        category,
			ID:              attrID,
			DataType:        value.TypeString,
			IncludeInResult: true,
		}
		for _, v := range vals {
			attr.Values.Values = append(attr.Values.Values, value.MustNew(value.TypeString, v))
		}
		attr.Values.Type = value.TypeString
		g.Attributes = append(g.Attributes, attr)
	}

	for _, g := range groups {
		req.AddGroup(g)
	}
	return req
}

func splitParamKey(key string) (category, attrID string) {
	if key == "action" {
		return evalctx.CategoryAction, "action-id"
	}
	if idx := strings.Index(key, "."); idx > 0 {
		prefix, rest := key[:idx], key[idx+1:]
		switch prefix {
		case "subject":
			return evalctx.CategorySubject, rest
		case "resource":
			return evalctx.CategoryResource, rest
		case "environment", "env":
			return evalctx.CategoryEnvironment, rest
		}
	}
	return evalctx.CategoryResource, key
}

func firstValue(req *evalctx.Request, category, attrID string) string {
	g, ok := req.Groups[category]
	if !ok {
		return ""
	}
	for _, a := range g.Attributes {
		if a.ID == attrID && a.Values.Size() > 0 {
			return a.Values.Values[0].String()
		}
	}
	return ""
}

func obligationsToJSON(obligations []policytree.ResolvedObligation) []ObligationJSON {
	out := make([]ObligationJSON, 0, len(obligations))
	for _, o := range obligations {
		assigns := make(map[string]string, len(o.Assignments))
		for _, a := range o.Assignments {
			assigns[a.AttributeID] = a.Value.String()
		}
		out = append(out, ObligationJSON{ID: o.ID, Assignments: assigns})
	}
	return out
}

// reasonFromStatus renders a Status as the "reason" array the wire
// format wants: nil on a clean OK status, otherwise one line per
// missing-attribute detail, or a single line carrying the status
// message.
func reasonFromStatus(st decision.Status) []string {
	if st.Code == decision.StatusOK {
		return nil
	}
	if len(st.MissingAttrs) > 0 {
		lines := make([]string, 0, len(st.MissingAttrs))
		for _, m := range st.MissingAttrs {
			lines = append(lines, fmt.Sprintf("missing attribute %s (category %s, type %s)", m.AttrID, m.Category, m.DataType))
		}
		return lines
	}
	if st.Message != "" {
		return []string{st.Message}
	}
	return []string{st.Code}
}
