// Package admin implements the policy-authoring and audit-introspection
// routes mounted under /admin/ by the HTTP façade: listing loaded
// policies, test-evaluating a Request against the live snapshot without
// writing to the audit trail, and querying/aggregating recorded
// decisions. Handler.Mux builds the route table; the owning transport
// mounts it at /admin/.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/audit"
	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/policytree"
	"github.com/xacmlgo/pdp/internal/domain/value"
	"github.com/xacmlgo/pdp/internal/service/pdp"
)

// Handler serves every /admin/ route. It never mutates the PDP's loaded
// snapshot — policy reload is an operational (restart) concern, not an
// API one, per the config loader's "loaded once at startup" contract.
type Handler struct {
	engine     *pdp.PDP
	auditQuery audit.AuditQueryStore
}

// NewHandler builds an admin Handler. auditQuery may be nil, in which
// case the audit query/stats routes respond 503.
func NewHandler(engine *pdp.PDP, auditQuery audit.AuditQueryStore) *Handler {
	return &Handler{engine: engine, auditQuery: auditQuery}
}

// Mux builds the admin route table as an http.Handler, for the HTTP
// façade to mount at /admin/.
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/policies", h.handlePolicies)
	mux.HandleFunc("/admin/policies/test", h.handlePolicyTest)
	mux.HandleFunc("/admin/audit/query", h.handleAuditQuery)
	mux.HandleFunc("/admin/audit/stats", h.handleAuditStats)
	return mux
}

// policyListResponse is the wire shape of GET /admin/policies.
type policyListResponse struct {
	RootCombiningAlgorithm string                  `json:"root_combining_algorithm"`
	Policies               []policyDescriptorJSON  `json:"policies"`
}

type policyDescriptorJSON struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
	IsRoot  bool   `json:"is_root"`
}

// handlePolicies implements GET /admin/policies: every loaded
// Policy/PolicySet identifier and version from the current snapshot.
func (h *Handler) handlePolicies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snap := h.engine.Snapshot()
	if snap == nil {
		http.Error(w, "no policy snapshot loaded", http.StatusServiceUnavailable)
		return
	}

	descs := snap.Describe()
	out := policyListResponse{
		RootCombiningAlgorithm: snap.RootCombiningAlgorithm(),
		Policies:               make([]policyDescriptorJSON, 0, len(descs)),
	}
	for _, d := range descs {
		out.Policies = append(out.Policies, policyDescriptorJSON{ID: d.ID, Version: d.Version, Kind: d.Kind, IsRoot: d.IsRoot})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// policyTestRequest is the wire shape of POST /admin/policies/test's body:
// the same category/attribute-id/value triples GET /getDecision accepts
// via query parameters, but as a JSON object so a policy-authoring UI can
// submit a richer, multi-valued test request in one call.
type policyTestRequest struct {
	ReturnPolicyIdList bool                `json:"return_policy_id_list"`
	Attributes         []policyTestAttr    `json:"attributes"`
}

type policyTestAttr struct {
	Category string   `json:"category"`
	ID       string   `json:"id"`
	DataType string   `json:"data_type"`
	Values   []string `json:"values"`
}

// policyTestResponse is the full Response, unlike GET /getDecision's
// pared-down wire format: this route exists for policy authors to see
// exactly why a test request produced the decision it did.
type policyTestResponse struct {
	Decision          string              `json:"decision"`
	StatusCode        string              `json:"status_code"`
	StatusMessage     string              `json:"status_message,omitempty"`
	PolicyIdentifiers []string            `json:"policy_identifiers,omitempty"`
	Obligations       []obligationJSON    `json:"obligations,omitempty"`
	Advice            []obligationJSON    `json:"advice,omitempty"`
}

type obligationJSON struct {
	ID          string            `json:"id"`
	Assignments map[string]string `json:"assignments,omitempty"`
}

// handlePolicyTest implements POST /admin/policies/test: evaluates a
// caller-supplied Request against the live snapshot and returns the full
// Response, without ever reaching the audit trail (a test evaluation is
// not a real access decision).
func (h *Handler) handlePolicyTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body policyTestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req, err := requestFromTestBody(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := h.engine.Evaluate(req)

	out := policyTestResponse{
		Decision:          resp.Decision.DecisionString(),
		StatusCode:        resp.Status.Code,
		StatusMessage:     resp.Status.Message,
		PolicyIdentifiers: resp.PolicyIdentifiers,
		Obligations:       toObligationJSON(resp.Obligations),
	}
	for _, a := range resp.Advice {
		assigns := make(map[string]string, len(a.Assignments))
		for _, asg := range a.Assignments {
			assigns[asg.AttributeID] = asg.Value.String()
		}
		out.Advice = append(out.Advice, obligationJSON{ID: a.ID, Assignments: assigns})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func toObligationJSON(obligations []policytree.ResolvedObligation) []obligationJSON {
	out := make([]obligationJSON, 0, len(obligations))
	for _, o := range obligations {
		assigns := make(map[string]string, len(o.Assignments))
		for _, a := range o.Assignments {
			assigns[a.AttributeID] = a.Value.String()
		}
		out = append(out, obligationJSON{ID: o.ID, Assignments: assigns})
	}
	return out
}

// handleAuditQuery implements GET /admin/audit/query?start=...&end=...&
// action=...&subject=...&decision=...&policy_ref=...&limit=...&cursor=...
func (h *Handler) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if h.auditQuery == nil {
		http.Error(w, "audit query store not configured", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	start, err := parseTime(q.Get("start"))
	if err != nil {
		http.Error(w, "invalid start: "+err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseTime(q.Get("end"))
	if err != nil {
		http.Error(w, "invalid end: "+err.Error(), http.StatusBadRequest)
		return
	}

	filter := audit.AuditFilter{
		StartTime:       start,
		EndTime:         end,
		SubjectID:       q.Get("subject"),
		Action:          q.Get("action"),
		Decision:        q.Get("decision"),
		PolicyReference: q.Get("policy_ref"),
		Cursor:          q.Get("cursor"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	records, cursor, err := h.auditQuery.Query(r.Context(), filter)
	if err != nil {
		if err == audit.ErrDateRangeExceeded {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Records    []audit.AuditRecord `json:"records"`
		NextCursor string               `json:"next_cursor,omitempty"`
	}{Records: records, NextCursor: cursor})
}

// handleAuditStats implements GET /admin/audit/stats?start=...&end=....
func (h *Handler) handleAuditStats(w http.ResponseWriter, r *http.Request) {
	if h.auditQuery == nil {
		http.Error(w, "audit query store not configured", http.StatusServiceUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	start, err := parseTime(q.Get("start"))
	if err != nil {
		http.Error(w, "invalid start: "+err.Error(), http.StatusBadRequest)
		return
	}
	end, err := parseTime(q.Get("end"))
	if err != nil {
		http.Error(w, "invalid end: "+err.Error(), http.StatusBadRequest)
		return
	}

	stats, err := h.auditQuery.QueryStats(r.Context(), start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func requestFromTestBody(body policyTestRequest) (*evalctx.Request, error) {
	req := evalctx.NewRequest()
	groups := map[string]*evalctx.AttributesGroup{}

	for _, a := range body.Attributes {
		g, ok := groups[a.Category]
		if !ok {
			g = &evalctx.AttributesGroup{Category: a.Category}
			groups[a.Category] = g
		}
		dataType := a.DataType
		if dataType == "" {
			dataType = value.TypeString
		}
		attr := evalctx.Attribute{
			Category:        a.Category,
			ID:              a.ID,
			DataType:        dataType,
			IncludeInResult: true,
		}
		for _, lit := range a.Values {
			v, err := value.New(dataType, lit)
			if err != nil {
				return nil, err
			}
			attr.Values.Values = append(attr.Values.Values, v)
		}
		attr.Values.Type = dataType
		g.Attributes = append(g.Attributes, attr)
	}

	for _, g := range groups {
		req.AddGroup(g)
	}
	req.ReturnPolicyIdList = body.ReturnPolicyIdList
	return req, nil
}
