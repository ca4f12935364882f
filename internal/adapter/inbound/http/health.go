package http

import (
	"encoding/json"
	"net/http"

	"github.com/xacmlgo/pdp/internal/service/pdp"
)

// HealthResponse is the JSON response from GET /health:
// {"status": "ready"|"initializing"}, extended additively with component
// sub-checks.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthChecker reports whether the PDP has a policy snapshot loaded and
// whether its audit sink is accepting writes.
type HealthChecker struct {
	engine       *pdp.PDP
	auditHealthy func() (string, bool)
}

// NewHealthChecker builds a HealthChecker over engine. auditHealthy, if
// non-nil, is consulted for an audit-sink sub-check (e.g. channel depth);
// pass nil when no audit service is wired.
func NewHealthChecker(engine *pdp.PDP, auditHealthy func() (string, bool)) *HealthChecker {
	return &HealthChecker{engine: engine, auditHealthy: auditHealthy}
}

// Check performs the health check.
func (h *HealthChecker) Check() HealthResponse {
	checks := map[string]string{}
	ready := h.engine != nil && h.engine.Snapshot() != nil
	if ready {
		checks["policy_snapshot"] = "loaded"
	} else {
		checks["policy_snapshot"] = "not loaded"
	}

	if h.auditHealthy != nil {
		msg, ok := h.auditHealthy()
		checks["audit"] = msg
		ready = ready && ok
	}

	status := "initializing"
	if ready {
		status = "ready"
	}
	return HealthResponse{Status: status, Checks: checks}
}

// Handler returns an http.Handler serving GET /health.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := h.Check()
		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
}
