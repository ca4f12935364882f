package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/xacmlgo/pdp/internal/domain/policytree"
	"github.com/xacmlgo/pdp/internal/service/pdp"
)

// An empty PDP (no snapshot loaded) answers every request with
// NotApplicable, which is all the handler-level tests here need:
// they exercise the query-parameter mapping, the JSON wire shape, and
// the metrics recording, not the decision procedure itself (that lives
// in service/pdp's scenario tests).
func newEmptyEnginePDP() *pdp.PDP {
	return pdp.New()
}

func TestDecisionHandler_NotApplicableWireShape(t *testing.T) {
	h := NewDecisionHandler(newEmptyEnginePDP(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/getDecision?action=train&resource.task_id=medical", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var out DecisionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if out.Decision != "NotApplicable" {
		t.Errorf("expected NotApplicable, got %q", out.Decision)
	}
	if out.Reason != nil {
		t.Errorf("expected null reason on OK status, got %v", out.Reason)
	}
	if len(out.Obligations) != 0 {
		t.Errorf("expected no obligations, got %v", out.Obligations)
	}
}

func TestDecisionHandler_RejectsNonGET(t *testing.T) {
	h := NewDecisionHandler(newEmptyEnginePDP(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/getDecision", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestDecisionHandler_RecordsEvaluationCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h := NewDecisionHandler(newEmptyEnginePDP(), metrics, nil)

	req := httptest.NewRequest(http.MethodGet, "/getDecision?action=train", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var m dto.Metric
	if err := metrics.EvaluationsTotal.WithLabelValues("NotApplicable").Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.Counter.GetValue() != 1 {
		t.Errorf("expected count 1, got %f", m.Counter.GetValue())
	}
}

func TestDecisionHandler_RecordsDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h := NewDecisionHandler(newEmptyEnginePDP(), metrics, nil)

	req := httptest.NewRequest(http.MethodGet, "/getDecision?action=train", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "pdp_evaluation_duration_seconds" {
			for _, m := range mf.GetMetric() {
				if m.GetHistogram().GetSampleCount() != 1 {
					t.Errorf("expected 1 observation, got %d", m.GetHistogram().GetSampleCount())
				}
				found = true
			}
		}
	}
	if !found {
		t.Error("expected to find pdp_evaluation_duration_seconds")
	}
}

func TestDecisionHandler_AuditCallbackSeesDecision(t *testing.T) {
	var gotDecision, gotAction string
	h := NewDecisionHandler(newEmptyEnginePDP(), nil, func(decisionStr, subject, resource, action string, _ []policytree.ResolvedObligation, statusCode string) {
		gotDecision = decisionStr
		gotAction = action
	})

	req := httptest.NewRequest(http.MethodGet, "/getDecision?action=train", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if gotDecision != "NotApplicable" {
		t.Errorf("audit callback saw decision %q", gotDecision)
	}
	if gotAction != "train" {
		t.Errorf("audit callback saw action %q", gotAction)
	}
}
