package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandler_nilMetrics(t *testing.T) {
	var m *Metrics
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	if got := rr.Body.String(); !strings.Contains(got, "metrics unavailable") {
		t.Fatalf("expected body to mention metrics unavailable, got %q", got)
	}

	// Nil metrics must be safe to record into.
	m.ObserveLoad("trackers", "ok", time.Second)
	m.SetPending("trackers", true)
	m.SetNodeCount(3)
	m.IncRefreshRun()
	m.IncStatSample("snmp", "ok")
}

func TestHandler_exposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/readyz", http.StatusOK, 12*time.Millisecond)
	m.ObserveLoad("trackers", "ok", 300*time.Millisecond)
	m.ObserveLoad("search", "stale", 5*time.Millisecond)
	m.SetPending("topology", true)
	m.SetNodeCount(7)
	m.IncRefreshRun()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	m.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	body := rr.Body.String()
	for _, want := range []string{
		"explorer_http_requests_total{method=\"GET\",path=\"/readyz\",status=\"200\"} 1",
		"explorer_loads_total{outcome=\"ok\",resource=\"trackers\"} 1",
		"explorer_stale_results_discarded_total{resource=\"search\"} 1",
		"explorer_pending{resource=\"topology\"} 1",
		"explorer_nodes 7",
		"explorer_refresh_runs_total 1",
		"explorer_load_duration_seconds_count{resource=\"trackers\"} 1",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body=%s", want, body)
		}
	}
}
