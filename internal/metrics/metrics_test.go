package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestObserveAndExpose(t *testing.T) {
	m := New()
	m.Observe("runPrologQuery", "ok", 125*time.Millisecond)
	m.Observe("runPrologQuery", "ok", 10*time.Millisecond)
	m.Observe("loadProgram", "error", time.Millisecond)

	body := scrape(t, m)

	if !strings.Contains(body, `prolognerd_tool_invocations_total{outcome="ok",tool="runPrologQuery"} 2`) {
		t.Errorf("expected ok counter at 2, got:\n%s", body)
	}
	if !strings.Contains(body, `prolognerd_tool_invocations_total{outcome="error",tool="loadProgram"} 1`) {
		t.Errorf("expected error counter at 1, got:\n%s", body)
	}
	if !strings.Contains(body, `prolognerd_tool_duration_seconds_count{tool="runPrologQuery"} 2`) {
		t.Errorf("expected duration observations, got:\n%s", body)
	}
}

func TestRegistriesAreIsolated(t *testing.T) {
	a := New()
	b := New()

	a.Observe("saveSession", "ok", time.Millisecond)

	if strings.Contains(scrape(t, b), "saveSession") {
		t.Error("expected second registry to be empty")
	}
}
