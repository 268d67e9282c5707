package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Liveness status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestReadinessHandler(t *testing.T) {
	SetReady(false)
	rec := httptest.NewRecorder()
	ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Readiness before a head check = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	updateChainStatus(42)
	SetReady(true)
	rec = httptest.NewRecorder()
	ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Readiness after a head check = %d, want %d", rec.Code, http.StatusOK)
	}

	SetReady(false)
}
