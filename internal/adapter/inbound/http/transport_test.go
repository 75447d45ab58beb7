package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testTransport(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	tr := NewTransport(&fakeIntake{id: "req-1"}, &fakeInteractions{}, testSigningSecret, opts...)
	return tr.buildHandler()
}

func TestTransport_HealthRoute(t *testing.T) {
	h := testTransport(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestTransport_HealthRouteWithChecker(t *testing.T) {
	hc := NewHealthChecker("1.2.3")
	hc.AddProbe("notifier", func() error { return nil })
	h := testTransport(t, WithHealthChecker(hc))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"notifier":"ok"`) || !strings.Contains(body, `"1.2.3"`) {
		t.Errorf("body = %q", body)
	}
}

func TestTransport_MetricsRoute(t *testing.T) {
	h := testTransport(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("metrics output missing runtime collectors")
	}
}

func TestTransport_RequestIDHeader(t *testing.T) {
	h := testTransport(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("favicon status = %d, want 204", rec.Code)
	}
}

func TestTransport_RequestIDPropagated(t *testing.T) {
	h := testTransport(t)

	req := httptest.NewRequest(http.MethodGet, "/favicon.ico", nil)
	req.Header.Set("X-Request-ID", "corr-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "corr-42" {
		t.Errorf("X-Request-ID = %q, want corr-42", got)
	}
}

func TestTransport_CreationRouteWired(t *testing.T) {
	intake := &fakeIntake{id: "req-9"}
	tr := NewTransport(intake, &fakeInteractions{}, testSigningSecret)
	h := tr.buildHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/requests", strings.NewReader(`{"name":"x"}`)))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(intake.payloads) != 1 {
		t.Errorf("intake calls = %d, want 1", len(intake.payloads))
	}
}

func TestTransport_UnknownRouteIs404(t *testing.T) {
	h := testTransport(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
