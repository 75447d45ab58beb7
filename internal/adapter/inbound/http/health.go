package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// HealthChecker verifies component health. Components register named
// probe functions; a probe returning an error marks the service
// unhealthy.
type HealthChecker struct {
	version string
	probes  map[string]func() error
}

// NewHealthChecker creates a HealthChecker.
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		version: version,
		probes:  make(map[string]func() error),
	}
}

// AddProbe registers a named health probe. Probes run on every /health
// request, so they should be cheap and must not block.
func (h *HealthChecker) AddProbe(name string, probe func() error) {
	h.probes[name] = probe
}

// Check performs health checks on all registered probes.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	for name, probe := range h.probes {
		if err := probe(); err != nil {
			checks[name] = fmt.Sprintf("failing: %v", err)
			healthy = false
		} else {
			checks[name] = "ok"
		}
	}

	// Add Go runtime info
	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable) // 503
		} else {
			w.WriteHeader(http.StatusOK) // 200
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}

// healthHandler is the fallback handler used when no HealthChecker is
// configured.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"})
	})
}
