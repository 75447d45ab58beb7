// Package http provides the HTTP transport adapter for the approval gate.
package http

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/approval-gate/approvalgate/internal/port/inbound"
)

// Transport is the inbound adapter that connects the approval workflow
// to HTTP clients: the creation endpoint for internal tooling and the
// interaction endpoint Slack posts callbacks to.
type Transport struct {
	intake        inbound.RequestIntake
	interactions  inbound.InteractionHandler
	server        *http.Server
	addr          string
	signingSecret string
	certFile      string
	keyFile       string
	logger        *slog.Logger
	metrics       *Metrics
	healthChecker *HealthChecker
}

// Option is a functional option for configuring Transport.
type Option func(*Transport)

// WithAddr sets the listen address for the HTTP server.
// Default is "127.0.0.1:8080" (localhost only).
func WithAddr(addr string) Option {
	return func(t *Transport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
// If not set, the server runs without TLS (plain HTTP).
func WithTLS(certFile, keyFile string) Option {
	return func(t *Transport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithLogger sets the logger for the HTTP transport.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithHealthChecker sets the health checker for the /health endpoint.
func WithHealthChecker(hc *HealthChecker) Option {
	return func(t *Transport) {
		t.healthChecker = hc
	}
}

// NewTransport creates an HTTP transport adapter wrapping the given
// intake and interaction services. signingSecret is the Slack signing
// secret used to authenticate interaction callbacks.
func NewTransport(intake inbound.RequestIntake, interactions inbound.InteractionHandler, signingSecret string, opts ...Option) *Transport {
	t := &Transport{
		intake:        intake,
		interactions:  interactions,
		signingSecret: signingSecret,
		addr:          "127.0.0.1:8080",
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// buildHandler assembles the mux and middleware chain. Split out of
// Start so tests can exercise routing without binding a socket.
func (t *Transport) buildHandler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/requests", requestHandler(t.intake))
	mux.Handle("/api/v1/interactions", interactionHandler(t.interactions, t.signingSecret, t.metrics))
	if t.healthChecker != nil {
		mux.Handle("/health", t.healthChecker.Handler())
	} else {
		mux.Handle("/health", healthHandler())
	}
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	// Favicon handler to prevent browser 500 errors
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// Middleware order (outermost first):
	// 1. MetricsMiddleware - records duration and status for the full request
	// 2. RequestID - extracts/generates request ID and enriches the logger
	// 3. RealIP - extracts client IP from X-Forwarded-For
	// 4. Mux - route dispatch
	var handler http.Handler = mux
	handler = RealIPMiddleware(handler)
	handler = RequestIDMiddleware(t.logger)(handler)
	handler = MetricsMiddleware(t.metrics)(handler)
	return handler
}

// Handler returns the fully assembled handler without binding a
// socket. Useful for serving through a caller-owned listener or an
// in-process test server.
func (t *Transport) Handler() http.Handler {
	return t.buildHandler()
}

// Start begins accepting HTTP connections. It blocks until the context
// is cancelled or the server fails.
func (t *Transport) Start(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              t.addr,
		Handler:           t.buildHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)

	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr)
			err = t.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown of the HTTP server.
func (t *Transport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *Transport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
