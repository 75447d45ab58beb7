// Package webhook implements a Provisioner that forwards decisions to
// external HTTP endpoints. It is the built-in way to trigger real
// provisioning from an approval without linking custom code into the
// server.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
)

// defaultTimeout bounds each delivery.
const defaultTimeout = 30 * time.Second

// maxResponseBody caps how much of an error response body is read for
// diagnostics.
const maxResponseBody = 4 * 1024

// Event is the JSON document delivered to the configured endpoint.
type Event struct {
	Name     string         `json:"name"`
	Decision string         `json:"decision"` // "approved" or "rejected"
	User     string         `json:"user"`
	Fields   map[string]any `json:"fields"`
}

// Provisioner posts decision events to per-decision endpoints. Either
// URL may be empty, in which case that decision is a no-op.
type Provisioner struct {
	approvedURL string
	rejectedURL string
	httpClient  *http.Client
	logger      *slog.Logger
}

// New creates a webhook Provisioner.
func New(approvedURL, rejectedURL string, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		approvedURL: approvedURL,
		rejectedURL: rejectedURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logger,
	}
}

// Approved delivers an "approved" event.
func (p *Provisioner) Approved(ctx context.Context, st *workflow.State) error {
	return p.deliver(ctx, p.approvedURL, "approved", st)
}

// Rejected delivers a "rejected" event.
func (p *Provisioner) Rejected(ctx context.Context, st *workflow.State) error {
	return p.deliver(ctx, p.rejectedURL, "rejected", st)
}

func (p *Provisioner) deliver(ctx context.Context, url, decision string, st *workflow.State) error {
	if url == "" {
		p.logger.Debug("no webhook configured", "decision", decision, "name", st.Request.Name)
		return nil
	}

	body, err := json.Marshal(Event{
		Name:     st.Request.Name,
		Decision: decision,
		User:     st.User,
		Fields:   st.Request.Fields.Map(),
	})
	if err != nil {
		return fmt.Errorf("encode webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	p.logger.Info("webhook delivered", "decision", decision, "name", st.Request.Name, "status", resp.StatusCode)
	return nil
}
