// Package http provides the HTTP transport adapter for the approval gate.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
	"github.com/approval-gate/approvalgate/internal/port/inbound"
)

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// createdResponse is the JSON body returned for an accepted creation request.
type createdResponse struct {
	ID string `json:"id"`
}

// errorResponse is the JSON body returned for a rejected request.
type errorResponse struct {
	Error string `json:"error"`
}

// requestHandler serves the creation endpoint. A valid payload is
// accepted with 202 and the correlation ID; delivery to the channels
// happens before the response but per-channel failures do not fail the
// request.
func requestHandler(intake inbound.RequestIntake) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		id, err := intake.Submit(r.Context(), body)
		if err != nil {
			LoggerFromContext(r.Context()).Warn("rejected creation payload", "error", err)
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(createdResponse{ID: id})
	})
}

// interactionHandler serves the Slack interactivity endpoint. The
// request signature is verified against the signing secret before any
// parsing; a failed verification returns 403 with an empty body so the
// response leaks nothing about the service.
func interactionHandler(svc inbound.InteractionHandler, signingSecret string, metrics *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		logger := LoggerFromContext(r.Context())

		verifier, err := slack.NewSecretsVerifier(r.Header, signingSecret)
		if err != nil {
			logger.Warn("missing or malformed signature headers", "error", err)
			w.WriteHeader(http.StatusForbidden)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			logger.Warn("rejected interaction with invalid signature")
			w.WriteHeader(http.StatusForbidden)
			return
		}

		cb, err := parseInteraction(body)
		if err != nil {
			logger.Warn("unparseable interaction payload", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		if metrics != nil {
			metrics.InteractionsTotal.WithLabelValues(string(cb.Type)).Inc()
		}

		if err := svc.Handle(r.Context(), cb); err != nil {
			var malformed *workflow.MalformedStateError
			if errors.As(err, &malformed) {
				logger.Error("interaction carried malformed state", "error", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			logger.Error("interaction handling failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		// Slack expects a fast 200 with an empty body; the message
		// updates were already delivered through the Web API.
		w.WriteHeader(http.StatusOK)
	})
}

// parseInteraction decodes the form-encoded callback Slack posts: the
// JSON document travels in the "payload" form field.
func parseInteraction(body []byte) (*slack.InteractionCallback, error) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	payload := form.Get("payload")
	if payload == "" {
		return nil, errors.New("missing payload field")
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		return nil, err
	}
	return &cb, nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
