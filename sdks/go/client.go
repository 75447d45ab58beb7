package approvalgate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client is the Approval Gate SDK client. It submits provisioning
// requests to the server's creation endpoint.
type Client struct {
	serverAddr string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Approval Gate SDK client.
// It reads configuration from APPROVAL_GATE_* environment variables by default.
// Options can be used to override the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		serverAddr: os.Getenv("APPROVAL_GATE_SERVER_ADDR"),
		timeout:    parseDurationEnv("APPROVAL_GATE_TIMEOUT", 10*time.Second),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// Submit sends the request to the creation endpoint and returns the
// correlation ID the server assigned. A rejected payload (bad name,
// malformed fields) returns a *RequestError; transport failures return
// the underlying error.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	if req.Name == "" {
		return "", &RequestError{Status: 0, Message: "request name is required"}
	}

	payload, err := encodePayload(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := strings.TrimRight(c.serverAddr, "/") + "/api/v1/requests"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode != http.StatusAccepted {
		msg := serverMessage(body)
		return "", &RequestError{Status: httpResp.StatusCode, Message: msg}
	}

	var accepted struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &accepted); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return accepted.ID, nil
}

// encodePayload builds the flat JSON object the server expects: the
// fields in submission order followed by the workflow pseudo-fields.
// encoding/json maps would scramble field order, so the object is
// assembled by hand.
func encodePayload(req Request) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeKey := func(key string) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		return nil
	}

	writePair := func(key string, value any) error {
		if err := writeKey(key); err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		buf.Write(v)
		return nil
	}

	if err := writePair("name", req.Name); err != nil {
		return nil, err
	}
	for _, f := range req.Fields {
		if err := writePair(f.Key, f.Value); err != nil {
			return nil, err
		}
	}
	if len(req.Hide) > 0 {
		if err := writePair("hide", req.Hide); err != nil {
			return nil, err
		}
	}
	if len(req.ModifiableFields) > 0 {
		if err := writePair("modifiable_fields", strings.Join(req.ModifiableFields, ";")); err != nil {
			return nil, err
		}
	}
	if req.PreventSelfApproval {
		if err := writePair("prevent_self_approval", "true"); err != nil {
			return nil, err
		}
	}
	if req.ApprovingTeam != "" {
		if err := writePair("approving_team", req.ApprovingTeam); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// serverMessage extracts the error message from a rejection body,
// falling back to the raw body.
func serverMessage(body []byte) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error != "" {
		return resp.Error
	}
	return strings.TrimSpace(string(body))
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	// Accept plain seconds (integer) or a duration string.
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
