// Package slackapi implements the outbound Notifier port on the Slack
// Web API.
package slackapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
	"github.com/approval-gate/approvalgate/internal/port/outbound"
)

// defaultTimeout bounds each Web API call. The application layer never
// retries; transient retry/backoff is the client library's concern.
const defaultTimeout = 30 * time.Second

// Client wraps the Slack Web API client. It implements
// outbound.Notifier.
type Client struct {
	api    *slack.Client
	logger *slog.Logger
}

// Option is a functional option for configuring Client.
type Option func(*options)

type options struct {
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// WithAPIURL overrides the Slack API base URL. Used by tests to point
// the client at a local fake.
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewClient creates a Notifier backed by the Slack Web API using the
// given bot token.
func NewClient(token string, opts ...Option) *Client {
	o := &options{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	slackOpts := []slack.Option{slack.OptionHTTPClient(o.httpClient)}
	if o.apiURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(o.apiURL))
	}
	return &Client{
		api:    slack.New(token, slackOpts...),
		logger: o.logger,
	}
}

// PostMessage posts a new block message and returns its handle.
func (c *Client) PostMessage(ctx context.Context, channel, text string, blocks []slack.Block) (workflow.MessageHandle, error) {
	ch, ts, err := c.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return workflow.MessageHandle{}, &outbound.DeliveryError{Op: "post message", Channel: channel, Err: err}
	}
	c.logger.Debug("posted message", "channel", ch, "ts", ts)
	return workflow.MessageHandle{Channel: ch, Timestamp: ts}, nil
}

// UpdateMessage replaces the addressed message's content.
func (c *Client) UpdateMessage(ctx context.Context, h workflow.MessageHandle, text string, blocks []slack.Block) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, h.Channel, h.Timestamp,
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return &outbound.DeliveryError{Op: "update message", Channel: h.Channel, Err: err}
	}
	return nil
}

// PostThreadReply posts a plain-text reply threaded under the addressed
// message.
func (c *Client) PostThreadReply(ctx context.Context, h workflow.MessageHandle, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, h.Channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(h.Timestamp),
	)
	if err != nil {
		return &outbound.DeliveryError{Op: "post thread reply", Channel: h.Channel, Err: err}
	}
	return nil
}

// PostEphemeral shows a transient message to a single user.
func (c *Client) PostEphemeral(ctx context.Context, channel, userID, text string) error {
	_, err := c.api.PostEphemeralContext(ctx, channel, userID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return &outbound.DeliveryError{Op: "post ephemeral", Channel: channel, Err: err}
	}
	return nil
}

// OpenView opens a modal for the interaction identified by triggerID.
func (c *Client) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, view); err != nil {
		return &outbound.DeliveryError{Op: "open view", Err: err}
	}
	return nil
}

// UserEmail resolves a user ID to the profile email.
func (c *Client) UserEmail(ctx context.Context, userID string) (string, error) {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return "", &outbound.DeliveryError{Op: "lookup user", Err: err}
	}
	return user.Profile.Email, nil
}

// UserIDByEmail resolves an email to a user ID.
func (c *Client) UserIDByEmail(ctx context.Context, email string) (string, error) {
	user, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		return "", &outbound.DeliveryError{Op: "lookup user by email", Err: err}
	}
	return user.ID, nil
}
