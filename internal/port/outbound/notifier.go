// Package outbound defines the outbound port interfaces for talking to
// the chat platform.
package outbound

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
)

// Notifier is the outbound port for the chat platform. It owns no
// workflow state: every call is addressed explicitly via channel IDs or
// message handles carried in the round-tripped workflow state.
type Notifier interface {
	// PostMessage posts a new block message to a channel and returns
	// the handle addressing it for later updates.
	PostMessage(ctx context.Context, channel, text string, blocks []slack.Block) (workflow.MessageHandle, error)

	// UpdateMessage replaces the content of an existing message in place.
	UpdateMessage(ctx context.Context, h workflow.MessageHandle, text string, blocks []slack.Block) error

	// PostThreadReply posts a plain-text reply in the thread under the
	// addressed message.
	PostThreadReply(ctx context.Context, h workflow.MessageHandle, text string) error

	// PostEphemeral shows a transient message to a single user in a
	// channel. Nobody else sees it and it is never updated.
	PostEphemeral(ctx context.Context, channel, userID, text string) error

	// OpenView opens a modal in response to an interaction trigger.
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) error

	// UserEmail resolves a platform user ID to the user's email.
	UserEmail(ctx context.Context, userID string) (string, error)

	// UserIDByEmail resolves an email to a platform user ID.
	UserIDByEmail(ctx context.Context, email string) (string, error)
}

// DeliveryError reports a failed outbound call to the chat platform.
// Delivery failures are per-call: the caller logs them and carries on
// with the remaining deliveries rather than aborting the transition.
type DeliveryError struct {
	Op      string
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	if e.Channel != "" {
		return fmt.Sprintf("%s to %s: %v", e.Op, e.Channel, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
