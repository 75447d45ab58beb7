// Package inbound defines the inbound port interfaces for the approval
// workflow core. The HTTP adapter calls these.
package inbound

import (
	"context"

	"github.com/slack-go/slack"
)

// RequestIntake accepts provisioning request creation payloads.
type RequestIntake interface {
	// Submit parses the creation payload and posts the two initial
	// messages. Returns the correlation ID assigned to the request.
	// Per-channel delivery failures are not errors; only an invalid
	// payload is.
	Submit(ctx context.Context, payload []byte) (string, error)
}

// InteractionHandler processes interaction callbacks: button clicks on
// the approvers message and modal submissions.
type InteractionHandler interface {
	Handle(ctx context.Context, cb *slack.InteractionCallback) error
}
