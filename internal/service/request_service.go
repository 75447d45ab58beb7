package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
	"github.com/approval-gate/approvalgate/internal/port/outbound"
	"github.com/approval-gate/approvalgate/internal/render"
)

// ChannelPair names the two destination channels of an approving team.
type ChannelPair struct {
	Approvers  string
	Requesters string
}

// ChannelRouter selects the channel pair for a named approving team,
// falling back to the default pair for unknown or empty team names.
type ChannelRouter struct {
	def   ChannelPair
	teams map[string]ChannelPair
}

// NewChannelRouter creates a router with a default pair and optional
// per-team overrides.
func NewChannelRouter(def ChannelPair, teams map[string]ChannelPair) *ChannelRouter {
	return &ChannelRouter{def: def, teams: teams}
}

// Route returns the channel pair for team.
func (r *ChannelRouter) Route(team string) ChannelPair {
	if team != "" {
		if pair, ok := r.teams[team]; ok {
			return pair
		}
	}
	return r.def
}

// RequestService turns an inbound creation payload into the two initial
// messages: a pending notice in the requesters channel and an
// actionable prompt in the approvers channel. It implements
// inbound.RequestIntake.
type RequestService struct {
	notifier outbound.Notifier
	router   *ChannelRouter
	logger   *slog.Logger
}

// NewRequestService creates a RequestService.
func NewRequestService(notifier outbound.Notifier, router *ChannelRouter, logger *slog.Logger) *RequestService {
	return &RequestService{
		notifier: notifier,
		router:   router,
		logger:   logger,
	}
}

// Submit parses the creation payload and posts both initial messages.
// Only a malformed payload is an error: delivery failures are
// per-channel, logged, and must not block the other channel.
func (s *RequestService) Submit(ctx context.Context, payload []byte) (string, error) {
	id := uuid.New().String()
	logger := s.logger.With("request_id", id)

	req, team, err := workflow.ParseRequest(payload)
	if err != nil {
		return "", err
	}
	pair := s.router.Route(team)
	logger = logger.With("name", req.Name, "approvers_channel", pair.Approvers)

	// Resolve the declared requester to a platform identity so status
	// updates can mention them. Resolution failure is non-fatal: the
	// mention is simply suppressed.
	if email := req.Requester(); email != "" {
		userID, err := s.notifier.UserIDByEmail(ctx, email)
		if err != nil {
			logger.Debug("requester resolution failed", "requester", email, "error", err)
		} else {
			req.RequesterID = userID
		}
	}

	st := workflow.State{Request: req}

	// Pending notice first, so its handle can ride in the approvers
	// message's button values.
	h, err := s.notifier.PostMessage(ctx, pair.Requesters, render.FallbackText, render.Pending(req))
	if err != nil {
		logger.Error("failed to post pending message", "channel", pair.Requesters, "error", err)
	} else {
		st.RequesterMsg = h
	}

	if err := s.postActionable(ctx, &st, pair.Approvers); err != nil {
		logger.Error("failed to post approvers message", "channel", pair.Approvers, "error", err)
	}

	logger.Info("request submitted",
		"requester", req.Requester(),
		"modifiable", len(req.Modifiable),
		"prevent_self_approval", req.PreventSelfApproval)
	return id, nil
}

// postActionable posts the approvers message and then rewrites it so
// its button values embed the message's own handle. The state is
// self-referential: without its own address, an edit round trip could
// not update the message it originated from.
func (s *RequestService) postActionable(ctx context.Context, st *workflow.State, channel string) error {
	encoded, err := workflow.Encode(*st)
	if err != nil {
		return err
	}
	h, err := s.notifier.PostMessage(ctx, channel, render.FallbackText, render.Actionable(st.Request, encoded))
	if err != nil {
		return err
	}
	st.ApproversMsg = h

	encoded, err = workflow.Encode(*st)
	if err != nil {
		return err
	}
	return s.notifier.UpdateMessage(ctx, h, render.FallbackText, render.Actionable(st.Request, encoded))
}
