package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/policy"
	"github.com/approval-gate/approvalgate/internal/domain/workflow"
	"github.com/approval-gate/approvalgate/internal/port/outbound"
	"github.com/approval-gate/approvalgate/internal/render"
)

// ErrNoActions rejects a block-actions callback without any action.
var ErrNoActions = errors.New("interaction callback carries no actions")

// User-facing texts for blocked approvals and rejection threads.
const (
	selfApprovalText       = "You are not allowed to approve your own request."
	identityUnresolvedText = "Your identity could not be verified, so you cannot approve this request."
	rejectionReasonPrefix  = "Reason for rejection: "
)

// ProvisionService is the approval state machine driver. Each inbound
// interaction is handled statelessly: the workflow state is rebuilt
// from the payload the platform echoes back, the transition is applied,
// and both live messages are brought to the new status.
// It implements inbound.InteractionHandler.
type ProvisionService struct {
	notifier outbound.Notifier
	hooks    *HookRegistry
	rule     policy.Rule
	logger   *slog.Logger
}

// ProvisionOption configures ProvisionService.
type ProvisionOption func(*ProvisionService)

// WithRule installs an approval policy rule evaluated on every Approve
// after the built-in self-approval check.
func WithRule(rule policy.Rule) ProvisionOption {
	return func(s *ProvisionService) {
		s.rule = rule
	}
}

// NewProvisionService creates a ProvisionService.
func NewProvisionService(notifier outbound.Notifier, hooks *HookRegistry, logger *slog.Logger, opts ...ProvisionOption) *ProvisionService {
	s := &ProvisionService{
		notifier: notifier,
		hooks:    hooks,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle dispatches an interaction callback. Button clicks arrive as
// block actions; the Reject and Edit follow-ups arrive as view
// submissions carrying the state in their private metadata.
func (s *ProvisionService) Handle(ctx context.Context, cb *slack.InteractionCallback) error {
	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		return s.handleBlockAction(ctx, cb)
	case slack.InteractionTypeViewSubmission:
		return s.handleViewSubmission(ctx, cb)
	default:
		s.logger.Debug("ignoring interaction", "type", cb.Type)
		return nil
	}
}

func (s *ProvisionService) handleBlockAction(ctx context.Context, cb *slack.InteractionCallback) error {
	if len(cb.ActionCallback.BlockActions) == 0 {
		return ErrNoActions
	}
	action := cb.ActionCallback.BlockActions[0]
	event := workflow.ClassifyAction(action.ActionID)

	st, err := workflow.Decode(action.Value)
	if err != nil {
		return err
	}
	st.User = displayName(cb.User.Name)
	st.ResponseURL = cb.ResponseURL

	logger := s.logger.With("name", st.Request.Name, "event", event.String(), "user", cb.User.ID)

	switch event {
	case workflow.EventApproved:
		return s.approve(ctx, st, cb, logger)
	case workflow.EventRejected:
		return s.openModal(ctx, cb.TriggerID, st, render.RejectModal, logger)
	case workflow.EventEdit:
		if len(st.Request.Modifiable) == 0 {
			logger.Warn("edit requested without modifiable fields")
			return nil
		}
		return s.openModal(ctx, cb.TriggerID, st, func(encoded string) slack.ModalViewRequest {
			return render.EditModal(st, encoded)
		}, logger)
	default:
		logger.Debug("ignoring unknown action", "action_id", action.ActionID)
		return nil
	}
}

func (s *ProvisionService) handleViewSubmission(ctx context.Context, cb *slack.InteractionCallback) error {
	event := workflow.ClassifyCallback(cb.View.CallbackID)

	st, err := workflow.Decode(cb.View.PrivateMetadata)
	if err != nil {
		return err
	}
	st.User = displayName(cb.User.Name)

	logger := s.logger.With("name", st.Request.Name, "event", event.String(), "user", cb.User.ID)

	switch event {
	case workflow.EventRejectWithReason:
		return s.reject(ctx, st, render.RejectionReason(cb.View.State), logger)
	case workflow.EventModified:
		return s.applyModification(ctx, st, render.SubmittedEdits(cb.View.State), logger)
	default:
		logger.Debug("ignoring unknown view submission", "callback_id", cb.View.CallbackID)
		return nil
	}
}

// approve drives the Approved transition: self-approval check, optional
// policy rule, the approved hook, then the dual message update. A
// blocked approval is not an error: it surfaces as an ephemeral notice
// to the acting user and leaves both messages untouched.
func (s *ProvisionService) approve(ctx context.Context, st workflow.State, cb *slack.InteractionCallback, logger *slog.Logger) error {
	email, resolveErr := s.notifier.UserEmail(ctx, cb.User.ID)
	if resolveErr != nil {
		logger.Warn("could not resolve acting user", "error", resolveErr)
	}

	switch workflow.CheckApproval(st.Request, email, resolveErr) {
	case workflow.VerdictSelfApproval:
		logger.Info("self approval blocked")
		return s.notifyNotAllowed(ctx, st, cb, selfApprovalText)
	case workflow.VerdictIdentityUnresolved:
		logger.Info("approval blocked, identity unresolved")
		return s.notifyNotAllowed(ctx, st, cb, identityUnresolvedText)
	}

	if s.rule != nil {
		allowed, reason, err := s.rule.Allow(ctx, policy.Input{
			Action:        workflow.EventApproved.String(),
			Name:          st.Request.Name,
			Requester:     st.Request.Requester(),
			ApproverEmail: email,
			Fields:        st.Request.Fields.Map(),
		})
		if err != nil {
			// Fail closed: an unevaluable policy must not wave an
			// approval through.
			logger.Error("approval rule evaluation failed", "error", err)
			return s.notifyNotAllowed(ctx, st, cb, "Approval policy could not be evaluated; the request was not approved.")
		}
		if !allowed {
			logger.Info("approval vetoed by policy", "reason", reason)
			return s.notifyNotAllowed(ctx, st, cb, reason)
		}
	}

	if err := s.hooks.Lookup(st.Request.Name).Approved(ctx, &st); err != nil {
		hookErr := &HookError{Hook: st.Request.Name, Err: err}
		logger.Error("approved hook failed", "error", hookErr)
		st.Err = err.Error()
	}

	s.updateBoth(ctx, st, render.StatusMessage(st, workflow.StatusApproved), logger)
	return nil
}

// reject drives the Rejected transition after the reason modal submit:
// the rejected hook, a threaded reason reply under both live messages,
// then the dual update.
func (s *ProvisionService) reject(ctx context.Context, st workflow.State, reason string, logger *slog.Logger) error {
	if err := s.hooks.Lookup(st.Request.Name).Rejected(ctx, &st); err != nil {
		hookErr := &HookError{Hook: st.Request.Name, Err: err}
		logger.Error("rejected hook failed", "error", hookErr)
		st.Err = err.Error()
	}

	if reason != "" {
		s.forBothMessages(st, func(h workflow.MessageHandle) {
			if err := s.notifier.PostThreadReply(ctx, h, rejectionReasonPrefix+reason); err != nil {
				logger.Error("failed to post rejection reason", "channel", h.Channel, "error", err)
			}
		})
	}

	s.updateBoth(ctx, st, render.StatusMessage(st, workflow.StatusRejected), logger)
	return nil
}

// applyModification drives the Modified transition: diff the submitted
// values, and when anything changed (now or in a previous round) bring
// both messages to "Pending (modified)" with a freshly encoded button
// value so the next Approve acts on the new field values.
func (s *ProvisionService) applyModification(ctx context.Context, st workflow.State, submitted map[string][]string, logger *slog.Logger) error {
	changed := st.Request.ApplyEdits(submitted)
	if !changed && !st.Request.Modified {
		logger.Debug("edit submitted without changes")
		return nil
	}

	encoded, err := workflow.Encode(st)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	if !st.RequesterMsg.IsZero() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blocks := render.StatusMessage(st, workflow.StatusPendingModified)
			if err := s.notifier.UpdateMessage(ctx, st.RequesterMsg, render.FallbackText, blocks); err != nil {
				logger.Error("failed to update requester message", "channel", st.RequesterMsg.Channel, "error", err)
			}
		}()
	}
	if !st.ApproversMsg.IsZero() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blocks := render.ModifiedMessage(st, encoded)
			if err := s.notifier.UpdateMessage(ctx, st.ApproversMsg, render.FallbackText, blocks); err != nil {
				logger.Error("failed to update approvers message", "channel", st.ApproversMsg.Channel, "error", err)
			}
		}()
	}
	wg.Wait()

	logger.Info("request modified", "changed", changed)
	return nil
}

// openModal encodes the current state into a modal's private metadata
// and opens it. The real transition is deferred to the submit callback.
func (s *ProvisionService) openModal(ctx context.Context, triggerID string, st workflow.State, build func(encoded string) slack.ModalViewRequest, logger *slog.Logger) error {
	encoded, err := workflow.Encode(st)
	if err != nil {
		return err
	}
	if err := s.notifier.OpenView(ctx, triggerID, build(encoded)); err != nil {
		logger.Error("failed to open modal", "error", err)
		return err
	}
	return nil
}

// notifyNotAllowed shows a transient dialog to the acting user. The
// request stays Pending for everyone else; neither live message is
// touched.
func (s *ProvisionService) notifyNotAllowed(ctx context.Context, st workflow.State, cb *slack.InteractionCallback, text string) error {
	channel := cb.Channel.ID
	if channel == "" {
		channel = st.ApproversMsg.Channel
	}
	if err := s.notifier.PostEphemeral(ctx, channel, cb.User.ID, text); err != nil {
		s.logger.Error("failed to post not-allowed notice", "channel", channel, "error", err)
		return err
	}
	return nil
}

// updateBoth brings both live messages to the rendered blocks. The two
// updates are independent network calls issued concurrently; a failure
// on one channel never prevents the attempt on the other, and both
// complete before the callback returns.
func (s *ProvisionService) updateBoth(ctx context.Context, st workflow.State, blocks []slack.Block, logger *slog.Logger) {
	var wg sync.WaitGroup
	s.forBothMessages(st, func(h workflow.MessageHandle) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.notifier.UpdateMessage(ctx, h, render.FallbackText, blocks); err != nil {
				logger.Error("failed to update message", "channel", h.Channel, "error", err)
			}
		}()
	})
	wg.Wait()
}

// forBothMessages invokes fn for each live message handle that exists.
func (s *ProvisionService) forBothMessages(st workflow.State, fn func(workflow.MessageHandle)) {
	if !st.RequesterMsg.IsZero() {
		fn(st.RequesterMsg)
	}
	if !st.ApproversMsg.IsZero() {
		fn(st.ApproversMsg)
	}
}

// displayName turns a platform handle like "bob.smith" into "Bob Smith".
func displayName(handle string) string {
	parts := strings.Split(handle, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}
