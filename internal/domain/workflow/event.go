package workflow

// Slack action IDs carried on the approvers message's buttons.
const (
	ActionIDApproved = "Approved"
	ActionIDRejected = "Rejected"
	ActionIDEdit     = "Edit"
)

// Callback IDs of the modals opened by the Reject and Edit buttons.
const (
	CallbackRejectReason = "reject_reason"
	CallbackEditRequest  = "edit_request"
)

// Event classifies an inbound interaction. EventRejectWithReason and
// EventModified arrive as view submissions; EventNotAllowed is
// synthesized by the self-approval check and never sent by the
// platform.
type Event int

const (
	EventUnknown Event = iota
	EventApproved
	EventRejected
	EventEdit
	EventRejectWithReason
	EventModified
	EventNotAllowed
)

// String returns the event name used in logs and metrics labels.
func (e Event) String() string {
	switch e {
	case EventApproved:
		return "approved"
	case EventRejected:
		return "rejected"
	case EventEdit:
		return "edit"
	case EventRejectWithReason:
		return "reject_with_reason"
	case EventModified:
		return "modified"
	case EventNotAllowed:
		return "not_allowed"
	default:
		return "unknown"
	}
}

// ClassifyAction maps a block-action ID to its event.
func ClassifyAction(actionID string) Event {
	switch actionID {
	case ActionIDApproved:
		return EventApproved
	case ActionIDRejected:
		return EventRejected
	case ActionIDEdit:
		return EventEdit
	default:
		return EventUnknown
	}
}

// ClassifyCallback maps a view-submission callback ID to its event.
func ClassifyCallback(callbackID string) Event {
	switch callbackID {
	case CallbackRejectReason:
		return EventRejectWithReason
	case CallbackEditRequest:
		return EventModified
	default:
		return EventUnknown
	}
}

// Status is a rendered workflow status.
type Status string

const (
	StatusPending         Status = "Pending"
	StatusApproved        Status = "Approved"
	StatusRejected        Status = "Rejected"
	StatusPendingModified Status = "Pending (modified)"
)

// NotifiesRequester reports whether a status transition should mention
// the resolved requester in the status line.
func (s Status) NotifiesRequester() bool {
	return s == StatusApproved || s == StatusRejected
}
