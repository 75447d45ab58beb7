package workflow

import "encoding/json"

// MessageHandle identifies a live, mutable chat message by channel ID
// and message timestamp. Both live messages of a request (requesters
// channel, approvers channel) are addressed this way.
type MessageHandle struct {
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
}

// IsZero reports whether the handle is unset.
func (h MessageHandle) IsZero() bool {
	return h.Channel == "" && h.Timestamp == ""
}

// RequesterFieldKey is the conventional field naming the declared
// requester's email address. It stays in the rendered field list but is
// also consulted by the self-approval check.
const RequesterFieldKey = "requester"

// Request is the unit of work awaiting human approval: a named action
// plus its ordered field map and the flags controlling how approvers
// may act on it.
type Request struct {
	// Name identifies the requested action and doubles as the message title.
	Name string `json:"name"`
	// Fields is the canonical ordered field set, hidden entries included.
	Fields Fields `json:"fields"`
	// Hidden names fields that must never be rendered.
	Hidden []string `json:"hidden,omitempty"`
	// Modifiable names fields the approver may edit before deciding.
	Modifiable []string `json:"modifiable,omitempty"`
	// RequesterID is the resolved chat-platform user ID of the requester,
	// empty when resolution failed or was not requested.
	RequesterID string `json:"requester_id,omitempty"`
	// PreventSelfApproval forbids the declared requester from approving.
	PreventSelfApproval bool `json:"prevent_self_approval,omitempty"`
	// Modified is set once any edit round trip changed a field value.
	Modified bool `json:"modified,omitempty"`
}

// Requester returns the declared requester email, if any.
func (r Request) Requester() string {
	v, ok := r.Fields.Get(RequesterFieldKey)
	if !ok || v.IsList {
		return ""
	}
	return v.Str
}

// Visible returns the fields that may be rendered: the canonical set
// minus the hidden entries.
func (r Request) Visible() Fields {
	if len(r.Hidden) == 0 {
		return r.Fields
	}
	hidden := make(map[string]struct{}, len(r.Hidden))
	for _, h := range r.Hidden {
		hidden[h] = struct{}{}
	}
	out := make(Fields, 0, len(r.Fields))
	for _, f := range r.Fields {
		if _, ok := hidden[f.Key]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// IsModifiable reports whether the approver may edit the named field.
func (r Request) IsModifiable(key string) bool {
	for _, m := range r.Modifiable {
		if m == key {
			return true
		}
	}
	return false
}

// State is the full workflow snapshot threaded through the chat
// platform between callbacks. The server keeps nothing: everything
// needed to resume the workflow must be reconstructable from a decoded
// State alone.
type State struct {
	Request Request
	// RequesterMsg addresses the live message in the requesters channel.
	RequesterMsg MessageHandle
	// ApproversMsg addresses the live message in the approvers channel.
	// Self-referential: the approvers message carries its own address so
	// edits can update the message they originated from.
	ApproversMsg MessageHandle
	// User is the acting user's display name, set per callback.
	User string
	// ResponseURL is the originating interaction's response address.
	ResponseURL string
	// Err is the diagnostic from a failed hook or render, surfaced as a
	// trailing error line on the next status update.
	Err string
	// Extra preserves top-level keys present in a decoded snapshot that
	// this version does not model. They are re-embedded unchanged.
	Extra map[string]json.RawMessage
}
