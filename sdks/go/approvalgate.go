// Package approvalgate provides a Go SDK for submitting provisioning
// requests to an Approval Gate server.
//
// Approval Gate turns Slack into an approval surface: a submitted
// request appears in an approvers channel with Approve / Reject / Edit
// buttons and in a requesters channel as a status message. This SDK
// only submits requests; decisions arrive asynchronously through the
// webhooks configured on the server. It uses only the Go standard
// library (net/http) with zero external dependencies.
//
// Quick start:
//
//	// Set APPROVAL_GATE_SERVER_ADDR, then:
//	client := approvalgate.NewClient()
//
//	id, err := client.Submit(ctx, approvalgate.Request{
//	    Name: "grant-access",
//	    Fields: []approvalgate.Field{
//	        {Key: "requester", Value: "bob@example.com"},
//	        {Key: "resource", Value: "db1"},
//	        {Key: "accounts", Value: []string{"alice", "bob"}},
//	    },
//	    ModifiableFields:    []string{"resource", "accounts"},
//	    PreventSelfApproval: true,
//	})
package approvalgate

// Field is a single key-value pair of a provisioning request. The
// server renders fields in submission order, so the SDK preserves the
// order of this slice on the wire.
type Field struct {
	// Key is the field name. Underscores render as spaces in Slack.
	Key string

	// Value is the field value: a string, number, bool, or a []string
	// for list fields.
	Value any
}

// Request is a provisioning request to submit for approval.
type Request struct {
	// Name identifies the request type. It selects the provisioning
	// hook on the server and is shown as the message header. Required.
	Name string

	// Fields are the request parameters, rendered in order.
	Fields []Field

	// Hide names fields that are carried through the workflow but not
	// shown in the Slack messages (tokens, internal IDs).
	Hide []string

	// ModifiableFields names fields the approver may edit before
	// approving.
	ModifiableFields []string

	// PreventSelfApproval blocks the requester from approving their
	// own request. The requester is identified by a "requester" field
	// holding their email address.
	PreventSelfApproval bool

	// ApprovingTeam routes the request to a per-team channel pair
	// configured on the server. Empty uses the default channels.
	ApprovingTeam string
}
