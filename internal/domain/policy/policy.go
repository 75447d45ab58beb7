// Package policy defines the approval rule abstraction. The built-in
// self-approval check lives in the workflow package; rules here are the
// deployment-configured layer on top (CEL expressions over the request
// and the acting approver).
package policy

import "context"

// Input is the evaluation context handed to an approval rule.
type Input struct {
	// Action is the inbound event name ("approved").
	Action string
	// Name is the requested action's name.
	Name string
	// Requester is the declared requester email, may be empty.
	Requester string
	// ApproverEmail is the acting user's resolved email, may be empty
	// when resolution failed.
	ApproverEmail string
	// Fields is a map view of the request fields (string or []string
	// values).
	Fields map[string]any
}

// Rule decides whether an approval may proceed. A false result vetoes
// the approval; the string is the operator-facing reason.
type Rule interface {
	Allow(ctx context.Context, in Input) (bool, string, error)
}
