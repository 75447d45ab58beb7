package approvalgate

import (
	"errors"
	"fmt"
)

// ErrRejected is returned when the server rejects a submission.
// Use with errors.Is().
var ErrRejected = errors.New("request rejected")

// RequestError is returned when the server rejects a submission or the
// request is invalid before it is sent.
type RequestError struct {
	// Status is the HTTP status code, or 0 for client-side validation.
	Status int
	// Message explains the rejection.
	Message string
}

// Error returns a human-readable description of the rejection.
func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("request rejected (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("request rejected: %s", e.Message)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrRejected).
func (e *RequestError) Is(target error) bool {
	return target == ErrRejected
}
