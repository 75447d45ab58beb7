package workflow

import (
	"encoding/json"
	"fmt"
)

// codecVersion is the snapshot schema version written by Encode.
// Decode tolerates newer versions: known keys are read, unknown keys
// are preserved in State.Extra and re-embedded by the next Encode.
const codecVersion = 1

// Keys of the encoded snapshot object. Everything else lands in Extra.
const (
	keyVersion      = "v"
	keyRequest      = "request"
	keyRequesterMsg = "requester_msg"
	keyApproversMsg = "approvers_msg"
	keyUser         = "user"
	keyResponseURL  = "response_url"
	keyError        = "error"
)

// MalformedStateError reports a round-tripped snapshot that cannot be
// decoded: corrupted JSON, or a required key that is absent or of the
// wrong shape.
type MalformedStateError struct {
	Key   string
	Cause error
}

func (e *MalformedStateError) Error() string {
	if e.Key != "" && e.Cause != nil {
		return fmt.Sprintf("malformed workflow state: key %q: %v", e.Key, e.Cause)
	}
	if e.Key != "" {
		return fmt.Sprintf("malformed workflow state: missing key %q", e.Key)
	}
	return fmt.Sprintf("malformed workflow state: %v", e.Cause)
}

func (e *MalformedStateError) Unwrap() error { return e.Cause }

// Encode serializes the state into the opaque string carried by action
// button values and modal private metadata. Unknown keys captured in
// State.Extra are merged back in, losing nothing across hops.
func Encode(st State) (string, error) {
	obj := make(map[string]json.RawMessage, len(st.Extra)+7)
	for k, v := range st.Extra {
		obj[k] = v
	}

	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode workflow state: key %q: %w", key, err)
		}
		obj[key] = raw
		return nil
	}

	if err := put(keyVersion, codecVersion); err != nil {
		return "", err
	}
	if err := put(keyRequest, st.Request); err != nil {
		return "", err
	}
	if err := put(keyRequesterMsg, st.RequesterMsg); err != nil {
		return "", err
	}
	if err := put(keyApproversMsg, st.ApproversMsg); err != nil {
		return "", err
	}
	if err := put(keyUser, st.User); err != nil {
		return "", err
	}
	if err := put(keyResponseURL, st.ResponseURL); err != nil {
		return "", err
	}
	if st.Err != "" {
		if err := put(keyError, st.Err); err != nil {
			return "", err
		}
	} else {
		delete(obj, keyError)
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("encode workflow state: %w", err)
	}
	return string(out), nil
}

// Decode reconstructs a State from an opaque round-tripped string.
// Required keys: request (with a non-empty name). All other known keys
// are optional; unrecognized keys are preserved verbatim in Extra.
func Decode(s string) (State, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return State{}, &MalformedStateError{Cause: err}
	}

	var st State

	raw, ok := obj[keyRequest]
	if !ok {
		return State{}, &MalformedStateError{Key: keyRequest}
	}
	if err := json.Unmarshal(raw, &st.Request); err != nil {
		return State{}, &MalformedStateError{Key: keyRequest, Cause: err}
	}
	if st.Request.Name == "" {
		return State{}, &MalformedStateError{Key: keyRequest, Cause: fmt.Errorf("empty request name")}
	}
	delete(obj, keyRequest)

	optional := []struct {
		key string
		dst any
	}{
		{keyRequesterMsg, &st.RequesterMsg},
		{keyApproversMsg, &st.ApproversMsg},
		{keyUser, &st.User},
		{keyResponseURL, &st.ResponseURL},
		{keyError, &st.Err},
	}
	for _, o := range optional {
		raw, ok := obj[o.key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, o.dst); err != nil {
			return State{}, &MalformedStateError{Key: o.key, Cause: err}
		}
		delete(obj, o.key)
	}

	// The version key itself is consumed, not preserved: the next Encode
	// writes its own.
	if raw, ok := obj[keyVersion]; ok {
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return State{}, &MalformedStateError{Key: keyVersion, Cause: err}
		}
		delete(obj, keyVersion)
	}

	if len(obj) > 0 {
		st.Extra = obj
	}
	return st, nil
}
