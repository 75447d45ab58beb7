package workflow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMissingName rejects a creation payload without the required
// "name" field.
var ErrMissingName = errors.New("creation payload is missing required field \"name\"")

// Pseudo-fields of the creation payload. They configure the workflow
// and are consumed at parse time rather than kept as request fields.
const (
	metaName                = "name"
	metaHide                = "hide"
	metaModifiableFields    = "modifiable_fields"
	metaPreventSelfApproval = "prevent_self_approval"
	metaApprovingTeam       = "approving_team"
)

// ParseRequest builds a Request from an inbound creation payload (a
// JSON object). The second return value is the approving team selector,
// empty when the payload does not route to a named team.
//
// Fields named by "hide" stay in the canonical field set but are marked
// hidden. "modifiable_fields" is a semicolon-joined list of field names
// the approver may edit.
func ParseRequest(raw []byte) (Request, string, error) {
	var fields Fields
	if err := fields.UnmarshalJSON(raw); err != nil {
		return Request{}, "", fmt.Errorf("creation payload: %w", err)
	}

	var r Request
	var team string

	if v, ok := fields.Get(metaName); ok && !v.IsList && v.Str != "" {
		r.Name = v.Str
	} else {
		return Request{}, "", ErrMissingName
	}
	fields.Delete(metaName)

	if v, ok := fields.Get(metaHide); ok {
		if v.IsList {
			r.Hidden = append([]string(nil), v.Items...)
		} else if v.Str != "" {
			r.Hidden = []string{v.Str}
		}
		fields.Delete(metaHide)
	}

	if v, ok := fields.Get(metaModifiableFields); ok {
		if !v.IsList && v.Str != "" {
			for _, name := range strings.Split(v.Str, ";") {
				name = strings.TrimSpace(name)
				if name != "" {
					r.Modifiable = append(r.Modifiable, name)
				}
			}
		}
		fields.Delete(metaModifiableFields)
	}

	if v, ok := fields.Get(metaPreventSelfApproval); ok {
		if !v.IsList {
			b, err := strconv.ParseBool(v.Str)
			if err != nil {
				return Request{}, "", fmt.Errorf("creation payload: field %q: %w", metaPreventSelfApproval, err)
			}
			r.PreventSelfApproval = b
		}
		fields.Delete(metaPreventSelfApproval)
	}

	if v, ok := fields.Get(metaApprovingTeam); ok {
		if !v.IsList {
			team = v.Str
		}
		fields.Delete(metaApprovingTeam)
	}

	// Keep only modifiable names that actually exist; an edit modal
	// cannot be built for a field that was never submitted.
	kept := r.Modifiable[:0]
	for _, name := range r.Modifiable {
		if _, ok := fields.Get(name); ok {
			kept = append(kept, name)
		}
	}
	r.Modifiable = kept

	r.Fields = fields
	return r, team, nil
}
