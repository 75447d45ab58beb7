package workflow

// Verdict is the outcome of the approval permission check.
type Verdict int

const (
	// VerdictAllowed lets the approval proceed.
	VerdictAllowed Verdict = iota
	// VerdictSelfApproval blocks the declared requester from approving
	// their own request.
	VerdictSelfApproval
	// VerdictIdentityUnresolved blocks an approval whose acting user
	// could not be resolved to an email while self-approval prevention
	// is in force. Fail closed: an unverifiable identity is treated like
	// a match, not like a stranger.
	VerdictIdentityUnresolved
)

// CheckApproval applies the self-approval policy to an Approve action.
// Reject is always permitted and never goes through this check.
// The comparison against the declared requester email is case-sensitive.
func CheckApproval(r Request, actorEmail string, resolveErr error) Verdict {
	if !r.PreventSelfApproval {
		return VerdictAllowed
	}
	requester := r.Requester()
	if requester == "" {
		return VerdictAllowed
	}
	if resolveErr != nil || actorEmail == "" {
		return VerdictIdentityUnresolved
	}
	if actorEmail == requester {
		return VerdictSelfApproval
	}
	return VerdictAllowed
}

// ApplyEdits merges values submitted from the edit modal into the
// request fields and reports whether anything changed. For a scalar
// field the single submitted value replaces the current one. For a list
// field one value is submitted per existing element; an empty value
// removes that element. Fields not named in Modifiable, and fields
// absent from the submission, are left untouched. Modified is set only
// when a real difference exists, so resubmitting identical values is a
// no-op.
func (r *Request) ApplyEdits(submitted map[string][]string) bool {
	changed := false
	for _, key := range r.Modifiable {
		vals, ok := submitted[key]
		if !ok {
			continue
		}
		current, exists := r.Fields.Get(key)
		if !exists {
			continue
		}
		if current.IsList {
			next := make([]string, 0, len(vals))
			for _, v := range vals {
				if v == "" {
					continue
				}
				next = append(next, v)
			}
			nv := Value{Items: next, IsList: true}
			if !current.Equal(nv) {
				r.Fields.Set(key, nv)
				changed = true
			}
			continue
		}
		if len(vals) == 0 {
			continue
		}
		nv := Value{Str: vals[0]}
		if !current.Equal(nv) {
			r.Fields.Set(key, nv)
			changed = true
		}
	}
	if changed {
		r.Modified = true
	}
	return changed
}
