package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
)

// Modal input identifiers. Every input uses the same action ID; the
// block ID carries the field key (and element index for list fields).
const (
	inputActionID      = "value"
	reasonBlockID      = "reason"
	fieldBlockSep      = "|"
	fieldBlockIDPrefix = "field" + fieldBlockSep
)

// RejectModal builds the reason-capture modal opened by the Reject
// button. The encoded workflow state rides in the private metadata and
// comes back verbatim on submit.
func RejectModal(encoded string) slack.ModalViewRequest {
	reason := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Why is this request rejected?", false, false),
		inputActionID)
	reason.Multiline = true

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      workflow.CallbackRejectReason,
		PrivateMetadata: encoded,
		Title:           slack.NewTextBlockObject(slack.PlainTextType, "Reject request", false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, "Reject", false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			slack.NewInputBlock(reasonBlockID,
				slack.NewTextBlockObject(slack.PlainTextType, "Reason", false, false),
				nil, reason),
		}},
	}
}

// EditModal builds the edit modal pre-populated with the current value
// of each modifiable field: one input for a scalar field, one input per
// existing element for a list field. List inputs are optional so an
// emptied input removes its element on submit.
func EditModal(st workflow.State, encoded string) slack.ModalViewRequest {
	var blocks []slack.Block
	for _, key := range st.Request.Modifiable {
		v, ok := st.Request.Fields.Get(key)
		if !ok {
			continue
		}
		label := titleCase(key)
		if !v.IsList {
			input := slack.NewPlainTextInputBlockElement(nil, inputActionID)
			input.InitialValue = v.Str
			blocks = append(blocks, slack.NewInputBlock(
				scalarBlockID(key),
				slack.NewTextBlockObject(slack.PlainTextType, label, false, false),
				nil, input))
			continue
		}
		for i, item := range v.Items {
			input := slack.NewPlainTextInputBlockElement(nil, inputActionID)
			input.InitialValue = item
			block := slack.NewInputBlock(
				listBlockID(key, i),
				slack.NewTextBlockObject(slack.PlainTextType,
					fmt.Sprintf("%s (%d)", label, i+1), false, false),
				nil, input)
			block.Optional = true
			blocks = append(blocks, block)
		}
	}

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      workflow.CallbackEditRequest,
		PrivateMetadata: encoded,
		Title:           slack.NewTextBlockObject(slack.PlainTextType, "Edit request", false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, "Save", false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Blocks:          slack.Blocks{BlockSet: blocks},
	}
}

func scalarBlockID(key string) string {
	return fieldBlockIDPrefix + key
}

func listBlockID(key string, index int) string {
	return fieldBlockIDPrefix + key + fieldBlockSep + strconv.Itoa(index)
}

// RejectionReason extracts the submitted reason from a reject modal's
// view state.
func RejectionReason(state *slack.ViewState) string {
	if state == nil {
		return ""
	}
	if actions, ok := state.Values[reasonBlockID]; ok {
		return actions[inputActionID].Value
	}
	return ""
}

// SubmittedEdits extracts the per-field submitted values from an edit
// modal's view state, keyed by field name. For a list field the slice
// holds one entry per original element, in element order, empty strings
// included (an empty entry removes that element).
func SubmittedEdits(state *slack.ViewState) map[string][]string {
	out := make(map[string][]string)
	if state == nil {
		return out
	}

	type listItem struct {
		index int
		value string
	}
	lists := make(map[string][]listItem)

	for blockID, actions := range state.Values {
		rest, ok := strings.CutPrefix(blockID, fieldBlockIDPrefix)
		if !ok {
			continue
		}
		value := actions[inputActionID].Value
		if key, idxStr, isList := strings.Cut(rest, fieldBlockSep); isList {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				continue
			}
			lists[key] = append(lists[key], listItem{index: idx, value: value})
		} else {
			out[key] = []string{value}
		}
	}

	for key, items := range lists {
		vals := make([]string, len(items))
		max := 0
		for _, it := range items {
			if it.index >= max {
				max = it.index + 1
			}
		}
		if max > len(items) {
			vals = make([]string, max)
		}
		for _, it := range items {
			if it.index >= 0 && it.index < len(vals) {
				vals[it.index] = it.value
			}
		}
		out[key] = vals
	}
	return out
}
