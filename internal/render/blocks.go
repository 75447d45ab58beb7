// Package render builds the Block Kit bodies for the two live workflow
// messages and the Reject/Edit modals. Rendering is deterministic:
// the same state always produces the same blocks.
package render

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
)

// FallbackText is the plain-text body accompanying every block message,
// shown by clients that cannot render blocks.
const FallbackText = "fallback"

// header returns the title block pair: header plus divider.
func header(name string) []slack.Block {
	return []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, name, true, false)),
		slack.NewDividerBlock(),
	}
}

// fieldSections renders one section per visible field as "*Key:* value".
// Keys are title-cased with underscores replaced by spaces.
func fieldSections(r workflow.Request) []slack.Block {
	visible := r.Visible()
	blocks := make([]slack.Block, 0, len(visible))
	for _, f := range visible {
		text := fmt.Sprintf("*%s:* %s", titleCase(f.Key), f.Value.Display())
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil))
	}
	return blocks
}

// titleCase turns "resource_name" into "Resource Name".
func titleCase(key string) string {
	parts := strings.Split(key, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, " ")
}

// Pending renders the requesters-channel body of a freshly created
// request: title, fields, and a "Request Pending" section.
func Pending(r workflow.Request) []slack.Block {
	blocks := header(r.Name)
	blocks = append(blocks, fieldSections(r)...)
	blocks = append(blocks, slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, "*Request Pending*", false, false), nil, nil))
	return blocks
}

// Actionable renders the approvers-channel body: title, fields, and the
// Approve/Reject buttons, plus an Edit button when the request has
// modifiable fields. Every button's value is the encoded workflow state.
func Actionable(r workflow.Request, encoded string) []slack.Block {
	blocks := header(r.Name)
	blocks = append(blocks, fieldSections(r)...)
	blocks = append(blocks, actions(r, encoded))
	return blocks
}

// actions builds the button row.
func actions(r workflow.Request, encoded string) *slack.ActionBlock {
	approve := slack.NewButtonBlockElement(workflow.ActionIDApproved, encoded,
		slack.NewTextBlockObject(slack.PlainTextType, "Approve", true, false))
	approve.Style = slack.StylePrimary
	approve.WithConfirm(slack.NewConfirmationBlockObject(
		slack.NewTextBlockObject(slack.PlainTextType, "Confirm", false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "Are you sure?", false, false),
		slack.NewTextBlockObject(slack.PlainTextType, "Do it", false, false),
		slack.NewTextBlockObject(slack.PlainTextType, "Stop, I've changed my mind!", false, false),
	))

	reject := slack.NewButtonBlockElement(workflow.ActionIDRejected, encoded,
		slack.NewTextBlockObject(slack.PlainTextType, "Reject", true, false))
	reject.Style = slack.StyleDanger

	elements := []slack.BlockElement{approve, reject}
	if len(r.Modifiable) > 0 {
		elements = append(elements, slack.NewButtonBlockElement(workflow.ActionIDEdit, encoded,
			slack.NewTextBlockObject(slack.PlainTextType, "Edit", true, false)))
	}
	return slack.NewActionBlock("", elements...)
}

// StatusMessage renders the post-transition body shared by both live
// messages: title, fields, a "Status: {status} by {user}" line, and an
// optional trailing error line. When the requester identity is resolved
// and the status is one the requester should see, a mention is appended
// to the status line.
func StatusMessage(st workflow.State, status workflow.Status) []slack.Block {
	blocks := header(st.Request.Name)
	blocks = append(blocks, fieldSections(st.Request)...)
	blocks = append(blocks, slack.NewDividerBlock())

	statusText := fmt.Sprintf("*Status: %s by %s*", status, st.User)
	if st.Request.RequesterID != "" && status.NotifiesRequester() {
		statusText += fmt.Sprintf(" <@%s>", st.Request.RequesterID)
	}
	blocks = append(blocks, slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, statusText, false, false), nil, nil))

	if st.Err != "" {
		blocks = append(blocks,
			slack.NewDividerBlock(),
			slack.NewSectionBlock(
				slack.NewTextBlockObject(slack.MarkdownType,
					fmt.Sprintf("Error while provisioning: %s", st.Err), false, false), nil, nil))
	}
	return blocks
}

// ModifiedMessage renders the approvers-channel body after an edit:
// the status line plus a fresh button row carrying the re-encoded
// state, so the workflow loops back to Pending with the new values.
func ModifiedMessage(st workflow.State, encoded string) []slack.Block {
	blocks := StatusMessage(st, workflow.StatusPendingModified)
	blocks = append(blocks, actions(st.Request, encoded))
	return blocks
}
