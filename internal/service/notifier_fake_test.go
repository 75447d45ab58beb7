package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
	"github.com/approval-gate/approvalgate/internal/port/outbound"
)

type postCall struct {
	channel string
	text    string
	blocks  []slack.Block
}

type updateCall struct {
	handle workflow.MessageHandle
	blocks []slack.Block
}

type threadCall struct {
	handle workflow.MessageHandle
	text   string
}

type ephemeralCall struct {
	channel string
	userID  string
	text    string
}

type viewCall struct {
	triggerID string
	view      slack.ModalViewRequest
}

// fakeNotifier records outbound calls and can be told to fail per
// channel.
type fakeNotifier struct {
	mu         sync.Mutex
	posts      []postCall
	updates    []updateCall
	threads    []threadCall
	ephemerals []ephemeralCall
	views      []viewCall

	emails     map[string]string // user ID -> email
	idsByEmail map[string]string // email -> user ID

	failPost   map[string]bool // channel -> fail
	failUpdate map[string]bool // channel -> fail

	nextTS int
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		emails:     make(map[string]string),
		idsByEmail: make(map[string]string),
		failPost:   make(map[string]bool),
		failUpdate: make(map[string]bool),
	}
}

var _ outbound.Notifier = (*fakeNotifier)(nil)

func (f *fakeNotifier) PostMessage(_ context.Context, channel, text string, blocks []slack.Block) (workflow.MessageHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPost[channel] {
		return workflow.MessageHandle{}, &outbound.DeliveryError{Op: "post message", Channel: channel, Err: fmt.Errorf("channel_not_found")}
	}
	f.posts = append(f.posts, postCall{channel: channel, text: text, blocks: blocks})
	f.nextTS++
	return workflow.MessageHandle{Channel: channel, Timestamp: fmt.Sprintf("%d.000", f.nextTS)}, nil
}

func (f *fakeNotifier) UpdateMessage(_ context.Context, h workflow.MessageHandle, _ string, blocks []slack.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate[h.Channel] {
		return &outbound.DeliveryError{Op: "update message", Channel: h.Channel, Err: fmt.Errorf("message_not_found")}
	}
	f.updates = append(f.updates, updateCall{handle: h, blocks: blocks})
	return nil
}

func (f *fakeNotifier) PostThreadReply(_ context.Context, h workflow.MessageHandle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append(f.threads, threadCall{handle: h, text: text})
	return nil
}

func (f *fakeNotifier) PostEphemeral(_ context.Context, channel, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ephemerals = append(f.ephemerals, ephemeralCall{channel: channel, userID: userID, text: text})
	return nil
}

func (f *fakeNotifier) OpenView(_ context.Context, triggerID string, view slack.ModalViewRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, viewCall{triggerID: triggerID, view: view})
	return nil
}

func (f *fakeNotifier) UserEmail(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.emails[userID]
	if !ok {
		return "", fmt.Errorf("user_not_found")
	}
	return email, nil
}

func (f *fakeNotifier) UserIDByEmail(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.idsByEmail[email]
	if !ok {
		return "", fmt.Errorf("users_not_found")
	}
	return id, nil
}

// updatesFor returns the updates addressed to the given channel.
func (f *fakeNotifier) updatesFor(channel string) []updateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []updateCall
	for _, u := range f.updates {
		if u.handle.Channel == channel {
			out = append(out, u)
		}
	}
	return out
}

// sectionTexts collects section block texts in order.
func sectionTexts(blocks []slack.Block) []string {
	var out []string
	for _, b := range blocks {
		if s, ok := b.(*slack.SectionBlock); ok && s.Text != nil {
			out = append(out, s.Text.Text)
		}
	}
	return out
}

// buttonValue returns the value of the first button in the blocks, or "".
func buttonValue(blocks []slack.Block) string {
	for _, b := range blocks {
		if a, ok := b.(*slack.ActionBlock); ok {
			for _, el := range a.Elements.ElementSet {
				if btn, ok := el.(*slack.ButtonBlockElement); ok {
					return btn.Value
				}
			}
		}
	}
	return ""
}
