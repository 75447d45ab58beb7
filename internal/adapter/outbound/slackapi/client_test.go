package slackapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
	"github.com/approval-gate/approvalgate/internal/port/outbound"
)

// fakeSlack is a minimal Slack Web API stub recording the last call per
// method.
type fakeSlack struct {
	*httptest.Server
	calls map[string]map[string][]string // method -> form values
	fail  map[string]bool
}

func newFakeSlack(t *testing.T) *fakeSlack {
	t.Helper()
	f := &fakeSlack{
		calls: make(map[string]map[string][]string),
		fail:  make(map[string]bool),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Path[len("/"):]
		if method == "views.open" {
			// views.open is a JSON-body call, not form-encoded.
			var body struct {
				TriggerID string `json:"trigger_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode views.open body: %v", err)
			}
			f.calls[method] = map[string][]string{"trigger_id": {body.TriggerID}}
		} else {
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			f.calls[method] = r.Form
		}

		w.Header().Set("Content-Type", "application/json")
		if f.fail[method] {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
			return
		}
		switch method {
		case "chat.postMessage":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "111.222"})
		case "chat.update":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "111.222", "text": ""})
		case "chat.postEphemeral":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "message_ts": "333.444"})
		case "views.open":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "view": map[string]any{"id": "V1"}})
		case "users.info":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "user": map[string]any{
				"id": "U1", "name": "alice.smith",
				"profile": map[string]any{"email": "alice@x.com"},
			}})
		case "users.lookupByEmail":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "user": map[string]any{"id": "U1"}})
		default:
			t.Errorf("unexpected API method %q", method)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
		}
	}))
	t.Cleanup(f.Server.Close)
	return f
}

func (f *fakeSlack) client() *Client {
	return NewClient("xoxb-test", WithAPIURL(f.URL+"/"))
}

func TestClient_PostMessage(t *testing.T) {
	fake := newFakeSlack(t)
	c := fake.client()

	blocks := []slack.Block{slack.NewDividerBlock()}
	h, err := c.PostMessage(context.Background(), "C123", "fallback", blocks)
	if err != nil {
		t.Fatalf("PostMessage() unexpected error: %v", err)
	}
	if h.Channel != "C123" || h.Timestamp != "111.222" {
		t.Errorf("handle = %+v", h)
	}
	form := fake.calls["chat.postMessage"]
	if form == nil {
		t.Fatal("chat.postMessage not called")
	}
	if got := form["channel"]; len(got) != 1 || got[0] != "C123" {
		t.Errorf("channel form value = %v", got)
	}
	if got := form["text"]; len(got) != 1 || got[0] != "fallback" {
		t.Errorf("text form value = %v", got)
	}
}

func TestClient_PostMessage_DeliveryError(t *testing.T) {
	fake := newFakeSlack(t)
	fake.fail["chat.postMessage"] = true
	c := fake.client()

	_, err := c.PostMessage(context.Background(), "C_MISSING", "fallback", nil)
	if err == nil {
		t.Fatal("PostMessage() expected error")
	}
	var de *outbound.DeliveryError
	if !errors.As(err, &de) {
		t.Fatalf("error = %T, want *outbound.DeliveryError", err)
	}
	if de.Op != "post message" || de.Channel != "C_MISSING" {
		t.Errorf("delivery error = %+v", de)
	}
}

func TestClient_UpdateMessage(t *testing.T) {
	fake := newFakeSlack(t)
	c := fake.client()

	h := workflow.MessageHandle{Channel: "C123", Timestamp: "111.222"}
	if err := c.UpdateMessage(context.Background(), h, "fallback", nil); err != nil {
		t.Fatalf("UpdateMessage() unexpected error: %v", err)
	}
	form := fake.calls["chat.update"]
	if form == nil {
		t.Fatal("chat.update not called")
	}
	if got := form["ts"]; len(got) != 1 || got[0] != "111.222" {
		t.Errorf("ts form value = %v", got)
	}
}

func TestClient_PostThreadReply(t *testing.T) {
	fake := newFakeSlack(t)
	c := fake.client()

	h := workflow.MessageHandle{Channel: "C123", Timestamp: "111.222"}
	if err := c.PostThreadReply(context.Background(), h, "Reason for rejection: nope"); err != nil {
		t.Fatalf("PostThreadReply() unexpected error: %v", err)
	}
	form := fake.calls["chat.postMessage"]
	if got := form["thread_ts"]; len(got) != 1 || got[0] != "111.222" {
		t.Errorf("thread_ts form value = %v", got)
	}
}

func TestClient_UserLookups(t *testing.T) {
	fake := newFakeSlack(t)
	c := fake.client()

	email, err := c.UserEmail(context.Background(), "U1")
	if err != nil {
		t.Fatalf("UserEmail() unexpected error: %v", err)
	}
	if email != "alice@x.com" {
		t.Errorf("UserEmail() = %q", email)
	}

	id, err := c.UserIDByEmail(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("UserIDByEmail() unexpected error: %v", err)
	}
	if id != "U1" {
		t.Errorf("UserIDByEmail() = %q", id)
	}
}

func TestClient_OpenView(t *testing.T) {
	fake := newFakeSlack(t)
	c := fake.client()

	view := slack.ModalViewRequest{
		Type:  slack.VTModal,
		Title: slack.NewTextBlockObject(slack.PlainTextType, "t", false, false),
		Close: slack.NewTextBlockObject(slack.PlainTextType, "c", false, false),
	}
	if err := c.OpenView(context.Background(), "trigger-1", view); err != nil {
		t.Fatalf("OpenView() unexpected error: %v", err)
	}
	form := fake.calls["views.open"]
	if got := form["trigger_id"]; len(got) != 1 || got[0] != "trigger-1" {
		t.Errorf("trigger_id form value = %v", got)
	}
}
