package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/approval-gate/approvalgate/internal/domain/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRouter() *ChannelRouter {
	return NewChannelRouter(
		ChannelPair{Approvers: "C_APP", Requesters: "C_REQ"},
		map[string]ChannelPair{
			"database": {Approvers: "C_DB_APP", Requesters: "C_DB_REQ"},
		},
	)
}

const creationPayload = `{
	"name": "grant-access",
	"resource": "db1",
	"requester": "bob@x.com",
	"modifiable_fields": "resource"
}`

func TestRequestService_Submit(t *testing.T) {
	fake := newFakeNotifier()
	fake.idsByEmail["bob@x.com"] = "U_BOB"
	svc := NewRequestService(fake, testRouter(), testLogger())

	id, err := svc.Submit(context.Background(), []byte(creationPayload))
	if err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}
	if id == "" {
		t.Error("Submit() returned empty correlation ID")
	}

	if len(fake.posts) != 2 {
		t.Fatalf("post count = %d, want 2", len(fake.posts))
	}

	pending := fake.posts[0]
	if pending.channel != "C_REQ" {
		t.Errorf("pending message channel = %q, want C_REQ", pending.channel)
	}
	texts := sectionTexts(pending.blocks)
	joined := strings.Join(texts, "\n")
	if !strings.Contains(joined, "*Resource:* db1") {
		t.Errorf("pending message missing field section:\n%s", joined)
	}
	if texts[len(texts)-1] != "*Request Pending*" {
		t.Errorf("pending message last section = %q", texts[len(texts)-1])
	}

	actionable := fake.posts[1]
	if actionable.channel != "C_APP" {
		t.Errorf("approvers message channel = %q, want C_APP", actionable.channel)
	}
}

func TestRequestService_Submit_SelfReferentialButtonValue(t *testing.T) {
	fake := newFakeNotifier()
	svc := NewRequestService(fake, testRouter(), testLogger())

	if _, err := svc.Submit(context.Background(), []byte(creationPayload)); err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}

	// The approvers message is posted, then rewritten so its buttons
	// embed the message's own handle.
	updates := fake.updatesFor("C_APP")
	if len(updates) != 1 {
		t.Fatalf("approvers message updates = %d, want 1", len(updates))
	}
	encoded := buttonValue(updates[0].blocks)
	if encoded == "" {
		t.Fatal("approvers message buttons carry no value")
	}
	st, err := workflow.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode(button value) unexpected error: %v", err)
	}
	if st.ApproversMsg != updates[0].handle {
		t.Errorf("embedded approvers handle = %+v, want %+v", st.ApproversMsg, updates[0].handle)
	}
	if st.RequesterMsg.Channel != "C_REQ" {
		t.Errorf("embedded requester handle channel = %q, want C_REQ", st.RequesterMsg.Channel)
	}
	if v, _ := st.Request.Fields.Get("requester"); v.Str != "bob@x.com" {
		t.Errorf("encoded state requester = %q, want bob@x.com", v.Str)
	}
}

func TestRequestService_Submit_TeamRouting(t *testing.T) {
	fake := newFakeNotifier()
	svc := NewRequestService(fake, testRouter(), testLogger())

	payload := `{"name":"grant-access","resource":"db1","approving_team":"database"}`
	if _, err := svc.Submit(context.Background(), []byte(payload)); err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}
	if fake.posts[0].channel != "C_DB_REQ" || fake.posts[1].channel != "C_DB_APP" {
		t.Errorf("channels = %q, %q, want team pair", fake.posts[0].channel, fake.posts[1].channel)
	}
}

func TestRequestService_Submit_UnknownTeamFallsBack(t *testing.T) {
	fake := newFakeNotifier()
	svc := NewRequestService(fake, testRouter(), testLogger())

	payload := `{"name":"grant-access","approving_team":"nonexistent"}`
	if _, err := svc.Submit(context.Background(), []byte(payload)); err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}
	if fake.posts[0].channel != "C_REQ" {
		t.Errorf("channel = %q, want default pair", fake.posts[0].channel)
	}
}

func TestRequestService_Submit_MissingName(t *testing.T) {
	fake := newFakeNotifier()
	svc := NewRequestService(fake, testRouter(), testLogger())

	_, err := svc.Submit(context.Background(), []byte(`{"resource":"db1"}`))
	if !errors.Is(err, workflow.ErrMissingName) {
		t.Errorf("Submit() error = %v, want ErrMissingName", err)
	}
	if len(fake.posts) != 0 {
		t.Error("Submit() posted messages for an invalid payload")
	}
}

func TestRequestService_Submit_RequesterResolutionFailureNonFatal(t *testing.T) {
	fake := newFakeNotifier() // no email mapping registered
	svc := NewRequestService(fake, testRouter(), testLogger())

	if _, err := svc.Submit(context.Background(), []byte(creationPayload)); err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}

	updates := fake.updatesFor("C_APP")
	st, err := workflow.Decode(buttonValue(updates[0].blocks))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if st.Request.RequesterID != "" {
		t.Errorf("RequesterID = %q, want empty after failed resolution", st.Request.RequesterID)
	}
}

func TestRequestService_Submit_RequesterChannelFailureDoesNotBlockApprovers(t *testing.T) {
	fake := newFakeNotifier()
	fake.failPost["C_REQ"] = true
	svc := NewRequestService(fake, testRouter(), testLogger())

	if _, err := svc.Submit(context.Background(), []byte(creationPayload)); err != nil {
		t.Fatalf("Submit() unexpected error: %v", err)
	}

	if len(fake.posts) != 1 || fake.posts[0].channel != "C_APP" {
		t.Fatalf("approvers message not posted after requester channel failure: %+v", fake.posts)
	}
	// The embedded requester handle stays zero; status updates will
	// simply skip that channel.
	st, err := workflow.Decode(buttonValue(fake.updatesFor("C_APP")[0].blocks))
	if err != nil {
		t.Fatalf("Decode() unexpected error: %v", err)
	}
	if !st.RequesterMsg.IsZero() {
		t.Errorf("RequesterMsg = %+v, want zero", st.RequesterMsg)
	}
}

func TestChannelRouter_Route(t *testing.T) {
	r := testRouter()
	if got := r.Route(""); got.Approvers != "C_APP" {
		t.Errorf("Route(\"\") = %+v", got)
	}
	if got := r.Route("database"); got.Approvers != "C_DB_APP" {
		t.Errorf("Route(database) = %+v", got)
	}
	if got := r.Route("ghosts"); got.Approvers != "C_APP" {
		t.Errorf("Route(ghosts) = %+v", got)
	}
}
