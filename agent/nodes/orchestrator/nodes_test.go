package orchestratornode

import (
	"context"
	"errors"
	"testing"
	"time"

	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

type fakeStateStore struct {
	state   statex.ConversationState
	patches []statex.Patch
	allowed map[string]bool
	gated   []string
}

func (f *fakeStateStore) GetState(context.Context, string) statex.ConversationState {
	return f.state
}

func (f *fakeStateStore) UpdateState(_ context.Context, _ string, p statex.Patch) statex.ConversationState {
	f.patches = append(f.patches, p)
	f.state = statex.Apply(f.state, p)
	return f.state
}

func (f *fakeStateStore) TryRegisterReply(_ context.Context, _ string, reply string, _ time.Duration) bool {
	f.gated = append(f.gated, reply)
	if f.allowed == nil {
		return true
	}
	return f.allowed[reply]
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	got, err := ValidateRequest(GraphInput{ConversationID: " c1 ", Text: "  oi  "}, func() time.Time { return now })
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if got.ConversationID != "c1" || got.Text != "oi" || got.Now.Location() != time.UTC {
		t.Fatalf("unexpected graph state: %+v", got)
	}

	if _, err := ValidateRequest(GraphInput{Text: "oi"}, time.Now); !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("expected ErrInvalidConversation, got %v", err)
	}
	if _, err := ValidateRequest(GraphInput{ConversationID: "c1"}, time.Now); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestPersistStateMarksGreetingOnFirstReply(t *testing.T) {
	t.Parallel()

	store := &fakeStateStore{state: statex.DefaultState()}
	in := &GraphState{ConversationID: "c1", Now: time.Now().UTC(), State: store.state}

	if _, err := PersistState(context.Background(), in, store); err != nil {
		t.Fatalf("PersistState() error = %v", err)
	}
	if len(store.patches) != 0 {
		t.Fatalf("expected no write without replies, got %d", len(store.patches))
	}

	in.addReply("Olá!")
	if _, err := PersistState(context.Background(), in, store); err != nil {
		t.Fatalf("PersistState() error = %v", err)
	}
	if len(store.patches) != 1 || !store.state.UserAlreadyGreeted || store.state.LastGreetingAt == nil {
		t.Fatalf("expected greeting write, got %+v", store.state)
	}
}

func TestGateRepliesDropsSuppressed(t *testing.T) {
	t.Parallel()

	store := &fakeStateStore{allowed: map[string]bool{"a": true, "c": true}}
	in := &GraphState{ConversationID: "c1", Replies: []string{"a", "b", "c"}}

	out, err := GateReplies(context.Background(), in, store, time.Minute)
	if err != nil {
		t.Fatalf("GateReplies() error = %v", err)
	}
	if len(store.gated) != 3 {
		t.Fatalf("expected every reply to pass the gate, got %v", store.gated)
	}
	final, err := FinalizeReply(out)
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if len(final.Replies) != 2 || final.Replies[0] != "a" || final.Replies[1] != "c" {
		t.Fatalf("unexpected replies: %#v", final.Replies)
	}
}

func TestNodesRejectNilState(t *testing.T) {
	t.Parallel()

	store := &fakeStateStore{}
	if _, err := LoadState(context.Background(), nil, store, nil); err == nil {
		t.Fatal("LoadState: expected error")
	}
	if _, err := RunTurn(context.Background(), nil, nil, 0); err == nil {
		t.Fatal("RunTurn: expected error")
	}
	if _, err := PersistState(context.Background(), nil, store); err == nil {
		t.Fatal("PersistState: expected error")
	}
	if _, err := PublishEvents(context.Background(), nil, nil); err == nil {
		t.Fatal("PublishEvents: expected error")
	}
	if _, err := GateReplies(context.Background(), nil, store, 0); err == nil {
		t.Fatal("GateReplies: expected error")
	}
	if _, err := FinalizeReply(nil); err == nil {
		t.Fatal("FinalizeReply: expected error")
	}
}
