package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// fakeUpstash understands the handful of commands the store sends.
type fakeUpstash struct {
	mu       sync.Mutex
	strings  map[string]string
	hashes   map[string]map[string]string
	commands [][]any
}

func newFakeUpstash() *fakeUpstash {
	return &fakeUpstash{
		strings: make(map[string]string),
		hashes:  make(map[string]map[string]string),
	}
}

func (f *fakeUpstash) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if r.Header.Get("Authorization") != "Bearer token" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"unauthorized"}`)
		return
	}

	var cmd []any
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)

	switch cmd[0] {
	case "GET":
		val, ok := f.strings[cmd[1].(string)]
		if !ok {
			fmt.Fprint(w, `{"result":null}`)
			return
		}
		encoded, _ := json.Marshal(val)
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	case "SET":
		f.strings[cmd[1].(string)] = cmd[2].(string)
		fmt.Fprint(w, `{"result":"OK"}`)
	case "EVAL":
		key := cmd[3].(string)
		sig, at, cutoff := cmd[4].(string), cmd[5].(string), cmd[6].(string)
		h := f.hashes[key]
		if h != nil && h["sig"] == sig {
			storedAt, _ := strconv.ParseInt(h["at"], 10, 64)
			cutoffMs, _ := strconv.ParseInt(cutoff, 10, 64)
			if storedAt >= cutoffMs {
				fmt.Fprint(w, `{"result":0}`)
				return
			}
		}
		f.hashes[key] = map[string]string{"sig": sig, "at": at}
		fmt.Fprint(w, `{"result":1}`)
	default:
		fmt.Fprintf(w, `{"error":"unknown command %v"}`, cmd[0])
	}
}

func newTestUpstash(t *testing.T, handler http.Handler) *UpstashDocumentStore {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewUpstashDocumentStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashDocumentStore() error = %v", err)
	}
	return store
}

func TestUpstashDocKey(t *testing.T) {
	t.Parallel()

	store := &UpstashDocumentStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.docKey("abc")
	if err != nil {
		t.Fatalf("docKey() error = %v", err)
	}
	if got != "chative:conversation:abc" {
		t.Fatalf("docKey() = %q", got)
	}

	if _, err := store.docKey("   "); !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("docKey(blank) error = %v, want ErrInvalidConversation", err)
	}
}

func TestNewUpstashDocumentStoreValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashDocumentStore(UpstashRedisConfig{Token: "t"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewUpstashDocumentStore(UpstashRedisConfig{URL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewUpstashDocumentStore(UpstashRedisConfig{URL: "http://localhost", Token: "t"}, WithTTL(-time.Second)); err == nil {
		t.Fatal("expected error for negative ttl")
	}
}

func TestUpstashGetMissingIsNotFound(t *testing.T) {
	t.Parallel()

	store := newTestUpstash(t, newFakeUpstash())
	if _, err := store.Get(context.Background(), "c1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Get() error = %v, want ErrDocumentNotFound", err)
	}
}

func TestUpstashSetThenGet(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	store := newTestUpstash(t, fake)
	ctx := context.Background()

	if err := store.Set(ctx, "c1", []byte(`{"step":"AWAITING_SERVICE"}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"step":"AWAITING_SERVICE"}` {
		t.Fatalf("Get() = %s", got)
	}
	if len(fake.commands[0]) != 3 {
		t.Fatalf("SET without ttl must not carry EX: %#v", fake.commands[0])
	}
}

func TestUpstashSetWithTTLAddsExpiry(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewUpstashDocumentStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithTTL(1500*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewUpstashDocumentStore() error = %v", err)
	}
	if err := store.Set(context.Background(), "c1", []byte(`{}`)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	cmd := fake.commands[0]
	if len(cmd) != 5 || cmd[3] != "EX" || cmd[4] != float64(2) {
		t.Fatalf("unexpected SET command: %#v", cmd)
	}
}

func TestUpstashCompareAndSetUsesReplyKey(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	store := newTestUpstash(t, fake)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	mark := ReplyMark{Signature: ReplySignature("Oi!"), At: now}
	cond := ReplyCondition{SignatureNot: mark.Signature, OlderThan: now.Add(-time.Minute)}

	n, err := store.CompareAndSet(ctx, "c1", cond, mark)
	if err != nil || n != 1 {
		t.Fatalf("first CompareAndSet() = %d, %v; want 1, nil", n, err)
	}
	n, err = store.CompareAndSet(ctx, "c1", cond, mark)
	if err != nil || n != 0 {
		t.Fatalf("second CompareAndSet() = %d, %v; want 0, nil", n, err)
	}

	if got := fake.commands[0][3]; got != "chative:conversation:c1:reply" {
		t.Fatalf("EVAL key = %v", got)
	}
}

func TestUpstashErrorResponse(t *testing.T) {
	t.Parallel()

	store := newTestUpstash(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":"ERR something broke"}`)
	}))
	if _, err := store.Get(context.Background(), "c1"); err == nil || errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("Get() error = %v, want redis error", err)
	}
}

func TestUpstashBehindStateStore(t *testing.T) {
	t.Parallel()

	fake := newFakeUpstash()
	docs := newTestUpstash(t, fake)
	s, err := NewStore(docs)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	ctx := context.Background()

	s.UpdateState(ctx, "c1", Patch{Step: Ptr(StepAwaitingService)})
	if got := s.GetState(ctx, "c1"); got.Step != StepAwaitingService {
		t.Fatalf("GetState().Step = %s", got.Step)
	}
	if !s.TryRegisterReply(ctx, "c1", "Oi!", time.Minute) {
		t.Fatal("first reply must be permitted")
	}
	if s.TryRegisterReply(ctx, "c1", "Oi!", time.Minute) {
		t.Fatal("duplicate reply must be suppressed")
	}
}
