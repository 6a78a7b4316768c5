package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrDocumentNotFound    = errors.New("conversation document not found")
	ErrInvalidConversation = errors.New("conversation id is empty")
	ErrNilDocument         = errors.New("conversation document is nil")
)

const defaultMaxAttempts = 2

// ReplyMark is the dedup record written next to a conversation document.
type ReplyMark struct {
	Signature string    `json:"signature"`
	At        time.Time `json:"at"`
}

// ReplyCondition is the predicate of DocumentStore.CompareAndSet: the write
// happens when there is no mark yet, the stored signature differs from
// SignatureNot, or the stored instant is before OlderThan.
type ReplyCondition struct {
	SignatureNot string
	OlderThan    time.Time
}

// Allows evaluates the condition against a stored mark (nil = none stored).
func (c ReplyCondition) Allows(stored *ReplyMark) bool {
	if stored == nil || stored.Signature == "" {
		return true
	}
	return stored.Signature != c.SignatureNot || stored.At.Before(c.OlderThan)
}

// DocumentStore is the keyed document store the state layer persists into.
// Set never touches the reply mark; CompareAndSet must be one indivisible
// operation in the backend and returns the number of records changed.
type DocumentStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Set(ctx context.Context, id string, doc []byte) error
	CompareAndSet(ctx context.Context, id string, cond ReplyCondition, mark ReplyMark) (int64, error)
}

// Option customizes Store.
type Option func(*Store)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxAttempts bounds how many times a failing storage call is tried.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.retryBackoff = d
		}
	}
}

// Store loads, merges and saves ConversationState and owns the reply dedup
// gate. Every storage fault degrades instead of failing the turn.
type Store struct {
	docs         DocumentStore
	logger       zerolog.Logger
	now          func() time.Time
	maxAttempts  int
	retryBackoff time.Duration
}

func NewStore(docs DocumentStore, opts ...Option) (*Store, error) {
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	s := &Store{
		docs:         docs,
		logger:       log.Logger,
		now:          time.Now,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// GetState returns the conversation state, DefaultState when absent or
// unreadable, and a soft reset (greeting kept) when the TTL has passed.
func (s *Store) GetState(ctx context.Context, id string) ConversationState {
	st, err := s.load(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", id).Str("op", "get_state").
			Msg("state read failed, using default state")
		return DefaultState()
	}
	return st
}

// UpdateState merges p over the current state and persists the whole
// document. It returns the merged state even when the write did not happen.
func (s *Store) UpdateState(ctx context.Context, id string, p Patch) ConversationState {
	current, err := s.load(ctx, id)
	if err != nil {
		// Writing over an unreadable document could erase it.
		s.logger.Warn().Err(err).Str("conversation_id", id).Str("op", "update_state").
			Msg("state read failed, update skipped")
		return Apply(DefaultState(), p)
	}

	next := Apply(current, p)
	next.UpdatedAt = s.now().UTC()

	payload, err := json.Marshal(next)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", id).Str("op", "update_state").
			Msg("marshal conversation state")
		return next
	}

	err = s.retry(ctx, func() error {
		return s.docs.Set(ctx, id, payload)
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", id).Str("op", "update_state").
			Msg("state write failed, update dropped")
	}
	return next
}

// TryRegisterReply is the dedup gate: true means the caller may send
// replyText, false means the same reply was registered inside window.
// A window <= 0 uses DedupWindow. Storage faults return true.
//
// The compare-and-set is attempted once: a write that committed before its
// response was lost would otherwise match its own mark on a retry and
// suppress a reply that was never sent.
func (s *Store) TryRegisterReply(ctx context.Context, id string, replyText string, window time.Duration) bool {
	if window <= 0 {
		window = DedupWindow
	}
	now := s.now().UTC()
	sig := ReplySignature(replyText)

	changed, err := s.docs.CompareAndSet(ctx, id,
		ReplyCondition{SignatureNot: sig, OlderThan: now.Add(-window)},
		ReplyMark{Signature: sig, At: now},
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", id).Str("op", "try_register_reply").
			Msg("dedup gate failed open")
		return true
	}
	if changed == 0 {
		s.logger.Debug().Str("conversation_id", id).Str("signature", sig).
			Msg("duplicate reply suppressed")
	}
	return changed > 0
}

// ReplySignature is the fixed-width hash of the whitespace-collapsed reply.
func ReplySignature(text string) string {
	sum := sha256.Sum256([]byte(strings.Join(strings.Fields(text), " ")))
	return hex.EncodeToString(sum[:])
}

func (s *Store) load(ctx context.Context, id string) (ConversationState, error) {
	if strings.TrimSpace(id) == "" {
		return ConversationState{}, ErrInvalidConversation
	}

	var raw []byte
	err := s.retry(ctx, func() error {
		doc, err := s.docs.Get(ctx, id)
		raw = doc
		return err
	})
	if errors.Is(err, ErrDocumentNotFound) {
		return DefaultState(), nil
	}
	if err != nil {
		return ConversationState{}, err
	}

	st, err := DecodeState(raw)
	if err != nil {
		return ConversationState{}, err
	}
	if IsExpired(st.TTLExpiresAt, s.now()) {
		return SoftReset(st), nil
	}
	return st, nil
}

// DecodeState parses a stored document over DefaultState.
func DecodeState(raw []byte) (ConversationState, error) {
	st := DefaultState()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return ConversationState{}, fmt.Errorf("unmarshal conversation state: %w", err)
	}
	return normalize(st), nil
}

func (s *Store) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = fn()
		if err == nil || errors.Is(err, ErrDocumentNotFound) || errors.Is(err, ErrInvalidConversation) {
			return err
		}
		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (after %d attempts)", ctx.Err(), attempt)
		case <-time.After(s.retryBackoff):
		}
	}
	return err
}
