package orchestratornode

import (
	"context"
	"errors"
	"strings"
	"time"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

var (
	ErrInvalidMessage      = errors.New("message is empty")
	ErrInvalidConversation = errors.New("conversation id is empty")
)

// StateStore is the part of statex.Store the turn graph needs.
type StateStore interface {
	GetState(ctx context.Context, id string) statex.ConversationState
	UpdateState(ctx context.Context, id string, p statex.Patch) statex.ConversationState
	TryRegisterReply(ctx context.Context, id string, replyText string, window time.Duration) bool
}

var _ StateStore = (*statex.Store)(nil)

type GraphInput struct {
	ConversationID string
	Text           string
}

type GraphOutput struct {
	Replies  []string
	Handover bool
}

type GraphState struct {
	ConversationID string
	Text           string
	Now            time.Time

	State   statex.ConversationState
	Catalog contractx.Catalog

	Patch    statex.Patch
	Replies  []string
	Booking  *contractx.BookingRequest
	Handover *contractx.HandoverEvent

	// Sent holds the replies that passed the dedup gate.
	Sent []string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	conversationID := strings.TrimSpace(in.ConversationID)
	if conversationID == "" {
		return nil, ErrInvalidConversation
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		ConversationID: conversationID,
		Text:           text,
		Now:            nowFn().UTC(),
	}, nil
}

func (g *GraphState) addReply(text string) {
	if text = strings.TrimSpace(text); text != "" {
		g.Replies = append(g.Replies, text)
	}
}
