package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

var (
	ErrInvalidMessage      = nodex.ErrInvalidMessage
	ErrInvalidConversation = nodex.ErrInvalidConversation
)

type Config struct {
	// TTLMinutes bounds how long an idle scheduling flow is kept.
	TTLMinutes int
	// DedupWindow is the reply dedup window.
	DedupWindow time.Duration
}

// Turn is what one inbound message produced. Replies are already deduped and
// should be sent in order.
type Turn = nodex.GraphOutput

type Orchestrator struct {
	store     nodex.StateStore
	catalog   contractx.CatalogProvider
	responder contractx.TurnResponder
	publisher contractx.EventPublisher

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	ttlMinutes  int
	dedupWindow time.Duration

	now func() time.Time
}

func New(
	store nodex.StateStore,
	catalog contractx.CatalogProvider,
	responder contractx.TurnResponder,
	publisher contractx.EventPublisher,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog provider is required")
	}
	if responder == nil {
		return nil, errors.New("turn responder is required")
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}

	ttlMinutes := cfg.TTLMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = statex.StateTTLMinutes
	}
	dedupWindow := cfg.DedupWindow
	if dedupWindow <= 0 {
		dedupWindow = statex.DedupWindow
	}

	o := &Orchestrator{
		store:       store,
		catalog:     catalog,
		responder:   responder,
		publisher:   publisher,
		ttlMinutes:  ttlMinutes,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID string, text string) (Turn, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		ConversationID: conversationID,
		Text:           text,
	})
	if err != nil {
		return Turn{}, err
	}
	return out, nil
}

// ReleaseHandover gives the conversation back to the assistant after a human
// operator is done with it.
func (o *Orchestrator) ReleaseHandover(ctx context.Context, conversationID string) statex.ConversationState {
	return o.store.UpdateState(ctx, conversationID, statex.Patch{
		ActiveSkill:    statex.Ptr(statex.SkillNone),
		ClearSlots:     true,
		ConfusionCount: statex.Ptr(0),
		DeclineCount:   statex.Ptr(0),
		ClearTTL:       true,
		ClearHandover:  true,
	})
}

type noopPublisher struct{}

func (noopPublisher) PublishBooking(context.Context, contractx.BookingRequest) error {
	return nil
}

func (noopPublisher) PublishHandover(context.Context, contractx.HandoverEvent) error {
	return nil
}
