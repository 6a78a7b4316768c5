package orchestratornode

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
)

// GateReplies passes every reply through the dedup gate and keeps the ones
// that may be sent.
func GateReplies(
	ctx context.Context,
	in *GraphState,
	store StateStore,
	window time.Duration,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Sent = in.Sent[:0]
	for _, reply := range in.Replies {
		if store.TryRegisterReply(ctx, in.ConversationID, reply, window) {
			in.Sent = append(in.Sent, reply)
		}
	}
	return in, nil
}
