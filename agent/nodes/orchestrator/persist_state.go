package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	statex "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/state"
)

// PersistState writes the turn delta. The first reply of a conversation also
// marks the user as greeted.
func PersistState(
	ctx context.Context,
	in *GraphState,
	store StateStore,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if len(in.Replies) > 0 && !in.State.UserAlreadyGreeted {
		in.Patch = in.Patch.Merge(statex.Patch{
			UserAlreadyGreeted: statex.Ptr(true),
			LastGreetingAt:     statex.Ptr(in.Now),
		})
	}
	if in.Patch.IsEmpty() {
		return in, nil
	}

	in.State = store.UpdateState(ctx, in.ConversationID, in.Patch)
	return in, nil
}
