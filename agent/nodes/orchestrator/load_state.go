package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	logx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/logger"
)

// LoadState reads the conversation state and takes the catalog snapshot used
// for the whole turn. A catalog fault leaves the snapshot empty.
func LoadState(
	ctx context.Context,
	in *GraphState,
	store StateStore,
	catalog contractx.CatalogProvider,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.State = store.GetState(ctx, in.ConversationID)

	if catalog != nil {
		snapshot, err := catalog.Catalog(ctx)
		if err != nil {
			logx.Conversation(in.ConversationID).Warn().Err(err).
				Msg("catalog unavailable, continuing with an empty catalog")
		} else {
			in.Catalog = snapshot
		}
	}
	return in, nil
}
