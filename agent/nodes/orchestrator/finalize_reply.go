package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	replies := make([]string, len(in.Sent))
	copy(replies, in.Sent)
	return GraphOutput{Replies: replies, Handover: in.State.InHandover()}, nil
}
