package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
	logx "github.com/tanpawarit/Chative-Scheduling-Assistant/pkg/logger"
)

// PublishEvents forwards the booking and handover signals of the turn.
// Publish faults are logged; the replies still go out.
func PublishEvents(
	ctx context.Context,
	in *GraphState,
	publisher contractx.EventPublisher,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if publisher == nil {
		return in, nil
	}

	if in.Booking != nil {
		if err := publisher.PublishBooking(ctx, *in.Booking); err != nil {
			logx.Conversation(in.ConversationID).Error().Err(err).
				Str("booking_id", in.Booking.ID).Msg("publish booking")
		} else {
			logx.Conversation(in.ConversationID).Info().
				Str("booking_id", in.Booking.ID).Msg("booking requested")
		}
	}
	if in.Handover != nil {
		if err := publisher.PublishHandover(ctx, *in.Handover); err != nil {
			logx.Conversation(in.ConversationID).Error().Err(err).Msg("publish handover")
		} else {
			logx.Conversation(in.ConversationID).Info().Msg("conversation handed over")
		}
	}
	return in, nil
}
