package qstash

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	contractx "github.com/tanpawarit/Chative-Scheduling-Assistant/agent/contract"
)

// Publisher forwards booking and handover signals to QStash destinations.
// An empty destination turns that signal into a no-op.
type Publisher struct {
	client              *Client
	bookingDestination  string
	handoverDestination string
}

var _ contractx.EventPublisher = (*Publisher)(nil)

func NewPublisher(client *Client, cfg Config) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: qstash client is required", contractx.ErrValidation)
	}
	return &Publisher{
		client:              client,
		bookingDestination:  strings.TrimSpace(cfg.BookingDestination),
		handoverDestination: strings.TrimSpace(cfg.HandoverDestination),
	}, nil
}

func (p *Publisher) PublishBooking(ctx context.Context, booking contractx.BookingRequest) error {
	if p.bookingDestination == "" {
		return nil
	}
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if _, err := p.client.Publish(ctx, p.bookingDestination, booking, WithDeduplicationID("booking-"+booking.ID)); err != nil {
		return fmt.Errorf("publish booking %s: %w", booking.ID, err)
	}
	return nil
}

func (p *Publisher) PublishHandover(ctx context.Context, ev contractx.HandoverEvent) error {
	if p.handoverDestination == "" {
		return nil
	}
	dedupID := fmt.Sprintf("handover-%s-%d", ev.ConversationID, ev.At.UnixMilli())
	if _, err := p.client.Publish(ctx, p.handoverDestination, ev, WithDeduplicationID(dedupID)); err != nil {
		return fmt.Errorf("publish handover %s: %w", ev.ConversationID, err)
	}
	return nil
}
