package contract

import "context"

// TurnResponder produces free-form replies for turns no skill claims, and
// answers interruption queries raised mid-skill.
type TurnResponder interface {
	Respond(ctx context.Context, text string, sc SessionContext) (Response, error)
}

// CatalogProvider serves the lookup data of the business.
type CatalogProvider interface {
	Catalog(ctx context.Context) (Catalog, error)
}

// EventPublisher forwards dialogue signals to the systems acting on them.
type EventPublisher interface {
	PublishBooking(ctx context.Context, booking BookingRequest) error
	PublishHandover(ctx context.Context, ev HandoverEvent) error
}
