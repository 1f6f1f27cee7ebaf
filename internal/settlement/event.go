package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Event asks the settlement worker to credit the destination of a PENDING transfer.
type Event struct {
	ID            string    `json:"event_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewEvent stamps a fresh, time-sortable event id.
func NewEvent(transactionID uuid.UUID, now time.Time) Event {
	return Event{
		ID:            ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		TransactionID: transactionID,
		OccurredAt:    now,
	}
}

// Publisher hands events to a durable channel.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler processes one delivery. Returning an error stops the subscription
// without acknowledging the event.
type Handler func(ctx context.Context, event Event) error

// Subscriber delivers events at least once until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, handle Handler) error
}
