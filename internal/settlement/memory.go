package settlement

import (
	"context"
)

// MemoryBus is an in-process channel used when no broker is configured.
// Events published before a crash are lost; the reconciler re-publishes them.
type MemoryBus struct {
	events chan Event
}

func NewMemoryBus(buffer int) *MemoryBus {
	return &MemoryBus{events: make(chan Event, buffer)}
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	select {
	case b.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *MemoryBus) Subscribe(ctx context.Context, handle Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-b.events:
			if err := handle(ctx, event); err != nil {
				return err
			}
		}
	}
}

// Pending reports how many events are waiting for a subscriber.
func (b *MemoryBus) Pending() int {
	return len(b.events)
}
