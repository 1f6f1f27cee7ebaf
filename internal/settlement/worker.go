package settlement

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/metrics"
)

// Settler runs the credit phase of a transfer. It must be idempotent.
type Settler interface {
	Settle(ctx context.Context, transactionID uuid.UUID) error
}

// Worker drives settlement from subscribed events. Transient failures are
// retried in place with capped exponential backoff; a missing transaction is
// logged and acknowledged since no retry can fix it.
type Worker struct {
	subscriber Subscriber
	settler    Settler
	logger     *slog.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewWorker(subscriber Subscriber, settler Settler, logger *slog.Logger) *Worker {
	return &Worker{
		subscriber: subscriber,
		settler:    settler,
		logger:     logger,
		backoff:    200 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}
}

// WithBackoff overrides the retry delays.
func (w *Worker) WithBackoff(initial, maxDelay time.Duration) *Worker {
	w.backoff = initial
	w.maxBackoff = maxDelay
	return w
}

// Run blocks until ctx is cancelled or the subscription fails.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("settlement worker started")
	defer w.logger.Info("settlement worker stopped")
	return w.subscriber.Subscribe(ctx, w.Handle)
}

// Handle settles one event. It returns an error only when ctx ends first.
func (w *Worker) Handle(ctx context.Context, event Event) error {
	delay := w.backoff
	for attempt := 1; ; attempt++ {
		err := w.settler.Settle(ctx, event.TransactionID)
		switch {
		case err == nil:
			metrics.SettlementEvents.WithLabelValues("settled").Inc()
			return nil
		case errors.Is(err, ledger.ErrTransactionNotFound):
			metrics.SettlementEvents.WithLabelValues("not_found").Inc()
			w.logger.Error("settlement event references unknown transaction",
				slog.String("event_id", event.ID),
				slog.String("transaction_id", event.TransactionID.String()))
			return nil
		}

		metrics.SettlementEvents.WithLabelValues("retry").Inc()
		w.logger.Warn("settlement failed, retrying",
			slog.String("event_id", event.ID),
			slog.String("transaction_id", event.TransactionID.String()),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > w.maxBackoff {
			delay = w.maxBackoff
		}
	}
}
