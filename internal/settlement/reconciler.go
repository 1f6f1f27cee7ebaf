package settlement

import (
	"context"
	"log/slog"
	"time"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/metrics"
)

// PendingFinder lists transfers whose credit phase has not happened yet.
type PendingFinder interface {
	StalePending(ctx context.Context, before time.Time, limit int) ([]ledger.Transaction, error)
}

// Reconciler re-publishes settlement events for transfers stuck in PENDING,
// covering events lost between commit and the broker.
type Reconciler struct {
	finder     PendingFinder
	publisher  Publisher
	logger     *slog.Logger
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	now        ledger.Clock
}

func NewReconciler(finder PendingFinder, publisher Publisher, logger *slog.Logger, interval, staleAfter time.Duration) *Reconciler {
	return &Reconciler{
		finder:     finder,
		publisher:  publisher,
		logger:     logger,
		interval:   interval,
		staleAfter: staleAfter,
		batch:      100,
		now:        ledger.SystemClock,
	}
}

// WithClock overrides the clock used to compute the staleness cutoff.
func (r *Reconciler) WithClock(clock ledger.Clock) *Reconciler {
	r.now = clock
	return r
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("reconcile pending transfers", slog.Any("error", err))
			}
		}
	}
}

// Sweep publishes one event per stale transfer and returns how many went out.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	now := r.now()
	stale, err := r.finder.StalePending(ctx, now.Add(-r.staleAfter), r.batch)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, t := range stale {
		if err := r.publisher.Publish(ctx, NewEvent(t.ID, now)); err != nil {
			return published, err
		}
		published++
		metrics.Republished.Inc()
		r.logger.Warn("re-published settlement for stale transfer",
			slog.String("transaction_id", t.ID.String()),
			slog.Time("created_at", t.CreatedAt))
	}
	return published, nil
}
