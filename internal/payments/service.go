package payments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/metrics"
	"github.com/congo-pay/walletd/internal/notification"
	"github.com/congo-pay/walletd/internal/settlement"
)

const publishAttempts = 3

// Service runs wallet-to-wallet transfers in two phases: a synchronous debit
// that leaves the transaction PENDING, and a credit triggered by a settlement
// event published after the debit commits.
type Service struct {
	store     ledger.Store
	guard     *ledger.Guard
	publisher settlement.Publisher
	notifier  notification.Notifier
	logger    *slog.Logger
	now       ledger.Clock
	newID     func() uuid.UUID
	retryBase time.Duration
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the timestamp source for transactions and entries.
func WithClock(clock ledger.Clock) Option {
	return func(s *Service) { s.now = clock }
}

// WithNotifier sets who hears about settled credits.
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPublishBackoff sets the first delay between publish attempts.
func WithPublishBackoff(d time.Duration) Option {
	return func(s *Service) { s.retryBase = d }
}

// NewService constructs a payment service.
func NewService(store ledger.Store, guard *ledger.Guard, publisher settlement.Publisher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		guard:     guard,
		publisher: publisher,
		logger:    logger,
		now:       ledger.SystemClock,
		newID:     uuid.New,
		retryBase: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransferInput captures the data needed to move funds between wallets.
type TransferInput struct {
	OriginWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              decimal.Decimal
	IdempotencyKey      string
}

// Transfer debits the origin and leaves the transaction PENDING until Settle
// credits the destination.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (ledger.Result, error) {
	start := time.Now()
	res, err := s.transfer(ctx, input)
	metrics.ObserveCommand(ledger.TypeTransfer, res, err, time.Since(start))
	return res, err
}

func (s *Service) transfer(ctx context.Context, input TransferInput) (ledger.Result, error) {
	if !input.Amount.IsPositive() {
		return ledger.Result{}, ledger.InvalidAmount(input.Amount)
	}
	if input.OriginWalletID == input.DestinationWalletID {
		return ledger.Result{}, ledger.SameWalletTransfer(input.OriginWalletID)
	}
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = uuid.NewString()
	}

	req := ledger.Request{
		WalletID:            input.OriginWalletID,
		IdempotencyKey:      input.IdempotencyKey,
		Type:                ledger.TypeTransfer,
		Amount:              input.Amount,
		DestinationWalletID: input.DestinationWalletID,
	}
	if existing, found, err := s.guard.Check(ctx, req); err != nil {
		return ledger.Result{}, err
	} else if found {
		return ledger.Result{Transaction: existing, Replayed: true}, nil
	}

	var txn ledger.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		origin, destination, err := lockPair(ctx, tx, input.OriginWalletID, input.DestinationWalletID)
		if err != nil {
			return err
		}
		if origin.Currency != destination.Currency {
			return ledger.CurrencyMismatch(origin.ID, destination.ID)
		}
		if !origin.Currency.Accepts(input.Amount) {
			return ledger.InvalidAmount(input.Amount)
		}

		now := s.now()
		if err := origin.Withdraw(input.Amount, now); err != nil {
			return err
		}

		txn = ledger.NewTransaction(s.newID(), origin.ID, destination.ID, input.IdempotencyKey, input.Amount, ledger.TypeTransfer, now)
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		if err := tx.CreateEntries(ctx, ledger.NewEntry(s.newID(), origin.ID, txn.ID, input.Amount, ledger.Debit, now)); err != nil {
			return err
		}
		if err := tx.SaveWallet(ctx, origin); err != nil {
			return err
		}

		transactionID := txn.ID
		tx.AfterCommit(func(ctx context.Context) {
			s.publish(context.WithoutCancel(ctx), transactionID)
		})
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		existing, found, gerr := s.guard.Check(ctx, req)
		if gerr != nil {
			return ledger.Result{}, gerr
		}
		if found {
			return ledger.Result{Transaction: existing, Replayed: true}, nil
		}
		return ledger.Result{}, err
	}
	if err != nil {
		return ledger.Result{}, err
	}
	return ledger.Result{Transaction: txn}, nil
}

// lockPair locks both wallets in ascending id order so opposite-direction
// transfers between the same pair cannot deadlock.
func lockPair(ctx context.Context, tx ledger.Tx, originID, destinationID uuid.UUID) (ledger.Wallet, ledger.Wallet, error) {
	first, second := originID, destinationID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	a, err := tx.LockWallet(ctx, first)
	if err != nil {
		return ledger.Wallet{}, ledger.Wallet{}, err
	}
	b, err := tx.LockWallet(ctx, second)
	if err != nil {
		return ledger.Wallet{}, ledger.Wallet{}, err
	}
	if a.ID == originID {
		return a, b, nil
	}
	return b, a, nil
}

// publish emits the settlement event with a short retry. A final failure is
// left to the reconciler, which re-publishes stale PENDING transfers.
func (s *Service) publish(ctx context.Context, transactionID uuid.UUID) {
	event := settlement.NewEvent(transactionID, s.now())
	delay := s.retryBase
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = s.publisher.Publish(ctx, event); err == nil {
			return
		}
		if attempt < publishAttempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	metrics.PublishFailures.Inc()
	s.logger.Error("publish settlement event",
		slog.String("transaction_id", transactionID.String()),
		slog.String("event_id", event.ID),
		slog.Any("error", err))
}

// Settle credits the destination of a PENDING transfer. Redelivery is safe:
// processed transfers and non-transfer transactions are logged and skipped.
func (s *Service) Settle(ctx context.Context, transactionID uuid.UUID) error {
	t, err := s.store.LoadTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	if t.Processed() {
		s.logger.Warn("transaction already processed", slog.String("transaction_id", t.ID.String()))
		return nil
	}
	if t.Type != ledger.TypeTransfer {
		s.logger.Warn("transaction is not a transfer",
			slog.String("transaction_id", t.ID.String()),
			slog.String("type", string(t.Type)))
		return nil
	}

	return s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		destination, err := tx.LockWallet(ctx, t.DestinationWalletID)
		if err != nil {
			return fmt.Errorf("settle %s: %w", t.ID, err)
		}
		// re-read under the lock; a concurrent delivery may have won
		current, err := tx.LoadTransaction(ctx, t.ID)
		if err != nil {
			return err
		}
		if current.Processed() {
			s.logger.Warn("transaction already processed", slog.String("transaction_id", t.ID.String()))
			return nil
		}

		now := s.now()
		if err := tx.CreateEntries(ctx, ledger.NewEntry(s.newID(), destination.ID, current.ID, current.Amount, ledger.Credit, now)); err != nil {
			return err
		}
		destination.Deposit(current.Amount, now)
		if err := tx.SaveWallet(ctx, destination); err != nil {
			return err
		}
		current.MarkProcessed(now)
		if err := tx.UpdateTransaction(ctx, current); err != nil {
			return err
		}

		tx.AfterCommit(func(ctx context.Context) {
			s.notifyCredit(ctx, destination, current)
		})
		return nil
	})
}

func (s *Service) notifyCredit(ctx context.Context, destination ledger.Wallet, t ledger.Transaction) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTransferCredited,
		Destination: destination.CustomerID,
		Body: fmt.Sprintf("You received %s %s from wallet %s",
			destination.Currency.Format(t.Amount), destination.Currency, t.WalletID),
	})
	if err != nil {
		s.logger.Warn("notify transfer credit", slog.String("transaction_id", t.ID.String()), slog.Any("error", err))
	}
}

// Get returns a transaction by id.
func (s *Service) Get(ctx context.Context, transactionID uuid.UUID) (ledger.Transaction, error) {
	return s.store.LoadTransaction(ctx, transactionID)
}

// Entries returns the journal lines written for a transaction.
func (s *Service) Entries(ctx context.Context, transactionID uuid.UUID) ([]ledger.Entry, error) {
	return s.store.EntriesForTransaction(ctx, transactionID)
}
