package funding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/metrics"
)

// Service executes single-wallet deposits and withdrawals against the ledger store.
type Service struct {
	store  ledger.Store
	guard  *ledger.Guard
	logger *slog.Logger
	now    ledger.Clock
	newID  func() uuid.UUID
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the timestamp source for transactions and entries.
func WithClock(clock ledger.Clock) Option {
	return func(s *Service) { s.now = clock }
}

// NewService builds a funding service.
func NewService(store ledger.Store, guard *ledger.Guard, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: store, guard: guard, logger: logger, now: ledger.SystemClock, newID: uuid.New}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Input captures a single-wallet money movement.
type Input struct {
	WalletID       uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// Deposit credits the wallet at most once per idempotency key.
func (s *Service) Deposit(ctx context.Context, input Input) (ledger.Result, error) {
	return s.execute(ctx, ledger.TypeDeposit, input)
}

// Withdraw debits the wallet at most once per idempotency key. It fails with
// InsufficientBalance and leaves no trace when funds are short.
func (s *Service) Withdraw(ctx context.Context, input Input) (ledger.Result, error) {
	return s.execute(ctx, ledger.TypeWithdrawal, input)
}

func (s *Service) execute(ctx context.Context, typ ledger.Type, input Input) (ledger.Result, error) {
	start := time.Now()
	res, err := s.apply(ctx, typ, input)
	metrics.ObserveCommand(typ, res, err, time.Since(start))
	return res, err
}

func (s *Service) apply(ctx context.Context, typ ledger.Type, input Input) (ledger.Result, error) {
	if !input.Amount.IsPositive() {
		return ledger.Result{}, ledger.InvalidAmount(input.Amount)
	}
	if input.IdempotencyKey == "" {
		input.IdempotencyKey = uuid.NewString()
	}

	req := ledger.Request{
		WalletID:       input.WalletID,
		IdempotencyKey: input.IdempotencyKey,
		Type:           typ,
		Amount:         input.Amount,
	}
	if existing, found, err := s.guard.Check(ctx, req); err != nil {
		return ledger.Result{}, err
	} else if found {
		return ledger.Result{Transaction: existing, Replayed: true}, nil
	}

	var txn ledger.Transaction
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		w, err := tx.LockWallet(ctx, input.WalletID)
		if err != nil {
			return err
		}
		if !w.Currency.Accepts(input.Amount) {
			return ledger.InvalidAmount(input.Amount)
		}

		now := s.now()
		txn = ledger.NewTransaction(s.newID(), w.ID, uuid.Nil, input.IdempotencyKey, input.Amount, typ, now)
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		entryType := ledger.Credit
		if typ == ledger.TypeWithdrawal {
			entryType = ledger.Debit
		}
		if err := tx.CreateEntries(ctx, ledger.NewEntry(s.newID(), w.ID, txn.ID, input.Amount, entryType, now)); err != nil {
			return err
		}

		if typ == ledger.TypeWithdrawal {
			if err := w.Withdraw(input.Amount, now); err != nil {
				return err
			}
		} else {
			w.Deposit(input.Amount, now)
		}
		if err := tx.SaveWallet(ctx, w); err != nil {
			return err
		}

		txn.MarkProcessed(now)
		return tx.UpdateTransaction(ctx, txn)
	})
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		// lost the race on the unique index; the winner's record is the answer
		existing, found, gerr := s.guard.Check(ctx, req)
		if gerr != nil {
			return ledger.Result{}, gerr
		}
		if found {
			s.logger.Info("concurrent duplicate resolved as replay",
				slog.String("wallet_id", input.WalletID.String()),
				slog.String("transaction_id", existing.ID.String()))
			return ledger.Result{Transaction: existing, Replayed: true}, nil
		}
		return ledger.Result{}, err
	}
	if err != nil {
		return ledger.Result{}, err
	}
	return ledger.Result{Transaction: txn}, nil
}
