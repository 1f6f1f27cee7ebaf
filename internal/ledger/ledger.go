package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/walletd/internal/money"
)

// Clock supplies timestamps for records written by command handlers.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// Store is the persistence gateway shared by the ledger backends (e.g. Postgres).
// Reads outside RunInTx observe committed state only.
type Store interface {
	// RunInTx executes fn in one atomic unit of work. Everything fn writes
	// through tx is committed together or not at all; hooks registered with
	// tx.AfterCommit run only after a successful commit.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	FindWallet(ctx context.Context, id uuid.UUID) (Wallet, error)
	// ListWallets returns wallets oldest first. An empty currency matches all.
	ListWallets(ctx context.Context, customerID string, currency money.Currency) ([]Wallet, error)
	FindTransaction(ctx context.Context, walletID uuid.UUID, idempotencyKey string, typ Type) (Transaction, bool, error)
	LoadTransaction(ctx context.Context, id uuid.UUID) (Transaction, error)
	// EntriesBefore returns the wallet's entries created strictly before at, in journal order.
	EntriesBefore(ctx context.Context, walletID uuid.UUID, at time.Time) ([]Entry, error)
	EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]Entry, error)
	// StalePending lists PENDING transfers created before the cutoff, oldest first.
	StalePending(ctx context.Context, before time.Time, limit int) ([]Transaction, error)
}

// Tx is the write side of a unit of work.
type Tx interface {
	// LockWallet takes the exclusive row lock, blocking until it is free, and
	// returns the latest committed wallet state.
	LockWallet(ctx context.Context, id uuid.UUID) (Wallet, error)
	InsertWallet(ctx context.Context, w Wallet) error
	SaveWallet(ctx context.Context, w Wallet) error
	// CreateTransaction returns ErrDuplicateTransaction when the idempotency triple already exists.
	CreateTransaction(ctx context.Context, t Transaction) error
	UpdateTransaction(ctx context.Context, t Transaction) error
	LoadTransaction(ctx context.Context, id uuid.UUID) (Transaction, error)
	CreateEntries(ctx context.Context, entries ...Entry) error
	// AfterCommit registers fn to run once the unit commits. It never runs on rollback.
	AfterCommit(fn func(ctx context.Context))
}
