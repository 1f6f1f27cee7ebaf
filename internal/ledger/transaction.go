package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the command that produced a transaction.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeTransfer   Type = "TRANSFER"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	// StatusPending on a transfer means the origin is debited and the credit is in flight.
	StatusPending   Status = "PENDING"
	StatusProcessed Status = "PROCESSED"
)

// Transaction is the durable record of a command, unique per (WalletID, IdempotencyKey, Type).
type Transaction struct {
	ID                  uuid.UUID
	WalletID            uuid.UUID
	DestinationWalletID uuid.UUID // uuid.Nil unless Type is TRANSFER
	IdempotencyKey      string
	Amount              decimal.Decimal
	Type                Type
	Status              Status
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewTransaction returns a PENDING transaction.
func NewTransaction(id, walletID, destinationID uuid.UUID, key string, amount decimal.Decimal, typ Type, now time.Time) Transaction {
	return Transaction{
		ID:                  id,
		WalletID:            walletID,
		DestinationWalletID: destinationID,
		IdempotencyKey:      key,
		Amount:              amount,
		Type:                typ,
		Status:              StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (t *Transaction) MarkProcessed(now time.Time) {
	t.Status = StatusProcessed
	t.UpdatedAt = now
}

func (t Transaction) Processed() bool {
	return t.Status == StatusProcessed
}

// Result is what a command returns. Replayed is set when the idempotency key
// matched an earlier transaction and nothing was executed.
type Result struct {
	Transaction Transaction
	Replayed    bool
}
