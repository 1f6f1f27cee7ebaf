package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/money"
)

// Balance is a wallet's funds at a point in time.
type Balance struct {
	WalletID uuid.UUID
	Amount   decimal.Decimal
	Currency money.Currency
	AsOf     time.Time
}

// AuditReport compares the cached balance with the journal fold.
type AuditReport struct {
	WalletID   uuid.UUID
	Stored     decimal.Decimal
	Journal    decimal.Decimal
	Entries    int
	Consistent bool
}
