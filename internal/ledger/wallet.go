package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/money"
)

// Wallet is a customer's balance in a single currency. Balance caches the fold
// of the wallet's journal and is only mutated under the wallet row lock.
type Wallet struct {
	ID         uuid.UUID
	CustomerID string
	Balance    decimal.Decimal
	Currency   money.Currency
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewWallet returns an active, zero-balance wallet.
func NewWallet(id uuid.UUID, customerID string, currency money.Currency, now time.Time) Wallet {
	return Wallet{
		ID:         id,
		CustomerID: customerID,
		Balance:    decimal.Zero,
		Currency:   currency,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Deposit adds a positive amount. Callers validate the amount.
func (w *Wallet) Deposit(amount decimal.Decimal, now time.Time) {
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = now
}

// Withdraw subtracts amount or fails without mutating when funds are short.
func (w *Wallet) Withdraw(amount decimal.Decimal, now time.Time) error {
	if w.Balance.LessThan(amount) {
		return InsufficientBalance(w.ID, amount, w.Balance)
	}
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = now
	return nil
}
