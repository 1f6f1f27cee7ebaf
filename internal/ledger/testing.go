package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/money"
)

// Seed is a test helper that provisions a wallet holding opening. A positive
// opening balance is written as a processed DEPOSIT with its CREDIT entry so
// the journal still folds to the stored balance.
func Seed(ctx context.Context, s Store, customerID string, currency money.Currency, opening decimal.Decimal, at time.Time) (Wallet, error) {
	w := NewWallet(uuid.New(), customerID, currency, at)
	err := s.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if !opening.IsPositive() {
			return tx.InsertWallet(ctx, w)
		}
		w.Deposit(opening, at)
		if err := tx.InsertWallet(ctx, w); err != nil {
			return err
		}
		txn := NewTransaction(uuid.New(), w.ID, uuid.Nil, "seed:"+w.ID.String(), opening, TypeDeposit, at)
		txn.MarkProcessed(at)
		if err := tx.CreateTransaction(ctx, txn); err != nil {
			return err
		}
		return tx.CreateEntries(ctx, NewEntry(uuid.New(), w.ID, txn.ID, opening, Credit, at))
	})
	return w, err
}
