package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinancialType is the direction of a journal entry.
type FinancialType string

const (
	Credit FinancialType = "CREDIT"
	Debit  FinancialType = "DEBIT"
)

// Entry is an immutable journal line against one wallet. Seq is assigned by
// the store on insert and breaks CreatedAt ties.
type Entry struct {
	ID            uuid.UUID
	Seq           int64
	WalletID      uuid.UUID
	TransactionID uuid.UUID
	Amount        decimal.Decimal
	FinancialType FinancialType
	CreatedAt     time.Time
}

func NewEntry(id, walletID, transactionID uuid.UUID, amount decimal.Decimal, ft FinancialType, now time.Time) Entry {
	return Entry{
		ID:            id,
		WalletID:      walletID,
		TransactionID: transactionID,
		Amount:        amount,
		FinancialType: ft,
		CreatedAt:     now,
	}
}

// Signed is +Amount for credits and -Amount for debits.
func (e Entry) Signed() decimal.Decimal {
	if e.FinancialType == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Fold sums entries starting at zero. Entries must already be in journal order.
func Fold(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Signed())
	}
	return total
}

// SortEntries orders entries by creation time, then insertion order.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].Seq < entries[j].Seq
	})
}
