package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/ledger"
)

type transferRequest struct {
	OriginWalletID      string          `json:"origin_wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"`
}

type entryResponse struct {
	EntryID       string          `json:"entry_id"`
	WalletID      string          `json:"wallet_id"`
	Amount        decimal.Decimal `json:"amount"`
	FinancialType string          `json:"financial_type"`
	CreatedAt     time.Time       `json:"created_at"`
}

type transactionResponse struct {
	TransactionID       string          `json:"transaction_id"`
	WalletID            string          `json:"wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id,omitempty"`
	IdempotencyKey      string          `json:"idempotency_key"`
	Amount              decimal.Decimal `json:"amount"`
	Type                string          `json:"type"`
	Status              string          `json:"status"`
	Replayed            bool            `json:"replayed"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	Entries             []entryResponse `json:"entries,omitempty"`
}

func toResponse(t ledger.Transaction, replayed bool, entries []ledger.Entry) transactionResponse {
	resp := transactionResponse{
		TransactionID:  t.ID.String(),
		WalletID:       t.WalletID.String(),
		IdempotencyKey: t.IdempotencyKey,
		Amount:         t.Amount,
		Type:           string(t.Type),
		Status:         string(t.Status),
		Replayed:       replayed,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.Type == ledger.TypeTransfer {
		resp.DestinationWalletID = t.DestinationWalletID.String()
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, entryResponse{
			EntryID:       e.ID.String(),
			WalletID:      e.WalletID.String(),
			Amount:        e.Amount,
			FinancialType: string(e.FinancialType),
			CreatedAt:     e.CreatedAt,
		})
	}
	return resp
}
