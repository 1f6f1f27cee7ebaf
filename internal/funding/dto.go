package funding

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/ledger"
)

// MovementRequest is the body of a deposit or withdrawal.
type MovementRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransactionResponse is the API view of a ledger transaction.
type TransactionResponse struct {
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
}

// ToResponse renders a transaction for the API.
func ToResponse(t ledger.Transaction, replayed bool) TransactionResponse {
	resp := TransactionResponse{
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
	return resp
}
