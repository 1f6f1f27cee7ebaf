package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies domain failures surfaced to callers.
type Kind string

const (
	KindInvalidAmount       Kind = "INVALID_AMOUNT"
	KindSameWalletTransfer  Kind = "SAME_WALLET_TRANSFER"
	KindWalletNotFound      Kind = "WALLET_NOT_FOUND"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindCurrencyMismatch    Kind = "CURRENCY_MISMATCH"
	KindTransactionNotFound Kind = "TRANSACTION_NOT_FOUND"
	KindIdempotencyConflict Kind = "IDEMPOTENCY_CONFLICT"
)

var codes = map[Kind]string{
	KindWalletNotFound:      "W:001",
	KindInsufficientBalance: "W:002",
	KindCurrencyMismatch:    "W:003",
	KindInvalidAmount:       "W:004",
	KindSameWalletTransfer:  "W:005",
	KindTransactionNotFound: "T:001",
	KindIdempotencyConflict: "T:002",
}

// Error is a domain failure. Fields irrelevant to the kind are left zero.
type Error struct {
	Kind                Kind
	Message             string
	WalletID            uuid.UUID
	DestinationWalletID uuid.UUID
	TransactionID       uuid.UUID
	Requested           decimal.Decimal
	Available           decimal.Decimal
}

func (e *Error) Error() string {
	return e.Message
}

// Code returns the stable external error code for the kind.
func (e *Error) Code() string {
	return codes[e.Kind]
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount, Message: "amount must be greater than zero"}
	ErrSameWalletTransfer  = &Error{Kind: KindSameWalletTransfer, Message: "origin and destination wallets must differ"}
	ErrWalletNotFound      = &Error{Kind: KindWalletNotFound, Message: "wallet not found"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrCurrencyMismatch    = &Error{Kind: KindCurrencyMismatch, Message: "currency mismatch"}
	ErrTransactionNotFound = &Error{Kind: KindTransactionNotFound, Message: "transaction not found"}
	ErrIdempotencyConflict = &Error{Kind: KindIdempotencyConflict, Message: "idempotency key reused with different parameters"}

	// ErrDuplicateTransaction signals the (wallet, idempotency key, type) unique
	// constraint rejected an insert. Command handlers turn it into a replay.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

func InvalidAmount(amount decimal.Decimal) error {
	return &Error{
		Kind:      KindInvalidAmount,
		Message:   fmt.Sprintf("invalid amount %s", amount.String()),
		Requested: amount,
	}
}

func SameWalletTransfer(walletID uuid.UUID) error {
	return &Error{
		Kind:     KindSameWalletTransfer,
		Message:  fmt.Sprintf("cannot transfer from wallet %s to itself", walletID),
		WalletID: walletID,
	}
}

func WalletNotFound(walletID uuid.UUID) error {
	return &Error{
		Kind:     KindWalletNotFound,
		Message:  fmt.Sprintf("wallet %s not found", walletID),
		WalletID: walletID,
	}
}

func InsufficientBalance(walletID uuid.UUID, requested, available decimal.Decimal) error {
	return &Error{
		Kind:      KindInsufficientBalance,
		Message:   fmt.Sprintf("wallet %s has insufficient balance: requested %s, available %s", walletID, requested.String(), available.String()),
		WalletID:  walletID,
		Requested: requested,
		Available: available,
	}
}

func CurrencyMismatch(originID, destinationID uuid.UUID) error {
	return &Error{
		Kind:                KindCurrencyMismatch,
		Message:             fmt.Sprintf("wallets %s and %s hold different currencies", originID, destinationID),
		WalletID:            originID,
		DestinationWalletID: destinationID,
	}
}

func TransactionNotFound(transactionID uuid.UUID) error {
	return &Error{
		Kind:          KindTransactionNotFound,
		Message:       fmt.Sprintf("transaction %s not found", transactionID),
		TransactionID: transactionID,
	}
}

func IdempotencyConflict(existing Transaction) error {
	return &Error{
		Kind:          KindIdempotencyConflict,
		Message:       fmt.Sprintf("idempotency key %q already used by transaction %s with different parameters", existing.IdempotencyKey, existing.ID),
		WalletID:      existing.WalletID,
		TransactionID: existing.ID,
		Requested:     existing.Amount,
	}
}

// KindOf extracts the domain kind from err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
