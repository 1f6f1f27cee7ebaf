package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReplayPolicy decides what happens when an idempotency key is replayed with
// different parameters.
type ReplayPolicy string

const (
	// ReplayReturn hands back the original transaction whatever the replayed inputs are.
	ReplayReturn ReplayPolicy = "return"
	// ReplayReject fails mismatched replays with IdempotencyConflict.
	ReplayReject ReplayPolicy = "reject"
)

func ParseReplayPolicy(s string) (ReplayPolicy, error) {
	switch p := ReplayPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ReplayReturn, ReplayReject:
		return p, nil
	case "":
		return ReplayReturn, nil
	default:
		return "", fmt.Errorf("unknown replay policy %q", s)
	}
}

type transactionFinder interface {
	FindTransaction(ctx context.Context, walletID uuid.UUID, idempotencyKey string, typ Type) (Transaction, bool, error)
}

// Guard short-circuits commands whose idempotency key was already used. The
// lookup is not atomic with the later lock; the unique constraint behind
// Tx.CreateTransaction is the real barrier.
type Guard struct {
	finder transactionFinder
	policy ReplayPolicy
}

func NewGuard(finder transactionFinder, policy ReplayPolicy) *Guard {
	if policy == "" {
		policy = ReplayReturn
	}
	return &Guard{finder: finder, policy: policy}
}

// Request identifies a command for the guard.
type Request struct {
	WalletID            uuid.UUID
	IdempotencyKey      string
	Type                Type
	Amount              decimal.Decimal
	DestinationWalletID uuid.UUID
}

// Check returns the earlier transaction and true on a hit.
func (g *Guard) Check(ctx context.Context, req Request) (Transaction, bool, error) {
	existing, found, err := g.finder.FindTransaction(ctx, req.WalletID, req.IdempotencyKey, req.Type)
	if err != nil {
		return Transaction{}, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if !found {
		return Transaction{}, false, nil
	}
	if g.policy == ReplayReject && !matches(existing, req) {
		return Transaction{}, false, IdempotencyConflict(existing)
	}
	return existing, true, nil
}

func (g *Guard) Policy() ReplayPolicy {
	return g.policy
}

func matches(t Transaction, req Request) bool {
	return t.Amount.Equal(req.Amount) && t.DestinationWalletID == req.DestinationWalletID
}
