package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletd/internal/money"
)

func TestGuardPolicies(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	a := seedWallet(t, store, "0")
	b := seedWallet(t, store, "0")

	original := NewTransaction(uuid.New(), a.ID, b.ID, "key-1", money.MustAmount("60"), TypeTransfer, SystemClock())
	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateTransaction(ctx, original)
	}))

	miss := Request{WalletID: a.ID, IdempotencyKey: "other", Type: TypeTransfer, Amount: money.MustAmount("60"), DestinationWalletID: b.ID}
	mismatch := Request{WalletID: a.ID, IdempotencyKey: "key-1", Type: TypeTransfer, Amount: money.MustAmount("61"), DestinationWalletID: b.ID}
	exact := Request{WalletID: a.ID, IdempotencyKey: "key-1", Type: TypeTransfer, Amount: money.MustAmount("60.00"), DestinationWalletID: b.ID}

	lenient := NewGuard(store, ReplayReturn)
	_, found, err := lenient.Check(ctx, miss)
	require.NoError(t, err)
	assert.False(t, found)

	got, found, err := lenient.Check(ctx, mismatch)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, original.ID, got.ID)

	strict := NewGuard(store, ReplayReject)
	_, _, err = strict.Check(ctx, mismatch)
	require.ErrorIs(t, err, ErrIdempotencyConflict)

	got, found, err = strict.Check(ctx, exact)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, original.ID, got.ID)
}

func TestParseReplayPolicy(t *testing.T) {
	p, err := ParseReplayPolicy("REJECT")
	require.NoError(t, err)
	assert.Equal(t, ReplayReject, p)

	p, err = ParseReplayPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ReplayReturn, p)

	_, err = ParseReplayPolicy("maybe")
	assert.Error(t, err)
}
