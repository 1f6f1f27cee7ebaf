package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/money"
)

// ErrCustomerRequired is returned when provisioning without a customer id.
var ErrCustomerRequired = errors.New("customer id is required")

// endOfTime bounds journal reads that should include every entry.
var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Service provisions wallets and reads balances.
type Service struct {
	store           ledger.Store
	defaultCurrency money.Currency
	now             ledger.Clock
}

// Option customises a Service.
type Option func(*Service)

func WithClock(clock ledger.Clock) Option {
	return func(s *Service) { s.now = clock }
}

// NewService builds a wallet service. defaultCurrency is used when a customer
// without wallets asks for their default one.
func NewService(store ledger.Store, defaultCurrency money.Currency, opts ...Option) *Service {
	s := &Service{store: store, defaultCurrency: defaultCurrency, now: ledger.SystemClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrGet returns the customer's oldest wallet in currency, creating one
// with zero balance when none exists. created reports which happened.
func (s *Service) CreateOrGet(ctx context.Context, customerID string, currency money.Currency) (w ledger.Wallet, created bool, err error) {
	if customerID == "" {
		return ledger.Wallet{}, false, ErrCustomerRequired
	}
	if !currency.Valid() {
		return ledger.Wallet{}, false, fmt.Errorf("%w: %q", money.ErrUnknownCurrency, currency)
	}

	existing, err := s.store.ListWallets(ctx, customerID, currency)
	if err != nil {
		return ledger.Wallet{}, false, err
	}
	if len(existing) > 0 {
		return existing[0], false, nil
	}

	w = ledger.NewWallet(uuid.New(), customerID, currency, s.now())
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertWallet(ctx, w)
	})
	if err != nil {
		return ledger.Wallet{}, false, err
	}
	return w, true, nil
}

// Default returns the customer's first wallet in any currency, provisioning
// one in the configured default currency if they have none.
func (s *Service) Default(ctx context.Context, customerID string) (ledger.Wallet, error) {
	if customerID == "" {
		return ledger.Wallet{}, ErrCustomerRequired
	}
	existing, err := s.store.ListWallets(ctx, customerID, "")
	if err != nil {
		return ledger.Wallet{}, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	w, _, err := s.CreateOrGet(ctx, customerID, s.defaultCurrency)
	return w, err
}

// Get retrieves a wallet.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (ledger.Wallet, error) {
	return s.store.FindWallet(ctx, id)
}

// CurrentBalance reads the stored balance.
func (s *Service) CurrentBalance(ctx context.Context, id uuid.UUID) (Balance, error) {
	w, err := s.store.FindWallet(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: w.ID, Amount: w.Balance, Currency: w.Currency, AsOf: s.now()}, nil
}

// HistoricalBalance rebuilds the balance from entries created strictly before at.
func (s *Service) HistoricalBalance(ctx context.Context, id uuid.UUID, at time.Time) (Balance, error) {
	w, err := s.store.FindWallet(ctx, id)
	if err != nil {
		return Balance{}, err
	}
	entries, err := s.store.EntriesBefore(ctx, id, at)
	if err != nil {
		return Balance{}, err
	}
	return Balance{WalletID: w.ID, Amount: ledger.Fold(entries), Currency: w.Currency, AsOf: at}, nil
}

// Audit checks the stored balance against the full journal while holding the
// wallet lock, so no command can interleave.
func (s *Service) Audit(ctx context.Context, id uuid.UUID) (AuditReport, error) {
	var report AuditReport
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		w, err := tx.LockWallet(ctx, id)
		if err != nil {
			return err
		}
		entries, err := s.store.EntriesBefore(ctx, id, endOfTime)
		if err != nil {
			return err
		}
		journal := ledger.Fold(entries)
		report = AuditReport{
			WalletID:   w.ID,
			Stored:     w.Balance,
			Journal:    journal,
			Entries:    len(entries),
			Consistent: journal.Equal(w.Balance),
		}
		return nil
	})
	return report, err
}
