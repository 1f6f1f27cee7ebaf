package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/walletd/internal/money"
)

type idempotencyTriple struct {
	walletID uuid.UUID
	key      string
	typ      Type
}

func tripleOf(t Transaction) idempotencyTriple {
	return idempotencyTriple{walletID: t.WalletID, key: t.IdempotencyKey, typ: t.Type}
}

// inMemoryStore mirrors the Postgres semantics closely enough for tests and
// local runs: blocking row locks, a blocking unique index on the idempotency
// triple, staged writes applied at commit.
type inMemoryStore struct {
	mu           sync.RWMutex
	wallets      map[uuid.UUID]Wallet
	transactions map[uuid.UUID]Transaction
	keys         map[idempotencyTriple]uuid.UUID
	reserved     map[idempotencyTriple]chan struct{}
	entries      []Entry
	seq          int64
	rowLocks     map[uuid.UUID]chan struct{}
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:      make(map[uuid.UUID]Wallet),
		transactions: make(map[uuid.UUID]Transaction),
		keys:         make(map[idempotencyTriple]uuid.UUID),
		reserved:     make(map[idempotencyTriple]chan struct{}),
		rowLocks:     make(map[uuid.UUID]chan struct{}),
	}
}

func (s *inMemoryStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &inMemoryTx{
		store:        s,
		held:         make(map[uuid.UUID]chan struct{}),
		wallets:      make(map[uuid.UUID]Wallet),
		transactions: make(map[uuid.UUID]Transaction),
		keys:         make(map[idempotencyTriple]uuid.UUID),
	}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	committed = true

	for _, hook := range tx.hooks {
		hook(ctx)
	}
	return nil
}

func (s *inMemoryStore) FindWallet(_ context.Context, id uuid.UUID) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, WalletNotFound(id)
	}
	return w, nil
}

func (s *inMemoryStore) ListWallets(_ context.Context, customerID string, currency money.Currency) ([]Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Wallet
	for _, w := range s.wallets {
		if w.CustomerID != customerID {
			continue
		}
		if currency != "" && w.Currency != currency {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *inMemoryStore) FindTransaction(_ context.Context, walletID uuid.UUID, idempotencyKey string, typ Type) (Transaction, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[idempotencyTriple{walletID: walletID, key: idempotencyKey, typ: typ}]
	if !ok {
		return Transaction{}, false, nil
	}
	return s.transactions[id], true, nil
}

func (s *inMemoryStore) LoadTransaction(_ context.Context, id uuid.UUID) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[id]
	if !ok {
		return Transaction{}, TransactionNotFound(id)
	}
	return t, nil
}

func (s *inMemoryStore) EntriesBefore(_ context.Context, walletID uuid.UUID, at time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.WalletID == walletID && e.CreatedAt.Before(at) {
			out = append(out, e)
		}
	}
	SortEntries(out)
	return out, nil
}

func (s *inMemoryStore) EntriesForTransaction(_ context.Context, transactionID uuid.UUID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	SortEntries(out)
	return out, nil
}

func (s *inMemoryStore) StalePending(_ context.Context, before time.Time, limit int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Transaction
	for _, t := range s.transactions {
		if t.Type == TypeTransfer && t.Status == StatusPending && t.CreatedAt.Before(before) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *inMemoryStore) rowLock(id uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.rowLocks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.rowLocks[id] = ch
	}
	return ch
}

type inMemoryTx struct {
	store        *inMemoryStore
	held         map[uuid.UUID]chan struct{}
	wallets      map[uuid.UUID]Wallet
	transactions map[uuid.UUID]Transaction
	keys         map[idempotencyTriple]uuid.UUID
	entries      []Entry
	hooks        []func(ctx context.Context)
}

func (t *inMemoryTx) LockWallet(ctx context.Context, id uuid.UUID) (Wallet, error) {
	if _, ok := t.held[id]; ok {
		return t.wallet(id)
	}
	if w, ok := t.wallets[id]; ok {
		// inserted by this unit, invisible to others
		return w, nil
	}
	if _, err := t.store.FindWallet(ctx, id); err != nil {
		return Wallet{}, err
	}

	ch := t.store.rowLock(id)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return Wallet{}, fmt.Errorf("lock wallet %s: %w", id, ctx.Err())
	}
	t.held[id] = ch
	return t.wallet(id)
}

func (t *inMemoryTx) wallet(id uuid.UUID) (Wallet, error) {
	if w, ok := t.wallets[id]; ok {
		return w, nil
	}
	return t.store.FindWallet(context.Background(), id)
}

func (t *inMemoryTx) InsertWallet(ctx context.Context, w Wallet) error {
	if _, ok := t.wallets[w.ID]; ok {
		return fmt.Errorf("wallet %s already exists", w.ID)
	}
	if _, err := t.store.FindWallet(ctx, w.ID); err == nil {
		return fmt.Errorf("wallet %s already exists", w.ID)
	}
	t.wallets[w.ID] = w
	return nil
}

func (t *inMemoryTx) SaveWallet(ctx context.Context, w Wallet) error {
	if _, err := t.wallet(w.ID); err != nil {
		return err
	}
	t.wallets[w.ID] = w
	return nil
}

func (t *inMemoryTx) CreateTransaction(ctx context.Context, txn Transaction) error {
	k := tripleOf(txn)
	if _, mine := t.keys[k]; mine {
		return ErrDuplicateTransaction
	}
	s := t.store
	for {
		s.mu.Lock()
		if _, exists := s.keys[k]; exists {
			s.mu.Unlock()
			return ErrDuplicateTransaction
		}
		wait, busy := s.reserved[k]
		if !busy {
			s.reserved[k] = make(chan struct{})
			s.mu.Unlock()
			break
		}
		s.mu.Unlock()
		// another unit holds the key; wait for its outcome like a unique index would
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.keys[k] = txn.ID
	t.transactions[txn.ID] = txn
	return nil
}

func (t *inMemoryTx) UpdateTransaction(ctx context.Context, txn Transaction) error {
	if _, err := t.LoadTransaction(ctx, txn.ID); err != nil {
		return err
	}
	t.transactions[txn.ID] = txn
	return nil
}

func (t *inMemoryTx) LoadTransaction(ctx context.Context, id uuid.UUID) (Transaction, error) {
	if txn, ok := t.transactions[id]; ok {
		return txn, nil
	}
	return t.store.LoadTransaction(ctx, id)
}

func (t *inMemoryTx) CreateEntries(_ context.Context, entries ...Entry) error {
	t.entries = append(t.entries, entries...)
	return nil
}

func (t *inMemoryTx) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}

func (t *inMemoryTx) commit() {
	s := t.store
	s.mu.Lock()
	for id, w := range t.wallets {
		s.wallets[id] = w
	}
	for id, txn := range t.transactions {
		s.transactions[id] = txn
	}
	for k, id := range t.keys {
		s.keys[k] = id
	}
	for _, e := range t.entries {
		s.seq++
		e.Seq = s.seq
		s.entries = append(s.entries, e)
	}
	t.releaseKeys()
	s.mu.Unlock()
	t.releaseLocks()
}

func (t *inMemoryTx) rollback() {
	t.store.mu.Lock()
	t.releaseKeys()
	t.store.mu.Unlock()
	t.releaseLocks()
}

// releaseKeys must be called with store.mu held.
func (t *inMemoryTx) releaseKeys() {
	for k := range t.keys {
		if ch, ok := t.store.reserved[k]; ok {
			close(ch)
			delete(t.store.reserved, k)
		}
	}
	t.keys = map[idempotencyTriple]uuid.UUID{}
}

func (t *inMemoryTx) releaseLocks() {
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}
