package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/walletd/internal/money"
)

const uniqueViolation = "23505"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists wallets, transactions and journal entries in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunInTx opens a read-committed transaction; wallet rows are serialized with FOR UPDATE.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	ptx := &postgresTx{tx: tx}
	if err := fn(ctx, ptx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, hook := range ptx.hooks {
		hook(ctx)
	}
	return nil
}

func (s *PostgresStore) FindWallet(ctx context.Context, id uuid.UUID) (Wallet, error) {
	return scanWallet(s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id), id)
}

func (s *PostgresStore) ListWallets(ctx context.Context, customerID string, currency money.Currency) ([]Wallet, error) {
	rows, err := s.db.Query(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE customer_id = $1 AND ($2::text = '' OR currency = $2::text)
        ORDER BY created_at, id`, customerID, string(currency))
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []Wallet
	for rows.Next() {
		w, err := scanWallet(rows, uuid.Nil)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindTransaction(ctx context.Context, walletID uuid.UUID, idempotencyKey string, typ Type) (Transaction, bool, error) {
	t, err := scanTransaction(s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE wallet_id = $1 AND idempotency_key = $2 AND type = $3`, walletID, idempotencyKey, string(typ)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, false, nil
	}
	if err != nil {
		return Transaction{}, false, fmt.Errorf("find transaction: %w", err)
	}
	return t, true, nil
}

func (s *PostgresStore) LoadTransaction(ctx context.Context, id uuid.UUID) (Transaction, error) {
	return loadTransaction(ctx, s.db, id, false)
}

func (s *PostgresStore) EntriesBefore(ctx context.Context, walletID uuid.UUID, at time.Time) ([]Entry, error) {
	return queryEntries(ctx, s.db, `SELECT `+entryColumns+` FROM entries
        WHERE wallet_id = $1 AND created_at < $2
        ORDER BY created_at, seq`, walletID, at.UTC())
}

func (s *PostgresStore) EntriesForTransaction(ctx context.Context, transactionID uuid.UUID) ([]Entry, error) {
	return queryEntries(ctx, s.db, `SELECT `+entryColumns+` FROM entries
        WHERE transaction_id = $1
        ORDER BY created_at, seq`, transactionID)
}

func (s *PostgresStore) StalePending(ctx context.Context, before time.Time, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions
        WHERE type = $1 AND status = $2 AND created_at < $3
        ORDER BY created_at
        LIMIT $4`, string(TypeTransfer), string(StatusPending), before.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("stale pending: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type postgresTx struct {
	tx    pgx.Tx
	hooks []func(ctx context.Context)
}

func (t *postgresTx) LockWallet(ctx context.Context, id uuid.UUID) (Wallet, error) {
	return scanWallet(t.tx.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id), id)
}

func (t *postgresTx) InsertWallet(ctx context.Context, w Wallet) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO wallets (id, customer_id, balance, currency, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		w.ID, w.CustomerID, w.Balance, string(w.Currency), w.Active, w.CreatedAt.UTC(), w.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (t *postgresTx) SaveWallet(ctx context.Context, w Wallet) error {
	tag, err := t.tx.Exec(ctx, `UPDATE wallets SET balance = $2, active = $3, updated_at = $4 WHERE id = $1`,
		w.ID, w.Balance, w.Active, w.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return WalletNotFound(w.ID)
	}
	return nil
}

func (t *postgresTx) CreateTransaction(ctx context.Context, txn Transaction) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO transactions
        (id, wallet_id, destination_wallet_id, idempotency_key, amount, type, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		txn.ID, txn.WalletID, nullableUUID(txn.DestinationWalletID), txn.IdempotencyKey, txn.Amount,
		string(txn.Type), string(txn.Status), txn.CreatedAt.UTC(), txn.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateTransaction
		}
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (t *postgresTx) UpdateTransaction(ctx context.Context, txn Transaction) error {
	tag, err := t.tx.Exec(ctx, `UPDATE transactions SET status = $2, updated_at = $3 WHERE id = $1`,
		txn.ID, string(txn.Status), txn.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return TransactionNotFound(txn.ID)
	}
	return nil
}

func (t *postgresTx) LoadTransaction(ctx context.Context, id uuid.UUID) (Transaction, error) {
	return loadTransaction(ctx, t.tx, id, true)
}

func (t *postgresTx) CreateEntries(ctx context.Context, entries ...Entry) error {
	for _, e := range entries {
		if _, err := t.tx.Exec(ctx, `INSERT INTO entries (id, wallet_id, transaction_id, amount, financial_type, created_at)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, e.WalletID, e.TransactionID, e.Amount, string(e.FinancialType), e.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}
	}
	return nil
}

func (t *postgresTx) AfterCommit(fn func(ctx context.Context)) {
	t.hooks = append(t.hooks, fn)
}

const (
	walletColumns      = `id, customer_id, balance, currency, active, created_at, updated_at`
	transactionColumns = `id, wallet_id, destination_wallet_id, idempotency_key, amount, type, status, created_at, updated_at`
	entryColumns       = `id, seq, wallet_id, transaction_id, amount, financial_type, created_at`
)

func scanWallet(row pgx.Row, id uuid.UUID) (Wallet, error) {
	var w Wallet
	var currency string
	if err := row.Scan(&w.ID, &w.CustomerID, &w.Balance, &currency, &w.Active, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, WalletNotFound(id)
		}
		return Wallet{}, fmt.Errorf("scan wallet: %w", err)
	}
	w.Currency = money.Currency(currency)
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var dest *uuid.UUID
	var typ, status string
	if err := row.Scan(&t.ID, &t.WalletID, &dest, &t.IdempotencyKey, &t.Amount, &typ, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if dest != nil {
		t.DestinationWalletID = *dest
	}
	t.Type = Type(typ)
	t.Status = Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func loadTransaction(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTransaction(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, TransactionNotFound(id)
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("load transaction: %w", err)
	}
	return t, nil
}

func queryEntries(ctx context.Context, q querier, query string, args ...any) ([]Entry, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ft string
		if err := rows.Scan(&e.ID, &e.Seq, &e.WalletID, &e.TransactionID, &e.Amount, &ft, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.FinancialType = FinancialType(ft)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
