package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/warp/lending-engine/accounting"
)

// =============================================================================
// LEDGER STORE (accounting.Store interface)
// =============================================================================

var _ accounting.Store = (*Store)(nil)

// SaveAccount creates or replaces an account.
func (s *Store) SaveAccount(ctx context.Context, account accounting.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (identifier, name, type) VALUES (?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET name = excluded.name, type = excluded.type
	`
	if _, err := s.db.ExecContext(ctx, query, account.Identifier, account.Name, string(account.Type)); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, identifier string) (accounting.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getAccount(ctx, s.db, identifier)
}

func getAccount(ctx context.Context, db interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, identifier string) (accounting.Account, error) {
	var (
		account     accounting.Account
		accountType string
	)
	err := db.QueryRowContext(ctx,
		"SELECT identifier, name, type FROM accounts WHERE identifier = ?",
		identifier,
	).Scan(&account.Identifier, &account.Name, &accountType)
	if errors.Is(err, sql.ErrNoRows) {
		return accounting.Account{}, &accounting.AccountNotFoundError{AccountID: identifier}
	}
	if err != nil {
		return accounting.Account{}, fmt.Errorf("failed to get account: %w", err)
	}
	account.Type = accounting.AccountType(accountType)
	return account, nil
}

// AppendBatch adds the entries of one journal atomically. The idempotency key
// is recorded in the journals table; a repeated key fails with
// accounting.ErrDuplicateIdempotencyKey and nothing is written.
func (s *Store) AppendBatch(ctx context.Context, idempotencyKey string, entries []accounting.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if idempotencyKey != "" {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO journals (id, created_at) VALUES (?, ?)",
			idempotencyKey, formatTime(time.Now()),
		)
		if isUniqueConstraintError(err) {
			return accounting.ErrDuplicateIdempotencyKey
		}
		if err != nil {
			return fmt.Errorf("failed to record journal: %w", err)
		}
	}

	for _, e := range entries {
		if _, err := getAccount(ctx, sqlTx, e.AccountID); err != nil {
			return err
		}
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO entries (id, account_id, side, amount, message, transaction_date, journal_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			e.ID,
			e.AccountID,
			string(e.Side),
			e.Amount.String(),
			e.Message,
			formatTime(e.TransactionDate),
			e.JournalID,
		)
		if err != nil {
			return fmt.Errorf("failed to append entry: %w", err)
		}
	}

	return sqlTx.Commit()
}

// LoadEntries returns the entries of an account dated on or after since,
// oldest first. Entries with the same date keep their insertion order.
func (s *Store) LoadEntries(ctx context.Context, accountID string, since time.Time) ([]accounting.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, account_id, side, amount, message, transaction_date, journal_id
		FROM entries
		WHERE account_id = ? AND transaction_date >= ?
		ORDER BY transaction_date ASC, seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, accountID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []accounting.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM journals WHERE id = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

func scanEntry(rows *sql.Rows) (accounting.Entry, error) {
	var (
		e               accounting.Entry
		side            string
		amount          string
		transactionDate string
	)

	err := rows.Scan(&e.ID, &e.AccountID, &side, &amount, &e.Message, &transactionDate, &e.JournalID)
	if err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.Side = accounting.Side(side)
	if e.Amount, err = parseDecimal("entries.amount", amount); err != nil {
		return e, err
	}
	if e.TransactionDate, err = parseTime(transactionDate); err != nil {
		return e, fmt.Errorf("invalid entries.transaction_date: %w", err)
	}
	return e, nil
}
