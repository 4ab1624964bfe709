package accounting

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface for ledger persistence (append-only)
// =============================================================================

// Store handles persistence of accounts and entries.
// Entries are APPEND-ONLY: there is no Update or Delete.
//
// Implementations:
//   - accounting/store/memory.go: In-memory, for tests and projections
//   - store/sqlite/sqlite.go: SQLite
type Store interface {
	// SaveAccount creates or replaces an account definition.
	SaveAccount(ctx context.Context, account Account) error

	// GetAccount returns the account or an *AccountNotFoundError.
	GetAccount(ctx context.Context, identifier string) (Account, error)

	// AppendBatch persists entries atomically. Either all succeed or none do.
	// Returns ErrDuplicateIdempotencyKey if idempotencyKey was already used.
	AppendBatch(ctx context.Context, idempotencyKey string, entries []Entry) error

	// LoadEntries returns the account's entries with TransactionDate >= since,
	// ordered by TransactionDate ascending. A zero since loads everything.
	LoadEntries(ctx context.Context, accountID string, since time.Time) ([]Entry, error)

	// Exists checks if an idempotency key was already used.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
