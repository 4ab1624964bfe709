/*
Package sqlite keeps the ledger and the lending repositories in one SQLite file.

PURPOSE:
  Implements the ledger store and every repository the lending core reads
  from, using SQLite. In production, the same patterns apply to PostgreSQL -
  only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  accounting.Store:                   Accounts and the append-only entry log
  lending.ProductRepository:          Products and their account assignments
  lending.CaseRepository:             Cases and their account assignments
  lending.ChargeDefinitionRepository: Ordered charge definitions per product
  lending.LossProvisionRepository:    Loss provisioning steps per product
  lending.TaskInstanceRepository:     Task definitions and case task instances

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on entries or journals
  - No DELETE statements on entries or journals (except Reset)
  - Corrections are new journals

KEY TABLES:
  accounts:           Chart of accounts
  journals:           One row per posted journal (the idempotency key)
  entries:            Immutable debit/credit lines
  products, cases:    Loan products and their cases
  *_assignments:      Designator -> account mappings
  charge_definitions: Ordered by position within a product
  task_definitions, task_instances

INDEXES:
  - idx_entries_account_date: Balance and range queries (hot path)
  - idx_entries_message:      Message lookups for accrual history

CONCURRENCY:
  A sync.RWMutex serializes writers; readers share. Each multi-row write
  runs in one SQL transaction.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.
  The pool is limited to one connection so ":memory:" databases are shared.

USAGE:
  store, err := sqlite.New("./data/lending.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := accounting.NewLedger(store)

MIGRATION:
  New() creates missing tables and indexes. There are no versioned
  migrations yet; columns are only ever added.

SEE ALSO:
  - accounting/store.go: Ledger store interface
  - accounting/store/memory.go: In-memory implementation for testing
  - lending/context.go, lending/charges.go: Repository interfaces
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Chart of accounts
	CREATE TABLE IF NOT EXISTS accounts (
		identifier TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL
	);

	-- Journals (one per posting; the id doubles as the idempotency key)
	CREATE TABLE IF NOT EXISTS journals (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);

	-- Entries (append-only)
	CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		account_id TEXT NOT NULL REFERENCES accounts(identifier),
		side TEXT NOT NULL,
		amount TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		transaction_date TEXT NOT NULL,
		journal_id TEXT NOT NULL
	);

	-- Balance and range queries (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_account_date
		ON entries(account_id, transaction_date, seq);
	CREATE INDEX IF NOT EXISTS idx_entries_message
		ON entries(account_id, message);

	-- Products
	CREATE TABLE IF NOT EXISTS products (
		identifier TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		minor_currency_unit_digits INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS product_account_assignments (
		product_id TEXT NOT NULL REFERENCES products(identifier),
		designator TEXT NOT NULL,
		account_id TEXT NOT NULL,
		PRIMARY KEY (product_id, designator)
	);

	-- Cases
	CREATE TABLE IF NOT EXISTS cases (
		product_id TEXT NOT NULL REFERENCES products(identifier),
		identifier TEXT NOT NULL,
		current_state TEXT NOT NULL DEFAULT '',
		customer_identifier TEXT NOT NULL DEFAULT '',
		balance_range_maximum TEXT NOT NULL,
		payment_size TEXT NOT NULL,
		interest TEXT NOT NULL,
		term_unit TEXT NOT NULL,
		term_maximum INTEGER NOT NULL,
		cycle_unit TEXT NOT NULL,
		cycle_period INTEGER NOT NULL,
		PRIMARY KEY (product_id, identifier)
	);

	CREATE TABLE IF NOT EXISTS case_account_assignments (
		product_id TEXT NOT NULL,
		case_id TEXT NOT NULL,
		designator TEXT NOT NULL,
		account_id TEXT NOT NULL,
		PRIMARY KEY (product_id, case_id, designator)
	);

	-- Charge definitions (ordered per product)
	CREATE TABLE IF NOT EXISTS charge_definitions (
		product_id TEXT NOT NULL REFERENCES products(identifier),
		identifier TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		accrue_action TEXT,
		charge_action TEXT NOT NULL,
		charge_method TEXT NOT NULL,
		amount TEXT NOT NULL,
		proportional_to TEXT NOT NULL DEFAULT '',
		from_designator TEXT NOT NULL DEFAULT '',
		to_designator TEXT NOT NULL DEFAULT '',
		accrual_designator TEXT NOT NULL DEFAULT '',
		read_only BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (product_id, identifier)
	);

	-- Loss provisioning
	CREATE TABLE IF NOT EXISTS loss_provision_steps (
		product_id TEXT NOT NULL REFERENCES products(identifier),
		days_late INTEGER NOT NULL,
		percentage TEXT NOT NULL,
		PRIMARY KEY (product_id, days_late)
	);

	-- Tasks
	CREATE TABLE IF NOT EXISTS task_definitions (
		product_id TEXT NOT NULL REFERENCES products(identifier),
		identifier TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		actions_json TEXT NOT NULL DEFAULT '[]',
		four_eyes BOOLEAN NOT NULL DEFAULT FALSE,
		mandatory BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (product_id, identifier)
	);

	CREATE TABLE IF NOT EXISTS task_instances (
		product_id TEXT NOT NULL,
		case_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		executed_on TEXT,
		executed_by TEXT,
		PRIMARY KEY (product_id, case_id, task_id),
		FOREIGN KEY (product_id, task_id) REFERENCES task_definitions(product_id, identifier)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset deletes every row, children first.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"task_instances", "task_definitions", "loss_provision_steps", "charge_definitions",
		"case_account_assignments", "cases", "product_account_assignments", "products",
		"entries", "journals", "accounts",
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	for _, table := range tables {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return sqlTx.Commit()
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal in %s: %w", column, err)
	}
	return d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
