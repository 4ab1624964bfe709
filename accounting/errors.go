package accounting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAccountNotFound is returned when a query names an unknown account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateIdempotencyKey is returned when a journal with the same
	// transaction identifier was already posted.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrUnbalancedJournal is returned when debits and credits differ.
	ErrUnbalancedJournal = errors.New("journal debits and credits differ")

	// ErrInvalidPosting is returned for non-positive posting amounts.
	ErrInvalidPosting = errors.New("posting amount must be positive")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

type UnbalancedJournalError struct {
	TransactionIdentifier string
	Debits                decimal.Decimal
	Credits               decimal.Decimal
}

func (e *UnbalancedJournalError) Error() string {
	return fmt.Sprintf("journal %s is unbalanced: debits %s, credits %s",
		e.TransactionIdentifier, e.Debits, e.Credits)
}

func (e *UnbalancedJournalError) Unwrap() error {
	return ErrUnbalancedJournal
}

// AccountNotFoundError names the missing account.
type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account not found: %s", e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrAccountNotFound
}
