/*
errors.go - Error types for cost-component evaluation

ERROR CATEGORIES:
  1. Conflict - The request contradicts the case (disbursing over the maximum)
  2. Configuration - A required designator has no account mapping
  3. Internal - Ledger history is inconsistent (no start of term)

  Ledger and repository errors are returned unchanged; nothing here retries.

USAGE:
  builder, err := svc.GetPaymentBuilder(ctx, dc, &size, today, balances)
  switch {
  case lending.IsConflict(err):
      // reject the request
  case lending.IsConfigurationError(err), lending.IsInternal(err):
      // fail the evaluation
  }
*/
package lending

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConflict is returned when a request contradicts the case's limits.
	ErrConflict = errors.New("conflict")

	// ErrDesignatorNotMapped is returned when a required designator has no
	// account assignment on the case or its product.
	ErrDesignatorNotMapped = errors.New("designator not mapped")

	// ErrInternal is returned when ledger history violates an invariant.
	ErrInternal = errors.New("internal error")

	ErrProductNotFound = errors.New("product not found")
	ErrCaseNotFound    = errors.New("case not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ExceedsMaximumBalanceError is returned when a disbursal would take the
// principal balance past the case's balance-range maximum.
type ExceedsMaximumBalanceError struct {
	Current   decimal.Decimal
	Requested decimal.Decimal
	Maximum   decimal.Decimal
}

func (e *ExceedsMaximumBalanceError) Error() string {
	return fmt.Sprintf("cannot disburse over the maximum balance: current %s, requested %s, maximum %s",
		e.Current, e.Requested, e.Maximum)
}

func (e *ExceedsMaximumBalanceError) Unwrap() error {
	return ErrConflict
}

type UnmappedDesignatorError struct {
	Designator string
}

func (e *UnmappedDesignatorError) Error() string {
	return fmt.Sprintf("no account assigned to designator %q", e.Designator)
}

func (e *UnmappedDesignatorError) Unwrap() error {
	return ErrDesignatorNotMapped
}

// StartOfTermError is returned when a case has no disbursal on its principal
// account, so its term has no anchor date.
type StartOfTermError struct {
	CaseIdentifier string
}

func (e *StartOfTermError) Error() string {
	return fmt.Sprintf("no start of term found for case %q", e.CaseIdentifier)
}

func (e *StartOfTermError) Unwrap() error {
	return ErrInternal
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConflict returns true if the request was rejected against the case's limits.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsConfigurationError returns true if the product or case is misconfigured.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrDesignatorNotMapped)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

// IsNotFound returns true if a referenced product or case doesn't exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrCaseNotFound)
}
