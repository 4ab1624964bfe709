/*
Package accounting is the ledger backend the lending core reads balances from.

PURPOSE:
  The ledger is the authoritative, slow source of truth for account balances
  and posting history. The lending core never writes here while computing
  cost components; it only asks three questions:
    - What is the current balance of account A?
    - What is the sum of entries on A tagged with message M since date D?
    - When was the oldest entry on A whose message contains M?

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A chart-of-accounts slot with a type (asset, liability, ...)
  - Entry: One side of a posting on one account (debit or credit)
  - Journal: A balanced set of debits and credits posted together

DESIGN PRINCIPLES:
  1. Append-only: Entries are never modified, corrections are new journals
  2. Precision: decimal.Decimal for every amount
  3. Entry amounts are always positive; the side carries the direction

SEE ALSO:
  - ledger.go: Adapter queries and journal posting
  - store.go: Persistence interface
  - store/sqlite/sqlite.go: Production implementation
*/
package accounting

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

// IsDebitNormal is true for account types whose balance grows with debits.
func (t AccountType) IsDebitNormal() bool {
	return t == Asset || t == Expense
}

type Account struct {
	Identifier string
	Name       string
	Type       AccountType
}

// =============================================================================
// ENTRIES
// =============================================================================

type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// Entry is one account's side of a journal. Amount is always positive.
type Entry struct {
	ID              string
	AccountID       string
	Side            Side
	Amount          decimal.Decimal
	Message         string
	TransactionDate time.Time
	JournalID       string
}

// signedFor returns the entry amount signed for an account of type t.
func (e Entry) signedFor(t AccountType) decimal.Decimal {
	if (e.Side == Debit) == t.IsDebitNormal() {
		return e.Amount
	}
	return e.Amount.Neg()
}

// =============================================================================
// JOURNAL - Balanced posting
// =============================================================================

// Posting is one line of a journal.
type Posting struct {
	AccountID string
	Amount    decimal.Decimal
}

// Journal groups debits and credits that must sum to the same amount.
// TransactionIdentifier doubles as the idempotency key.
type Journal struct {
	TransactionIdentifier string
	TransactionDate       time.Time
	Message               string
	Debtors               []Posting
	Creditors             []Posting
}

func (j Journal) totals() (debits, credits decimal.Decimal) {
	for _, p := range j.Debtors {
		debits = debits.Add(p.Amount)
	}
	for _, p := range j.Creditors {
		credits = credits.Add(p.Amount)
	}
	return debits, credits
}
