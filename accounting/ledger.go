/*
ledger.go - Balance and history queries over the append-only entry log

PURPOSE:
  Ledger answers the point-in-time and range questions the lending core asks
  (the Adapter interface), and posts balanced journals. Balances are always
  derived by replaying entries; there is no stored balance column that can
  drift from the history.

QUERIES:
  CurrentAccountBalance:            replay all entries, signed by account type
  SumMatchingEntriesSinceDate:      sum of entry amounts with an exact message
                                    match, from the start of a day onwards
  DateOfOldestEntryContainingMessage: first entry whose message contains a tag
                                    as whole segments ("loan-1" never matches
                                    inside "xloan-1")

MESSAGES:
  Every journal carries a message tagging it with the action that produced
  it (for example "loan-1.case-7.DISBURSE"). Accrual and charge history is
  recovered by message, not by account alone, because several actions post
  to the same account.

SEE ALSO:
  - store.go: Persistence interface
  - lending/running_balances.go: The consumer of Adapter
*/
package accounting

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/lending-engine/calendar"
)

// =============================================================================
// ADAPTER - What the lending core needs from the ledger
// =============================================================================

// Adapter is the read surface of the ledger.
type Adapter interface {
	// CurrentAccountBalance returns the account balance now.
	CurrentAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// SumMatchingEntriesSinceDate sums the amounts of entries on accountID
	// whose message equals message, posted on or after since.
	SumMatchingEntriesSinceDate(ctx context.Context, accountID string, since calendar.Date, message string) (decimal.Decimal, error)

	// DateOfOldestEntryContainingMessage returns the transaction date of the
	// oldest entry whose message contains message as whole segments: the
	// bytes around the match must not be letters, digits, '-' or '_'.
	// ok is false if none exists.
	DateOfOldestEntryContainingMessage(ctx context.Context, accountID string, message string) (at time.Time, ok bool, err error)
}

// =============================================================================
// LEDGER - Adapter implementation using Store
// =============================================================================

type Ledger struct {
	Store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store}
}

var _ Adapter = (*Ledger)(nil)

func (l *Ledger) CurrentAccountBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	account, err := l.Store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	entries, err := l.Store.LoadEntries(ctx, accountID, time.Time{})
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, e := range entries {
		balance = balance.Add(e.signedFor(account.Type))
	}
	return balance, nil
}

func (l *Ledger) SumMatchingEntriesSinceDate(ctx context.Context, accountID string, since calendar.Date, message string) (decimal.Decimal, error) {
	if _, err := l.Store.GetAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	entries, err := l.Store.LoadEntries(ctx, accountID, since.StartOfDay())
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, e := range entries {
		if e.Message == message {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

func (l *Ledger) DateOfOldestEntryContainingMessage(ctx context.Context, accountID string, message string) (time.Time, bool, error) {
	if _, err := l.Store.GetAccount(ctx, accountID); err != nil {
		return time.Time{}, false, err
	}
	entries, err := l.Store.LoadEntries(ctx, accountID, time.Time{})
	if err != nil {
		return time.Time{}, false, err
	}

	for _, e := range entries {
		if containsTag(e.Message, message) {
			return e.TransactionDate, true, nil
		}
	}
	return time.Time{}, false, nil
}

func containsTag(message, tag string) bool {
	for from := 0; from <= len(message); {
		i := strings.Index(message[from:], tag)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(tag)
		if (start == 0 || !isTagByte(message[start-1])) && (end == len(message) || !isTagByte(message[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_'
}

// =============================================================================
// POSTING
// =============================================================================

// Post validates a journal and appends its entries atomically.
//
// Validation:
//   - every posting amount is positive
//   - debits equal credits
//   - every account exists
//   - the transaction identifier has not been posted before
func (l *Ledger) Post(ctx context.Context, journal Journal) error {
	for _, p := range append(append([]Posting{}, journal.Debtors...), journal.Creditors...) {
		if !p.Amount.IsPositive() {
			return ErrInvalidPosting
		}
		if _, err := l.Store.GetAccount(ctx, p.AccountID); err != nil {
			return err
		}
	}

	debits, credits := journal.totals()
	if !debits.Equal(credits) {
		return &UnbalancedJournalError{
			TransactionIdentifier: journal.TransactionIdentifier,
			Debits:                debits,
			Credits:               credits,
		}
	}

	if journal.TransactionIdentifier == "" {
		journal.TransactionIdentifier = uuid.NewString()
	} else {
		exists, err := l.Store.Exists(ctx, journal.TransactionIdentifier)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}

	entries := make([]Entry, 0, len(journal.Debtors)+len(journal.Creditors))
	add := func(side Side, postings []Posting) {
		for _, p := range postings {
			entries = append(entries, Entry{
				ID:              uuid.NewString(),
				AccountID:       p.AccountID,
				Side:            side,
				Amount:          p.Amount,
				Message:         journal.Message,
				TransactionDate: journal.TransactionDate.UTC(),
				JournalID:       journal.TransactionIdentifier,
			})
		}
	}
	add(Debit, journal.Debtors)
	add(Credit, journal.Creditors)

	return l.Store.AppendBatch(ctx, journal.TransactionIdentifier, entries)
}
