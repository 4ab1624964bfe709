package lending_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/lending-engine/accounting"
	"github.com/warp/lending-engine/calendar"
	"github.com/warp/lending-engine/lending"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// fakeLedger is an accounting.Adapter with canned answers and call counts.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal // account -> balance
	sums     map[string]decimal.Decimal // account|message -> sum
	oldest   map[string]time.Time       // account|message -> date
	err      error

	balanceCalls map[string]int
	sumCalls     int
	oldestCalls  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances:     make(map[string]decimal.Decimal),
		sums:         make(map[string]decimal.Decimal),
		oldest:       make(map[string]time.Time),
		balanceCalls: make(map[string]int),
	}
}

var _ accounting.Adapter = (*fakeLedger)(nil)

func (f *fakeLedger) setBalance(account, amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] = dec(amount)
}

func (f *fakeLedger) setSum(account, message, amount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sums[account+"|"+message] = dec(amount)
}

func (f *fakeLedger) setOldest(account, message string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oldest[account+"|"+message] = at
}

func (f *fakeLedger) totalBalanceCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.balanceCalls {
		total += n
	}
	return total
}

func (f *fakeLedger) CurrentAccountBalance(_ context.Context, accountID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls[accountID]++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.balances[accountID], nil
}

func (f *fakeLedger) SumMatchingEntriesSinceDate(_ context.Context, accountID string, _ calendar.Date, message string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sumCalls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.sums[accountID+"|"+message], nil
}

func (f *fakeLedger) DateOfOldestEntryContainingMessage(_ context.Context, accountID string, message string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oldestCalls++
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	at, ok := f.oldest[accountID+"|"+message]
	return at, ok, nil
}

// fakeClock is advanced by hand.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// chargeRepo serves a fixed list of definitions and counts reads.
type chargeRepo struct {
	definitions []lending.ChargeDefinition
	calls       int
	err         error
}

func (r *chargeRepo) FindChargeDefinitions(_ context.Context, _ string) ([]lending.ChargeDefinition, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return append([]lending.ChargeDefinition(nil), r.definitions...), nil
}

type provisionRepo struct {
	steps []lending.LossProvisionStep
	err   error
}

func (r *provisionRepo) FindLossProvisionSteps(_ context.Context, _ string) ([]lending.LossProvisionStep, error) {
	return r.steps, r.err
}

// loan1 is product "loan-1", case "case-1": maximum 1000.00, 10% interest,
// twelve monthly repayments, 2 minor-unit digits.
func loan1() lending.DataContextOfAction {
	assignments := map[string]string{
		lending.DesignatorEntry:                 "9100",
		lending.DesignatorCustomerLoanPrincipal: "7010",
		lending.DesignatorCustomerLoanInterest:  "7011",
		lending.DesignatorCustomerLoanFees:      "7012",
		lending.DesignatorLoanFundsSource:       "7300",
		lending.DesignatorProcessingFeeIncome:   "1310",
		lending.DesignatorDisbursementFeeIncome: "1320",
		lending.DesignatorInterestIncome:        "1100",
		lending.DesignatorInterestAccrual:       "7810",
		lending.DesignatorProductLossAllowance:  "7310",
		lending.DesignatorGeneralLossAllowance:  "3010",
	}
	return lending.DataContextOfAction{
		Product: lending.Product{
			Identifier:              "loan-1",
			Name:                    "Individual loan",
			MinorCurrencyUnitDigits: 2,
			AccountAssignments:      assignments,
		},
		Case: lending.Case{
			Identifier:        "case-1",
			ProductIdentifier: "loan-1",
			Parameters: lending.CaseParameters{
				CustomerIdentifier:  "alice",
				BalanceRangeMaximum: dec("1000.00"),
				PaymentSize:         dec("87.92"),
				Interest:            dec("10"),
				TermRange:           lending.TermRange{TemporalUnit: calendar.Months, Maximum: 12},
				PaymentCycle:        lending.PaymentCycle{TemporalUnit: calendar.Months, Period: 1},
			},
		},
	}
}
