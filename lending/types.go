/*
Package lending computes the cost components of loan actions.

PURPOSE:
  For one loan account (a case of a product), this package turns a proposed
  action (disbursing principal, applying interest, accepting a payment) into
  an ordered, rounded list of monetary line items. It combines the product's
  charge definitions, the case's balances and the ledger's accrual history.

KEY CONCEPTS IN THIS FILE (types.go):
  - Action: The kinds of things that happen to a loan (DISBURSE, ...)
  - Designator: A symbolic account role ("customer-loan-principal") mapped
    to a concrete ledger account per product and case
  - ChargeDefinition: A rule describing one fee, interest or principal
    movement, and which action triggers it
  - ScheduledAction: An action bound to a date (and optionally a period)
  - ScheduledCharge: A charge definition bound to a scheduled action
  - CostComponent: One output line item

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal everywhere, rounding only when a cost
     component is finalized
  2. Order: scheduled charges keep the order the resolver produced them in
  3. Snapshot: balances come from one RunningBalances per evaluation

SEE ALSO:
  - running_balances.go: Cached balance lookups
  - costcomponent.go: The cost-component math
  - disburse.go: The disbursement payment builder
*/
package lending

import (
	"github.com/shopspring/decimal"
	"github.com/warp/lending-engine/calendar"
)

// =============================================================================
// ACTIONS
// =============================================================================

type Action string

const (
	ActionOpen          Action = "OPEN"
	ActionApprove       Action = "APPROVE"
	ActionDisburse      Action = "DISBURSE"
	ActionApplyInterest Action = "APPLY_INTEREST"
	ActionAcceptPayment Action = "ACCEPT_PAYMENT"
	ActionMarkLate      Action = "MARK_LATE"
	ActionWriteOff      Action = "WRITE_OFF"
	ActionClose         Action = "CLOSE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionOpen, ActionApprove, ActionDisburse, ActionApplyInterest,
		ActionAcceptPayment, ActionMarkLate, ActionWriteOff, ActionClose:
		return true
	}
	return false
}

// =============================================================================
// ACCOUNT DESIGNATORS
// =============================================================================

const (
	// DesignatorEntry is the suspense account payments enter and leave through.
	// It is the only designator that may be left unmapped.
	DesignatorEntry = "entry"

	DesignatorCustomerLoanPrincipal = "customer-loan-principal"
	DesignatorCustomerLoanInterest  = "customer-loan-interest"
	DesignatorCustomerLoanFees      = "customer-loan-fees"
	DesignatorLoanFundsSource       = "loan-funds-source"
	DesignatorProcessingFeeIncome   = "processing-fee-income"
	DesignatorDisbursementFeeIncome = "disbursement-fee-income"
	DesignatorInterestIncome        = "interest-income"
	DesignatorInterestAccrual       = "interest-accrual"
	DesignatorProductLossAllowance  = "product-loss-allowance"
	DesignatorGeneralLossAllowance  = "general-loss-allowance"
)

// Values a charge can be proportional to besides a designator's balance.
const (
	ProportionalToMaximumBalance      = "{maximumbalance}"
	ProportionalToRunningBalance      = "{runningbalance}"
	ProportionalToPrincipalAdjustment = "{principaladjustment}"
	ProportionalToRepaymentSize       = "{repaymentsize}"
)

// =============================================================================
// CHARGE DEFINITIONS
// =============================================================================

type ChargeMethod string

const (
	ChargeFixed        ChargeMethod = "fixed"
	ChargeProportional ChargeMethod = "proportional"
	ChargeInterest     ChargeMethod = "interest"
)

// ChargeDefinition describes one component of a loan action.
//
// A charge with an AccrueAction is accrued on that action (moved into the
// accrual account) and applied on its ChargeAction. A charge without one is
// applied directly on its ChargeAction.
type ChargeDefinition struct {
	Identifier  string
	Name        string
	Description string

	AccrueAction Action // empty when the charge does not accrue
	ChargeAction Action

	ChargeMethod   ChargeMethod
	Amount         decimal.Decimal // fixed amount, or a percentage
	ProportionalTo string          // a designator or one of the ProportionalTo constants

	FromAccountDesignator    string
	ToAccountDesignator      string
	AccrualAccountDesignator string

	ReadOnly bool
}

func (c ChargeDefinition) Accrues() bool {
	return c.AccrueAction != ""
}

// =============================================================================
// SCHEDULES
// =============================================================================

// ScheduledAction is an action occurring on a date. ActionPeriod is the span
// the action covers (the days interest accrues over); RepaymentPeriod is the
// repayment period the action belongs to. Either may be nil.
type ScheduledAction struct {
	Action          Action
	When            calendar.Date
	ActionPeriod    *calendar.Period
	RepaymentPeriod *calendar.Period
}

type ScheduledCharge struct {
	ScheduledAction  ScheduledAction
	ChargeDefinition ChargeDefinition
}

// =============================================================================
// OUTPUT
// =============================================================================

// CostComponent is one line item of an action. PrincipalBearing components
// move principal; all others are fees or interest.
type CostComponent struct {
	ChargeIdentifier string
	Amount           decimal.Decimal
	PrincipalBearing bool
}

// =============================================================================
// PRODUCTS AND CASES
// =============================================================================

type Product struct {
	Identifier              string
	Name                    string
	MinorCurrencyUnitDigits int32
	AccountAssignments      map[string]string // designator -> account identifier
}

type TermRange struct {
	TemporalUnit calendar.TemporalUnit
	Maximum      int
}

type PaymentCycle struct {
	TemporalUnit calendar.TemporalUnit
	Period       int
}

type CaseParameters struct {
	CustomerIdentifier  string
	BalanceRangeMaximum decimal.Decimal
	PaymentSize         decimal.Decimal
	Interest            decimal.Decimal // annual percentage, e.g. 10 for 10%
	TermRange           TermRange
	PaymentCycle        PaymentCycle
}

type Case struct {
	Identifier         string
	ProductIdentifier  string
	CurrentState       string
	Parameters         CaseParameters
	AccountAssignments map[string]string // overrides the product's
}
