/*
costcomponent.go - Cost-component math

PURPOSE:
  Pure computation turning scheduled charges into amounts, and a
  disbursement into the level installment that amortizes it.

AMOUNTS:
  fixed:         the definition's amount
  proportional:  base * amount / 100
  interest:      base * rate / 100 * days / 365, days from the action period
                 (1 if the action has none)

  The base is chosen by ProportionalTo:
    {maximumbalance}      the case's balance-range maximum
    {runningbalance}      the current principal balance
    {principaladjustment} the disbursal; on repayment, the requested
                          repayment less the fees before it (floored at 0)
    {repaymentsize}       the contractual installment
    anything else         the balance of that designator

  A charge that accrues is, when charged outside a disbursement, the amount
  accrued since the start of term less the amount already applied.

PRINCIPAL:
  A charge is principal-bearing when it moves money into the principal
  account on a disbursement, or out of it on any other action. It is priced
  like any other charge; the standard disbursement charge is 100% of
  {principaladjustment}, so principal components sum to the disbursal.

SEE ALSO:
  - payment_builder.go: Accumulation and rounding
  - disburse.go: The disbursement entry point
*/
package lending

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/lending-engine/calendar"
)

const (
	daysInYear = 365

	// Intermediate precision for the level-payment discount factors.
	levelPaymentPrecision = 24
)

var hundred = decimal.NewFromInt(100)

// CostComponentInput gathers everything GetCostComponentsForScheduledCharges
// reads. Only the balances are queried; everything else is a plain value.
type CostComponentInput struct {
	ScheduledCharges []ScheduledCharge
	MaximumBalance   decimal.Decimal
	RunningBalances  RunningBalances
	DataContext      DataContextOfAction

	ContractualRepayment  decimal.Decimal
	RequestedDisbursement decimal.Decimal
	RequestedRepayment    decimal.Decimal

	Interest                decimal.Decimal
	MinorCurrencyUnitDigits int32

	// Disbursement marks the evaluation of a DISBURSE action.
	Disbursement bool
}

// GetCostComponentsForScheduledCharges evaluates every scheduled charge in
// order and returns the finalized builder. On error no builder is returned.
func GetCostComponentsForScheduledCharges(ctx context.Context, in CostComponentInput) (*PaymentBuilder, error) {
	b := newPaymentBuilder(in.MinorCurrencyUnitDigits)

	var startOfTerm *calendar.Date
	feesSoFar := decimal.Zero

	for _, sc := range in.ScheduledCharges {
		def := sc.ChargeDefinition
		principalBearing := isPrincipalBearing(def, in.Disbursement)

		var amount decimal.Decimal
		switch {
		case isChargeOfAccrual(sc, in.Disbursement):
			if startOfTerm == nil {
				start, err := in.RunningBalances.GetStartOfTermOrThrow(ctx, in.DataContext)
				if err != nil {
					return nil, err
				}
				startOfTerm = &start
			}
			accrued, err := in.RunningBalances.GetAccruedBalanceForCharge(ctx, in.DataContext, *startOfTerm, def)
			if err != nil {
				return nil, err
			}
			amount = accrued

		default:
			base, err := proportionalBase(ctx, in, def, feesSoFar)
			if err != nil {
				return nil, err
			}
			amount = chargeAmount(def, base, in.Interest, sc.ScheduledAction)
		}

		if !principalBearing {
			feesSoFar = feesSoFar.Add(amount)
		}
		b.add(def.Identifier, amount, principalBearing)
		moveForCharge(b, sc, amount)
	}

	b.finalize()
	return b, nil
}

func isPrincipalBearing(def ChargeDefinition, disbursement bool) bool {
	if disbursement {
		return def.ToAccountDesignator == DesignatorCustomerLoanPrincipal
	}
	return def.FromAccountDesignator == DesignatorCustomerLoanPrincipal
}

// isChargeOfAccrual is true when an accruing charge is being applied, so its
// amount comes from the accrual history rather than the formula.
func isChargeOfAccrual(sc ScheduledCharge, disbursement bool) bool {
	def := sc.ChargeDefinition
	return !disbursement && def.Accrues() && sc.ScheduledAction.Action == def.ChargeAction
}

func proportionalBase(ctx context.Context, in CostComponentInput, def ChargeDefinition, feesSoFar decimal.Decimal) (decimal.Decimal, error) {
	if def.ChargeMethod == ChargeFixed {
		return decimal.Zero, nil
	}
	switch def.ProportionalTo {
	case ProportionalToMaximumBalance:
		return in.MaximumBalance, nil
	case ProportionalToRunningBalance:
		return in.RunningBalances.GetBalance(ctx, DesignatorCustomerLoanPrincipal)
	case ProportionalToPrincipalAdjustment:
		if in.Disbursement {
			return in.RequestedDisbursement, nil
		}
		return decimal.Max(in.RequestedRepayment.Sub(feesSoFar), decimal.Zero), nil
	case ProportionalToRepaymentSize:
		return in.ContractualRepayment, nil
	case "":
		return decimal.Zero, nil
	default:
		return in.RunningBalances.GetBalance(ctx, def.ProportionalTo)
	}
}

func chargeAmount(def ChargeDefinition, base, interest decimal.Decimal, action ScheduledAction) decimal.Decimal {
	switch def.ChargeMethod {
	case ChargeFixed:
		return def.Amount
	case ChargeProportional:
		return base.Mul(def.Amount).Div(hundred)
	case ChargeInterest:
		days := 1
		if action.ActionPeriod != nil {
			days = action.ActionPeriod.Days()
		}
		return base.Mul(interest).Mul(decimal.NewFromInt(int64(days))).
			Div(hundred.Mul(decimal.NewFromInt(daysInYear)))
	default:
		return decimal.Zero
	}
}

// moveForCharge records the balance movement of one scheduled charge.
// An accruing charge moves into its accrual account when accrued and out of
// it when applied; other charges move straight from their source to target.
func moveForCharge(b *PaymentBuilder, sc ScheduledCharge, amount decimal.Decimal) {
	def := sc.ChargeDefinition
	if !def.Accrues() {
		b.move(def.FromAccountDesignator, def.ToAccountDesignator, amount)
		return
	}
	switch sc.ScheduledAction.Action {
	case def.AccrueAction:
		b.move(def.FromAccountDesignator, def.AccrualAccountDesignator, amount)
	case def.ChargeAction:
		b.move(def.AccrualAccountDesignator, def.ToAccountDesignator, amount)
	}
}

// =============================================================================
// LEVEL PAYMENT
// =============================================================================

// GetLoanPaymentSize returns the level installment that repays
// disbursementSize over the repayment periods of the scheduled charges.
//
// Each repayment period k has the rate r_k = interest/100 * days_k/365 (zero
// when no interest charge is scheduled). The payment P solves
//
//	disbursementSize = sum_k P * prod_{j<=k} 1/(1+r_j)
//
// and is rounded like every other amount.
func GetLoanPaymentSize(disbursementSize, interest decimal.Decimal, minorCurrencyUnitDigits int32, scheduledCharges []ScheduledCharge) decimal.Decimal {
	periods := repaymentPeriodsOf(scheduledCharges)
	if len(periods) == 0 {
		return roundAmount(disbursementSize, minorCurrencyUnitDigits)
	}
	charged := hasInterestCharge(scheduledCharges)

	one := decimal.NewFromInt(1)
	factor := one
	sum := decimal.Zero
	for _, p := range periods {
		rate := decimal.Zero
		if charged {
			rate = interest.Mul(decimal.NewFromInt(int64(p.Days()))).
				DivRound(hundred.Mul(decimal.NewFromInt(daysInYear)), levelPaymentPrecision)
		}
		factor = factor.DivRound(one.Add(rate), levelPaymentPrecision)
		sum = sum.Add(factor)
	}

	payment := disbursementSize.DivRound(sum, levelPaymentPrecision)
	return roundAmount(payment, minorCurrencyUnitDigits)
}

// repaymentPeriodsOf returns the distinct repayment periods of the
// ACCEPT_PAYMENT charges, in schedule order.
func repaymentPeriodsOf(charges []ScheduledCharge) []calendar.Period {
	var periods []calendar.Period
	for _, sc := range charges {
		action := sc.ScheduledAction
		if action.Action != ActionAcceptPayment || action.RepaymentPeriod == nil {
			continue
		}
		seen := false
		for _, p := range periods {
			if p.Equal(*action.RepaymentPeriod) {
				seen = true
				break
			}
		}
		if !seen {
			periods = append(periods, *action.RepaymentPeriod)
		}
	}
	return periods
}

func hasInterestCharge(charges []ScheduledCharge) bool {
	for _, sc := range charges {
		if sc.ChargeDefinition.ChargeMethod == ChargeInterest {
			return true
		}
	}
	return false
}
