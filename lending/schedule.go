package lending

import (
	"github.com/warp/lending-engine/calendar"
)

// =============================================================================
// HYPOTHETICAL SCHEDULE
// =============================================================================

// GetHypotheticalScheduledActions lays out a full-term schedule for a loan
// disbursed on start: a DISBURSE on start, then for every repayment period an
// APPLY_INTEREST and an ACCEPT_PAYMENT on the period's end.
//
// Repayment periods step by the payment cycle and are clipped to the end of
// the term (start plus the term range maximum).
func GetHypotheticalScheduledActions(start calendar.Date, params CaseParameters) []ScheduledAction {
	actions := []ScheduledAction{{Action: ActionDisburse, When: start}}

	for _, period := range RepaymentPeriods(start, params) {
		p := period
		actions = append(actions,
			ScheduledAction{Action: ActionApplyInterest, When: p.End, ActionPeriod: &p, RepaymentPeriod: &p},
			ScheduledAction{Action: ActionAcceptPayment, When: p.End, ActionPeriod: &p, RepaymentPeriod: &p},
		)
	}
	return actions
}

// RepaymentPeriods splits the term starting on start by the payment cycle.
func RepaymentPeriods(start calendar.Date, params CaseParameters) []calendar.Period {
	end := params.TermRange.TemporalUnit.Add(start, params.TermRange.Maximum)
	return calendar.Split(start, end, params.PaymentCycle.TemporalUnit, params.PaymentCycle.Period)
}

// ScheduleForAction is the one-action schedule used when a single action is
// evaluated against live balances.
func ScheduleForAction(action Action, when calendar.Date) []ScheduledAction {
	return []ScheduledAction{{Action: action, When: when}}
}
