/*
charges.go - Charge definitions and their resolution against a schedule

PURPOSE:
  A product carries an ordered list of charge definitions. Resolving a
  schedule binds each scheduled action to every definition triggered by it,
  either as the action it is charged on or the action it accrues on.

ORDER:
  Scheduled actions in schedule order; within one action, definitions in
  repository order. The cost-component builder preserves this order.

SEE ALSO:
  - costcomponent.go: Turns scheduled charges into amounts
  - lossprovision.go: The extra charge appended on disbursement
*/
package lending

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DisbursementChargeID   = "disbursement"
	DisbursementFeeID      = "disbursement-fee"
	ProcessingFeeID        = "processing-fee"
	InterestChargeID       = "interest"
	RepaymentChargeID      = "repayment"
	ProvisionForLossesID   = "provision-for-losses"
	defaultDisbursementFee = "1"
	defaultProcessingFee   = "10.00"
)

// ChargeDefinitionRepository reads a product's charge definitions, in their
// configured order.
type ChargeDefinitionRepository interface {
	FindChargeDefinitions(ctx context.Context, productIdentifier string) ([]ChargeDefinition, error)
}

// ScheduledChargeResolver binds charge definitions to scheduled actions.
type ScheduledChargeResolver interface {
	GetScheduledCharges(ctx context.Context, productIdentifier string, actions []ScheduledAction) ([]ScheduledCharge, error)
}

// =============================================================================
// SCHEDULED CHARGES SERVICE
// =============================================================================

type ScheduledChargesService struct {
	definitions ChargeDefinitionRepository
}

func NewScheduledChargesService(definitions ChargeDefinitionRepository) *ScheduledChargesService {
	return &ScheduledChargesService{definitions: definitions}
}

var _ ScheduledChargeResolver = (*ScheduledChargesService)(nil)

func (s *ScheduledChargesService) GetScheduledCharges(ctx context.Context, productIdentifier string, actions []ScheduledAction) ([]ScheduledCharge, error) {
	definitions, err := s.definitions.FindChargeDefinitions(ctx, productIdentifier)
	if err != nil {
		return nil, fmt.Errorf("load charge definitions for %s: %w", productIdentifier, err)
	}

	var charges []ScheduledCharge
	for _, action := range actions {
		for _, def := range definitions {
			if def.ChargeAction == action.Action || (def.Accrues() && def.AccrueAction == action.Action) {
				charges = append(charges, ScheduledCharge{ScheduledAction: action, ChargeDefinition: def})
			}
		}
	}
	return charges, nil
}

// =============================================================================
// DEFAULT CHARGES
// =============================================================================

// DefaultChargeDefinitions returns the charges every individual loan product
// starts with.
func DefaultChargeDefinitions() []ChargeDefinition {
	return []ChargeDefinition{
		{
			Identifier:            DisbursementChargeID,
			Name:                  "Disbursement",
			Description:           "Principal moved to the customer",
			ChargeAction:          ActionDisburse,
			ChargeMethod:          ChargeProportional,
			Amount:                decimal.NewFromInt(100),
			ProportionalTo:        ProportionalToPrincipalAdjustment,
			FromAccountDesignator: DesignatorEntry,
			ToAccountDesignator:   DesignatorCustomerLoanPrincipal,
			ReadOnly:              true,
		},
		{
			Identifier:            DisbursementFeeID,
			Name:                  "Disbursement fee",
			ChargeAction:          ActionDisburse,
			ChargeMethod:          ChargeProportional,
			Amount:                decimal.RequireFromString(defaultDisbursementFee),
			ProportionalTo:        ProportionalToMaximumBalance,
			FromAccountDesignator: DesignatorEntry,
			ToAccountDesignator:   DesignatorDisbursementFeeIncome,
		},
		{
			Identifier:            ProcessingFeeID,
			Name:                  "Processing fee",
			ChargeAction:          ActionDisburse,
			ChargeMethod:          ChargeFixed,
			Amount:                decimal.RequireFromString(defaultProcessingFee),
			FromAccountDesignator: DesignatorEntry,
			ToAccountDesignator:   DesignatorProcessingFeeIncome,
		},
		{
			Identifier:               InterestChargeID,
			Name:                     "Interest",
			AccrueAction:             ActionApplyInterest,
			ChargeAction:             ActionAcceptPayment,
			ChargeMethod:             ChargeInterest,
			ProportionalTo:           ProportionalToRunningBalance,
			FromAccountDesignator:    DesignatorCustomerLoanInterest,
			ToAccountDesignator:      DesignatorInterestIncome,
			AccrualAccountDesignator: DesignatorInterestAccrual,
			ReadOnly:                 true,
		},
		{
			Identifier:            RepaymentChargeID,
			Name:                  "Repayment",
			ChargeAction:          ActionAcceptPayment,
			ChargeMethod:          ChargeProportional,
			Amount:                decimal.NewFromInt(100),
			ProportionalTo:        ProportionalToPrincipalAdjustment,
			FromAccountDesignator: DesignatorCustomerLoanPrincipal,
			ToAccountDesignator:   DesignatorEntry,
			ReadOnly:              true,
		},
	}
}
