package lending

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/lending-engine/calendar"
)

// =============================================================================
// LOSS PROVISIONING
// =============================================================================

// LossProvisionStep is the share of principal provisioned for losses once a
// loan is DaysLate days late. The zero-days-late step is provisioned on
// disbursement.
type LossProvisionStep struct {
	DaysLate   int
	Percentage decimal.Decimal
}

type LossProvisionRepository interface {
	FindLossProvisionSteps(ctx context.Context, productIdentifier string) ([]LossProvisionStep, error)
}

// LossProvisionResolver returns the initial loss-provision charge for a
// disbursement, if the product provisions one.
type LossProvisionResolver interface {
	GetScheduledChargeForDisbursement(ctx context.Context, dc DataContextOfAction, forDate calendar.Date) (ScheduledCharge, bool, error)
}

type LossProvisionChargesService struct {
	steps LossProvisionRepository
}

func NewLossProvisionChargesService(steps LossProvisionRepository) *LossProvisionChargesService {
	return &LossProvisionChargesService{steps: steps}
}

var _ LossProvisionResolver = (*LossProvisionChargesService)(nil)

func (s *LossProvisionChargesService) GetScheduledChargeForDisbursement(ctx context.Context, dc DataContextOfAction, forDate calendar.Date) (ScheduledCharge, bool, error) {
	steps, err := s.steps.FindLossProvisionSteps(ctx, dc.Product.Identifier)
	if err != nil {
		return ScheduledCharge{}, false, fmt.Errorf("load loss provision steps for %s: %w", dc.Product.Identifier, err)
	}

	for _, step := range steps {
		if step.DaysLate != 0 {
			continue
		}
		if !step.Percentage.IsPositive() {
			return ScheduledCharge{}, false, nil
		}
		return ScheduledCharge{
			ScheduledAction:  ScheduledAction{Action: ActionDisburse, When: forDate},
			ChargeDefinition: provisionForLosses(step.Percentage),
		}, true, nil
	}
	return ScheduledCharge{}, false, nil
}

func provisionForLosses(percentage decimal.Decimal) ChargeDefinition {
	return ChargeDefinition{
		Identifier:            ProvisionForLossesID,
		Name:                  "Provision for losses",
		ChargeAction:          ActionDisburse,
		ChargeMethod:          ChargeProportional,
		Amount:                percentage,
		ProportionalTo:        ProportionalToPrincipalAdjustment,
		FromAccountDesignator: DesignatorProductLossAllowance,
		ToAccountDesignator:   DesignatorGeneralLossAllowance,
		ReadOnly:              true,
	}
}
