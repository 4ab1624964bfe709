/*
disburse.go - The disbursement payment builder

PURPOSE:
  Computes the cost components of disbursing principal on a case, and the
  installment a full disbursement would imply.

FLOW (GetPaymentBuilder):
  1. Read the principal balance
  2. Reject a requested size that takes principal past the maximum
  3. Disburse the requested size, or the maximum when none is requested
  4. Resolve the charges of {DISBURSE on forDate}
  5. Append the initial loss-provision charge, if the product has one
  6. Evaluate every charge as a disbursement

  Nothing is written; the only side effect is populating the balance cache.

SEE ALSO:
  - costcomponent.go: The math
  - running_balances.go: Where balances come from
*/
package lending

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/lending-engine/calendar"
)

type DisbursePaymentBuilderService struct {
	charges       ScheduledChargeResolver
	lossProvision LossProvisionResolver
	now           func() time.Time
	logger        *zap.Logger
}

// ServiceOption configures a DisbursePaymentBuilderService.
type ServiceOption func(*DisbursePaymentBuilderService)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) ServiceOption {
	return func(s *DisbursePaymentBuilderService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *DisbursePaymentBuilderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewDisbursePaymentBuilderService(charges ScheduledChargeResolver, lossProvision LossProvisionResolver, opts ...ServiceOption) *DisbursePaymentBuilderService {
	s := &DisbursePaymentBuilderService{
		charges:       charges,
		lossProvision: lossProvision,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPaymentBuilder computes the cost components of disbursing
// requestedDisbursalSize (nil for the full balance-range maximum) on forDate.
func (s *DisbursePaymentBuilderService) GetPaymentBuilder(
	ctx context.Context,
	dc DataContextOfAction,
	requestedDisbursalSize *decimal.Decimal,
	forDate calendar.Date,
	balances RunningBalances,
) (*PaymentBuilder, error) {
	params := dc.Case.Parameters
	log := s.logger.With(zap.String("case", dc.CompoundIdentifier()), zap.Stringer("date", forDate))

	current, err := balances.GetBalance(ctx, DesignatorCustomerLoanPrincipal)
	if err != nil {
		return nil, err
	}

	if requestedDisbursalSize != nil {
		if params.BalanceRangeMaximum.LessThan(current.Add(*requestedDisbursalSize)) {
			log.Warn("disbursal exceeds maximum balance",
				zap.String("current", current.String()),
				zap.String("requested", requestedDisbursalSize.String()),
				zap.String("maximum", params.BalanceRangeMaximum.String()))
			return nil, &ExceedsMaximumBalanceError{
				Current:   current,
				Requested: *requestedDisbursalSize,
				Maximum:   params.BalanceRangeMaximum,
			}
		}
	}

	disbursal := params.BalanceRangeMaximum
	if requestedDisbursalSize != nil {
		disbursal = *requestedDisbursalSize
	}

	charges, err := s.charges.GetScheduledCharges(ctx, dc.Product.Identifier, ScheduleForAction(ActionDisburse, forDate))
	if err != nil {
		return nil, err
	}

	provision, ok, err := s.lossProvision.GetScheduledChargeForDisbursement(ctx, dc, forDate)
	if err != nil {
		return nil, err
	}
	if ok {
		charges = append(charges, provision)
	}

	builder, err := GetCostComponentsForScheduledCharges(ctx, CostComponentInput{
		ScheduledCharges:        charges,
		MaximumBalance:          params.BalanceRangeMaximum,
		RunningBalances:         balances,
		DataContext:             dc,
		ContractualRepayment:    params.PaymentSize,
		RequestedDisbursement:   disbursal,
		RequestedRepayment:      decimal.Zero,
		Interest:                dc.Interest(),
		MinorCurrencyUnitDigits: dc.MinorCurrencyUnitDigits(),
		Disbursement:            true,
	})
	if err != nil {
		if IsInternal(err) {
			log.Error("cost components failed", zap.Error(err))
		}
		return nil, err
	}

	log.Debug("disbursement evaluated",
		zap.String("disbursal", disbursal.String()),
		zap.Int("components", len(builder.CostComponents())))
	return builder, nil
}

// GetLoanPaymentSizeForSingleDisbursement returns the level installment of
// a loan disbursing disbursementSize today and running its full term.
func (s *DisbursePaymentBuilderService) GetLoanPaymentSizeForSingleDisbursement(
	ctx context.Context,
	disbursementSize decimal.Decimal,
	dc DataContextOfAction,
) (decimal.Decimal, error) {
	actions := GetHypotheticalScheduledActions(calendar.Today(s.now), dc.Case.Parameters)

	charges, err := s.charges.GetScheduledCharges(ctx, dc.Product.Identifier, actions)
	if err != nil {
		return decimal.Zero, err
	}

	return GetLoanPaymentSize(disbursementSize, dc.Interest(), dc.MinorCurrencyUnitDigits(), charges), nil
}
