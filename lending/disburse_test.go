package lending_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/lending-engine/accounting"
	"github.com/warp/lending-engine/accounting/store"
	"github.com/warp/lending-engine/calendar"
	"github.com/warp/lending-engine/lending"
)

func newDisburseService(charges *chargeRepo, steps *provisionRepo, opts ...lending.ServiceOption) *lending.DisbursePaymentBuilderService {
	return lending.NewDisbursePaymentBuilderService(
		lending.NewScheduledChargesService(charges),
		lending.NewLossProvisionChargesService(steps),
		opts...,
	)
}

func componentIDs(b *lending.PaymentBuilder) []string {
	var ids []string
	for _, c := range b.CostComponents() {
		ids = append(ids, c.ChargeIdentifier)
	}
	return ids
}

// =============================================================================
// GET PAYMENT BUILDER
// =============================================================================

func TestGetPaymentBuilder_FullRequestedDisbursal(t *testing.T) {
	// GIVEN: loan-1 with maximum 1000.00 and no principal outstanding
	// WHEN: Disbursing 1000.00
	// THEN: A principal component of 1000.00 plus the DISBURSE fees, all at
	//       two digits, in charge-definition order

	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance("7010", "0.00")
	dc := loan1()
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{})
	balances := newRealBalances(ledger, dc, newClock())

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("1000.00"), calendar.MustParse("2025-03-01"), balances)
	require.NoError(t, err)

	assert.Equal(t, []string{lending.DisbursementChargeID, lending.DisbursementFeeID, lending.ProcessingFeeID}, componentIDs(builder))

	principal, ok := builder.CostComponent(lending.DisbursementChargeID)
	require.True(t, ok)
	assert.True(t, principal.PrincipalBearing)
	assert.Equal(t, "1000.00", principal.Amount.StringFixed(2))

	fee, _ := builder.CostComponent(lending.DisbursementFeeID)
	assert.False(t, fee.PrincipalBearing)
	assert.Equal(t, "10.00", fee.Amount.StringFixed(2))

	processing, _ := builder.CostComponent(lending.ProcessingFeeID)
	assert.Equal(t, "10.00", processing.Amount.StringFixed(2))

	for _, c := range builder.CostComponents() {
		assert.True(t, c.Amount.Equal(c.Amount.Round(2)), "%s not rounded", c.ChargeIdentifier)
	}
	assert.True(t, builder.PrincipalTotal().Equal(dec("1000")))
	assert.True(t, builder.FeeTotal().Equal(dec("20")))
}

func TestGetPaymentBuilder_NoRequestedSize_DisbursesMaximum(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	dc := loan1()
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{})

	builder, err := svc.GetPaymentBuilder(ctx, dc, nil, calendar.MustParse("2025-03-01"), newRealBalances(ledger, dc, newClock()))
	require.NoError(t, err)

	assert.True(t, builder.PrincipalTotal().Equal(dec("1000")))
}

func TestGetPaymentBuilder_PartialDisbursal_PrincipalEqualsRequest(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance("7010", "600.00")
	dc := loan1()
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{})

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("400.00"), calendar.MustParse("2025-03-01"), newRealBalances(ledger, dc, newClock()))
	require.NoError(t, err)

	assert.True(t, builder.PrincipalTotal().Equal(dec("400")))
	// The disbursement fee is a share of the maximum, not of the disbursal.
	fee, _ := builder.CostComponent(lending.DisbursementFeeID)
	assert.True(t, fee.Amount.Equal(dec("10")))
}

func TestGetPaymentBuilder_ExceedsMaximum_Conflict(t *testing.T) {
	// GIVEN: 900.00 outstanding on a 1000.00 maximum
	// WHEN: Requesting 200.00 more
	// THEN: Conflict; only the principal balance was read and no charges resolved

	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance("7010", "900.00")
	dc := loan1()
	charges := &chargeRepo{definitions: lending.DefaultChargeDefinitions()}
	svc := newDisburseService(charges, &provisionRepo{})

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("200.00"), calendar.MustParse("2025-03-01"), newRealBalances(ledger, dc, newClock()))

	assert.Nil(t, builder)
	assert.True(t, lending.IsConflict(err))
	var exceeds *lending.ExceedsMaximumBalanceError
	require.ErrorAs(t, err, &exceeds)
	assert.True(t, exceeds.Current.Equal(dec("900")))
	assert.True(t, exceeds.Requested.Equal(dec("200")))
	assert.True(t, exceeds.Maximum.Equal(dec("1000")))

	assert.Equal(t, 1, ledger.totalBalanceCalls())
	assert.Equal(t, 1, ledger.balanceCalls["7010"])
	assert.Equal(t, 0, ledger.sumCalls)
	assert.Equal(t, 0, ledger.oldestCalls)
	assert.Equal(t, 0, charges.calls)
}

func TestGetPaymentBuilder_ExactlyAtMaximum_Allowed(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	ledger.setBalance("7010", "900.00")
	dc := loan1()
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{})

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("100.00"), calendar.MustParse("2025-03-01"), newRealBalances(ledger, dc, newClock()))
	require.NoError(t, err)
	assert.True(t, builder.PrincipalTotal().Equal(dec("100")))
}

func TestGetPaymentBuilder_LossProvisionAppendedLast(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	dc := loan1()
	svc := newDisburseService(
		&chargeRepo{definitions: lending.DefaultChargeDefinitions()},
		&provisionRepo{steps: []lending.LossProvisionStep{
			{DaysLate: 0, Percentage: dec("1.5")},
			{DaysLate: 30, Percentage: dec("30")},
		}},
	)

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("1000.00"), calendar.MustParse("2025-03-01"), newRealBalances(ledger, dc, newClock()))
	require.NoError(t, err)

	ids := componentIDs(builder)
	require.Len(t, ids, 4)
	assert.Equal(t, lending.ProvisionForLossesID, ids[3])

	provision, _ := builder.CostComponent(lending.ProvisionForLossesID)
	assert.Equal(t, "15.00", provision.Amount.StringFixed(2))
	assert.False(t, provision.PrincipalBearing)
}

func TestGetPaymentBuilder_BalanceAdjustments(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	dc := loan1()
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{})

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("1000.00"), calendar.MustParse("2025-03-01"), newRealBalances(ledger, dc, newClock()))
	require.NoError(t, err)

	adjustments := builder.BalanceAdjustments()
	assert.True(t, adjustments[lending.DesignatorCustomerLoanPrincipal].Equal(dec("1000")))
	assert.True(t, adjustments[lending.DesignatorEntry].Equal(dec("-1020")))
	assert.True(t, adjustments[lending.DesignatorDisbursementFeeIncome].Equal(dec("10")))
	assert.True(t, adjustments[lending.DesignatorProcessingFeeIncome].Equal(dec("10")))
}

func TestGetPaymentBuilder_UnmappedPrincipal_ConfigurationError(t *testing.T) {
	ctx := context.Background()
	dc := loan1()
	delete(dc.Product.AccountAssignments, lending.DesignatorCustomerLoanPrincipal)
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{})

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("10.00"), calendar.MustParse("2025-03-01"), newRealBalances(newFakeLedger(), dc, newClock()))

	assert.Nil(t, builder)
	assert.True(t, lending.IsConfigurationError(err))
}

func TestGetPaymentBuilder_ResolverError_Propagated(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("charge store down")
	dc := loan1()
	svc := newDisburseService(&chargeRepo{err: boom}, &provisionRepo{})

	builder, err := svc.GetPaymentBuilder(ctx, dc, nil, calendar.MustParse("2025-03-01"), newRealBalances(newFakeLedger(), dc, newClock()))

	assert.Nil(t, builder)
	assert.ErrorIs(t, err, boom)
}

func TestGetPaymentBuilder_AgainstRealLedger(t *testing.T) {
	// GIVEN: A real in-memory ledger with 600.00 already disbursed
	// THEN: 500.00 more is rejected and 400.00 is accepted

	ctx := context.Background()
	s := store.NewMemory()
	for _, a := range []accounting.Account{
		{Identifier: "7010", Type: accounting.Asset},
		{Identifier: "9100", Type: accounting.Liability},
	} {
		require.NoError(t, s.SaveAccount(ctx, a))
	}
	ledger := accounting.NewLedger(s)
	require.NoError(t, ledger.Post(ctx, accounting.Journal{
		TransactionIdentifier: "d-1",
		TransactionDate:       time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC),
		Message:               "loan-1.case-1.DISBURSE",
		Debtors:               []accounting.Posting{{AccountID: "7010", Amount: dec("600.00")}},
		Creditors:             []accounting.Posting{{AccountID: "9100", Amount: dec("600.00")}},
	}))

	dc := loan1()
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{})
	balances := lending.NewRealRunningBalances(ledger, dc.DesignatorMapper())

	_, err := svc.GetPaymentBuilder(ctx, dc, decPtr("500.00"), calendar.MustParse("2025-03-01"), balances)
	assert.True(t, lending.IsConflict(err))

	builder, err := svc.GetPaymentBuilder(ctx, dc, decPtr("400.00"), calendar.MustParse("2025-03-01"), balances)
	require.NoError(t, err)
	assert.True(t, builder.PrincipalTotal().Equal(dec("400")))
}

// =============================================================================
// PAYMENT SIZE FOR SINGLE DISBURSEMENT
// =============================================================================

func TestGetLoanPaymentSizeForSingleDisbursement(t *testing.T) {
	// GIVEN: Two yearly repayments at 10% starting "today" (2025-01-01)
	// THEN: The level payment is 576.19 on 1000.00

	ctx := context.Background()
	dc := loan1()
	dc.Case.Parameters.TermRange = lending.TermRange{TemporalUnit: calendar.Years, Maximum: 2}
	dc.Case.Parameters.PaymentCycle = lending.PaymentCycle{TemporalUnit: calendar.Years, Period: 1}
	clock := &fakeClock{now: time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)}
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{}, lending.WithClock(clock.Now))

	size, err := svc.GetLoanPaymentSizeForSingleDisbursement(ctx, dec("1000.00"), dc)
	require.NoError(t, err)
	assert.Equal(t, "576.19", size.StringFixed(2))
}

func TestGetLoanPaymentSizeForSingleDisbursement_ZeroInterest(t *testing.T) {
	ctx := context.Background()
	dc := loan1()
	dc.Case.Parameters.Interest = dec("0")
	clock := &fakeClock{now: time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)}
	svc := newDisburseService(&chargeRepo{definitions: lending.DefaultChargeDefinitions()}, &provisionRepo{}, lending.WithClock(clock.Now))

	size, err := svc.GetLoanPaymentSizeForSingleDisbursement(ctx, dec("1200.00"), dc)
	require.NoError(t, err)
	assert.Equal(t, "100.00", size.StringFixed(2))
}

func TestGetLoanPaymentSizeForSingleDisbursement_ResolverError(t *testing.T) {
	boom := errors.New("charge store down")
	svc := newDisburseService(&chargeRepo{err: boom}, &provisionRepo{})

	_, err := svc.GetLoanPaymentSizeForSingleDisbursement(context.Background(), dec("1000"), loan1())
	assert.ErrorIs(t, err, boom)
}
