package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/lending-engine/calendar"
	"github.com/warp/lending-engine/lending"
)

// TasksOutstandingError blocks an action until its mandatory tasks are done.
type TasksOutstandingError struct {
	Case   string
	Action lending.Action
}

func (e *TasksOutstandingError) Error() string {
	return fmt.Sprintf("case %s has outstanding mandatory tasks for %s", e.Case, e.Action)
}

func newDisburseCommand(a *app) *cobra.Command {
	var (
		productID, caseID string
		size, date        string
	)

	cmd := &cobra.Command{
		Use:   "disburse",
		Short: "Show the cost components of a disbursement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var requested *decimal.Decimal
			if size != "" {
				d, err := decimal.NewFromString(size)
				if err != nil {
					return fmt.Errorf("invalid --size: %w", err)
				}
				requested = &d
			}
			forDate := calendar.Today(a.now)
			if date != "" {
				d, err := calendar.Parse(date)
				if err != nil {
					return err
				}
				forDate = d
			}

			dc, err := lending.LoadDataContext(ctx, a.store, a.store, productID, caseID)
			if err != nil {
				return err
			}

			outstanding, err := lending.NewTaskInstanceService(a.store).AreTasksOutstanding(ctx, productID, caseID, lending.ActionDisburse)
			if err != nil {
				return err
			}
			if outstanding {
				return &TasksOutstandingError{Case: dc.CompoundIdentifier(), Action: lending.ActionDisburse}
			}

			builder, err := a.disburseService().GetPaymentBuilder(ctx, dc, requested, forDate, a.runningBalances(dc))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s DISBURSE on %s\n\n", dc.CompoundIdentifier(), forDate)
			return printBuilder(cmd.OutOrStdout(), builder, dc.MinorCurrencyUnitDigits())
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "product identifier")
	cmd.Flags().StringVar(&caseID, "case", "", "case identifier")
	cmd.Flags().StringVar(&size, "size", "", "disbursal size (default: the case's maximum balance)")
	cmd.Flags().StringVar(&date, "date", "", "disbursal date, YYYY-MM-DD (default: today)")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func newInstallmentCommand(a *app) *cobra.Command {
	var productID, caseID, disbursement string

	cmd := &cobra.Command{
		Use:   "installment",
		Short: "Show the level installment of a single full-term disbursement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			dc, err := lending.LoadDataContext(ctx, a.store, a.store, productID, caseID)
			if err != nil {
				return err
			}
			size := dc.Case.Parameters.BalanceRangeMaximum
			if disbursement != "" {
				if size, err = decimal.NewFromString(disbursement); err != nil {
					return fmt.Errorf("invalid --disbursement: %w", err)
				}
			}

			payment, err := a.disburseService().GetLoanPaymentSizeForSingleDisbursement(ctx, size, dc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), payment.StringFixed(dc.MinorCurrencyUnitDigits()))
			return nil
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "product identifier")
	cmd.Flags().StringVar(&caseID, "case", "", "case identifier")
	cmd.Flags().StringVar(&disbursement, "disbursement", "", "disbursement size (default: the case's maximum balance)")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}

func printBuilder(w io.Writer, b *lending.PaymentBuilder, digits int32) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHARGE\tAMOUNT\tPRINCIPAL")
	for _, c := range b.CostComponents() {
		principal := ""
		if c.PrincipalBearing {
			principal = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ChargeIdentifier, c.Amount.StringFixed(digits), principal)
	}
	fmt.Fprintf(tw, "\t\t\n")
	fmt.Fprintf(tw, "principal\t%s\t\n", b.PrincipalTotal().StringFixed(digits))
	fmt.Fprintf(tw, "fees\t%s\t\n", b.FeeTotal().StringFixed(digits))
	if err := tw.Flush(); err != nil {
		return err
	}

	adjustments := b.BalanceAdjustments()
	designators := make([]string, 0, len(adjustments))
	for d := range adjustments {
		designators = append(designators, d)
	}
	sort.Strings(designators)

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DESIGNATOR\tADJUSTMENT")
	for _, d := range designators {
		fmt.Fprintf(tw, "%s\t%s\n", d, adjustments[d].StringFixed(digits))
	}
	return tw.Flush()
}
