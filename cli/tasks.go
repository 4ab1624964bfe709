package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/lending-engine/lending"
)

func newTasksCommand(a *app) *cobra.Command {
	var (
		productID, caseID string
		all               bool
	)

	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List a case's tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tasks, err := lending.NewTaskInstanceService(a.store).FindAllEntities(cmd.Context(), productID, caseID, all)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK\tEXECUTED\tBY\tCOMMENT")
			for _, t := range tasks {
				executed := "-"
				if t.Executed() {
					executed = t.ExecutedOn.UTC().Format("2006-01-02")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.TaskIdentifier, executed, t.ExecutedBy, t.Comment)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "product identifier")
	cmd.Flags().StringVar(&caseID, "case", "", "case identifier")
	cmd.Flags().BoolVar(&all, "all", false, "include executed tasks")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("case")
	return cmd
}
