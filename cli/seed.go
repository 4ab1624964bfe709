package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/lending-engine/scenario"
)

func newSeedCommand(a *app) *cobra.Command {
	var (
		id    string
		file  string
		list  bool
		reset bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a scenario into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, id := range scenario.BuiltinIDs() {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			var (
				sc  *scenario.Scenario
				err error
			)
			switch {
			case file != "":
				sc, err = scenario.LoadFile(file)
			case id != "":
				sc, err = scenario.Builtin(id)
			default:
				return errors.New("one of --scenario or --file is required")
			}
			if err != nil {
				return err
			}

			if reset {
				if err := a.store.Reset(cmd.Context()); err != nil {
					return fmt.Errorf("reset: %w", err)
				}
			}

			res, err := scenario.Seed(cmd.Context(), a.store, sc, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "seeded %s: %d accounts, %d charges, %d tasks, %d journals posted, %d already present\n",
				sc.DataContext().CompoundIdentifier(), res.Accounts, res.Charges, res.Tasks, res.JournalsPosted, res.JournalsSkipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "scenario", "", "built-in scenario id")
	cmd.Flags().StringVar(&file, "file", "", "scenario YAML file")
	cmd.Flags().BoolVar(&list, "list", false, "list built-in scenarios")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all data before seeding")
	cmd.MarkFlagsMutuallyExclusive("scenario", "file")
	return cmd
}
