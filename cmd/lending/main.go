/*
main.go - lending command entry point

PURPOSE:
  Evaluates loan disbursements against a SQLite ledger from the shell.

COMMANDS:
  seed         Load a built-in scenario (--scenario) or a YAML file (--file)
  disburse     Cost components of disbursing on a case; refuses while
               mandatory DISBURSE tasks are open
  installment  Level installment of one full-term disbursement
  tasks        A case's open tasks (--all includes executed ones)

CONFIGURATION:
  Defaults, then lending.yaml (--config), then LENDING_* environment
  variables. --db overrides database.path.

EXAMPLES:
  lending seed --db demo.db --scenario partial-disbursal
  lending disburse --db demo.db --product loan-1 --case case-1 --size 400 --date 2025-03-01
  lending installment --db demo.db --product loan-1 --case case-1

SEE ALSO:
  - cli/: Command implementations
  - config/config.go: Keys and layering
*/
package main

import (
	"os"

	"github.com/warp/lending-engine/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
