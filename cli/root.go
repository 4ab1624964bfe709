// Package cli implements the lending command line.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/lending-engine/accounting"
	"github.com/warp/lending-engine/config"
	"github.com/warp/lending-engine/lending"
	"github.com/warp/lending-engine/logger"
	"github.com/warp/lending-engine/store/sqlite"
)

// app holds what every subcommand shares once the root has run.
type app struct {
	configPath string
	dbPath     string

	cfg    *config.Config
	log    *zap.Logger
	store  *sqlite.Store
	ledger *accounting.Ledger
	now    func() time.Time
}

// NewRootCommand builds the lending command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(time.Now)
}

func newRootCommand(now func() time.Time) *cobra.Command {
	a := &app{now: now}

	root := &cobra.Command{
		Use:   "lending",
		Short: "Evaluate loan disbursements against a ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./lending.yaml or ~/.lending/lending.yaml)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path, overrides database.path")

	root.AddCommand(
		newSeedCommand(a),
		newDisburseCommand(a),
		newInstallmentCommand(a),
		newTasksCommand(a),
	)
	return root
}

func (a *app) open() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	a.log, err = logger.New(cfg.Log.Logger())
	if err != nil {
		return err
	}

	a.store, err = sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Database.Path, err)
	}
	a.ledger = accounting.NewLedger(a.store)
	return nil
}

func (a *app) close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// runningBalances returns a fresh balance cache for one evaluation.
func (a *app) runningBalances(dc lending.DataContextOfAction) *lending.RealRunningBalances {
	return lending.NewRealRunningBalances(a.ledger, dc.DesignatorMapper(),
		lending.WithBalanceCacheSize(a.cfg.Cache.MaxSize),
		lending.WithBalanceCacheTTL(a.cfg.Cache.TTL),
		lending.WithBalancesLogger(a.log.Named("balances")),
	)
}

func (a *app) disburseService() *lending.DisbursePaymentBuilderService {
	return lending.NewDisbursePaymentBuilderService(
		lending.NewScheduledChargesService(a.store),
		lending.NewLossProvisionChargesService(a.store),
		lending.WithClock(a.now),
		lending.WithLogger(a.log.Named("disburse")),
	)
}
