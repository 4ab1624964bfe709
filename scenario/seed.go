package scenario

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/lending-engine/accounting"
	"github.com/warp/lending-engine/lending"
)

// Target is everything a scenario writes to.
type Target interface {
	accounting.Store
	SaveProduct(ctx context.Context, p lending.Product) error
	SaveCase(ctx context.Context, c lending.Case) error
	SaveChargeDefinitions(ctx context.Context, productIdentifier string, definitions []lending.ChargeDefinition) error
	SaveLossProvisionSteps(ctx context.Context, productIdentifier string, steps []lending.LossProvisionStep) error
	SaveTaskDefinition(ctx context.Context, productIdentifier string, def lending.TaskDefinition) error
	SaveTaskInstance(ctx context.Context, productIdentifier, caseIdentifier string, task lending.TaskInstance) error
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Accounts        int
	Charges         int
	Tasks           int
	JournalsPosted  int
	JournalsSkipped int
}

// Seed writes the scenario into target. Journals already posted by an
// earlier Seed of the same scenario are skipped.
func Seed(ctx context.Context, target Target, sc *Scenario, logger *zap.Logger) (SeedResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res SeedResult
	productID := sc.Product.Identifier
	caseID := sc.Case.Identifier

	for _, a := range sc.Accounts {
		account := accounting.Account{Identifier: a.Identifier, Name: a.Name, Type: accounting.AccountType(a.Type)}
		if err := target.SaveAccount(ctx, account); err != nil {
			return res, fmt.Errorf("account %s: %w", a.Identifier, err)
		}
		res.Accounts++
	}

	if err := target.SaveProduct(ctx, sc.LendingProduct()); err != nil {
		return res, fmt.Errorf("product %s: %w", productID, err)
	}
	charges := sc.ChargeDefinitions()
	if err := target.SaveChargeDefinitions(ctx, productID, charges); err != nil {
		return res, err
	}
	res.Charges = len(charges)

	if err := target.SaveLossProvisionSteps(ctx, productID, sc.lossProvisionSteps()); err != nil {
		return res, err
	}
	for _, t := range sc.Tasks {
		if err := target.SaveTaskDefinition(ctx, productID, t.definition()); err != nil {
			return res, fmt.Errorf("task %s: %w", t.Identifier, err)
		}
	}

	if err := target.SaveCase(ctx, sc.LendingCase()); err != nil {
		return res, fmt.Errorf("case %s: %w", caseID, err)
	}
	for _, t := range sc.Tasks {
		if err := target.SaveTaskInstance(ctx, productID, caseID, t.instance()); err != nil {
			return res, fmt.Errorf("task instance %s: %w", t.Identifier, err)
		}
		res.Tasks++
	}

	ledger := accounting.NewLedger(target)
	for i := range sc.Journals {
		journal, err := sc.journal(i)
		if err != nil {
			return res, err
		}
		err = ledger.Post(ctx, journal)
		if errors.Is(err, accounting.ErrDuplicateIdempotencyKey) {
			res.JournalsSkipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("journal %d (%s): %w", i, journal.Message, err)
		}
		res.JournalsPosted++
	}

	logger.Info("scenario seeded",
		zap.String("scenario", sc.ID),
		zap.String("case", sc.DataContext().CompoundIdentifier()),
		zap.Int("accounts", res.Accounts),
		zap.Int("charges", res.Charges),
		zap.Int("journals_posted", res.JournalsPosted),
		zap.Int("journals_skipped", res.JournalsSkipped))
	return res, nil
}
