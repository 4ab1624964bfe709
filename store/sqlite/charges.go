package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/warp/lending-engine/lending"
)

// =============================================================================
// CHARGE DEFINITION STORE
// =============================================================================

var (
	_ lending.ChargeDefinitionRepository = (*Store)(nil)
	_ lending.LossProvisionRepository    = (*Store)(nil)
)

// SaveChargeDefinitions replaces a product's charge definitions. Their order
// in definitions is the order FindChargeDefinitions returns them in.
func (s *Store) SaveChargeDefinitions(ctx context.Context, productIdentifier string, definitions []lending.ChargeDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM charge_definitions WHERE product_id = ?", productIdentifier); err != nil {
		return fmt.Errorf("failed to clear charge definitions: %w", err)
	}

	query := `
		INSERT INTO charge_definitions
		(product_id, identifier, position, name, description, accrue_action, charge_action,
		 charge_method, amount, proportional_to, from_designator, to_designator,
		 accrual_designator, read_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, def := range definitions {
		_, err := sqlTx.ExecContext(ctx, query,
			productIdentifier,
			def.Identifier,
			i,
			def.Name,
			def.Description,
			nullString(string(def.AccrueAction)),
			string(def.ChargeAction),
			string(def.ChargeMethod),
			def.Amount.String(),
			def.ProportionalTo,
			def.FromAccountDesignator,
			def.ToAccountDesignator,
			def.AccrualAccountDesignator,
			def.ReadOnly,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("duplicate charge definition %q for %s", def.Identifier, productIdentifier)
			}
			return fmt.Errorf("failed to save charge definition: %w", err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) FindChargeDefinitions(ctx context.Context, productIdentifier string) ([]lending.ChargeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT identifier, name, description, accrue_action, charge_action, charge_method,
		       amount, proportional_to, from_designator, to_designator, accrual_designator, read_only
		FROM charge_definitions
		WHERE product_id = ?
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, productIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to query charge definitions: %w", err)
	}
	defer rows.Close()

	var definitions []lending.ChargeDefinition
	for rows.Next() {
		def, err := scanChargeDefinition(rows)
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, def)
	}

	return definitions, rows.Err()
}

func scanChargeDefinition(rows *sql.Rows) (lending.ChargeDefinition, error) {
	var (
		def          lending.ChargeDefinition
		accrueAction sql.NullString
		chargeAction string
		chargeMethod string
		amount       string
	)

	err := rows.Scan(
		&def.Identifier, &def.Name, &def.Description, &accrueAction, &chargeAction, &chargeMethod,
		&amount, &def.ProportionalTo, &def.FromAccountDesignator, &def.ToAccountDesignator,
		&def.AccrualAccountDesignator, &def.ReadOnly,
	)
	if err != nil {
		return def, fmt.Errorf("failed to scan charge definition: %w", err)
	}

	def.AccrueAction = lending.Action(accrueAction.String)
	def.ChargeAction = lending.Action(chargeAction)
	def.ChargeMethod = lending.ChargeMethod(chargeMethod)
	if def.Amount, err = parseDecimal("charge_definitions.amount", amount); err != nil {
		return def, err
	}
	return def, nil
}

// =============================================================================
// LOSS PROVISION STORE
// =============================================================================

// SaveLossProvisionSteps replaces a product's provisioning steps.
func (s *Store) SaveLossProvisionSteps(ctx context.Context, productIdentifier string, steps []lending.LossProvisionStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM loss_provision_steps WHERE product_id = ?", productIdentifier); err != nil {
		return fmt.Errorf("failed to clear loss provision steps: %w", err)
	}
	for _, step := range steps {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO loss_provision_steps (product_id, days_late, percentage) VALUES (?, ?, ?)",
			productIdentifier, step.DaysLate, step.Percentage.String())
		if err != nil {
			return fmt.Errorf("failed to save loss provision step: %w", err)
		}
	}

	return sqlTx.Commit()
}

// FindLossProvisionSteps returns a product's steps ordered by days late.
func (s *Store) FindLossProvisionSteps(ctx context.Context, productIdentifier string) ([]lending.LossProvisionStep, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT days_late, percentage FROM loss_provision_steps WHERE product_id = ? ORDER BY days_late ASC",
		productIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to query loss provision steps: %w", err)
	}
	defer rows.Close()

	var steps []lending.LossProvisionStep
	for rows.Next() {
		var (
			step       lending.LossProvisionStep
			percentage string
		)
		if err := rows.Scan(&step.DaysLate, &percentage); err != nil {
			return nil, fmt.Errorf("failed to scan loss provision step: %w", err)
		}
		if step.Percentage, err = parseDecimal("loss_provision_steps.percentage", percentage); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}

	return steps, rows.Err()
}
