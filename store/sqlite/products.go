package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/warp/lending-engine/calendar"
	"github.com/warp/lending-engine/lending"
)

// =============================================================================
// PRODUCT STORE
// =============================================================================

var (
	_ lending.ProductRepository = (*Store)(nil)
	_ lending.CaseRepository    = (*Store)(nil)
)

// SaveProduct creates or replaces a product and its account assignments.
func (s *Store) SaveProduct(ctx context.Context, p lending.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO products (identifier, name, minor_currency_unit_digits) VALUES (?, ?, ?)
		ON CONFLICT(identifier) DO UPDATE SET
			name = excluded.name,
			minor_currency_unit_digits = excluded.minor_currency_unit_digits
	`, p.Identifier, p.Name, p.MinorCurrencyUnitDigits)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM product_account_assignments WHERE product_id = ?", p.Identifier); err != nil {
		return fmt.Errorf("failed to clear product assignments: %w", err)
	}
	for designator, account := range p.AccountAssignments {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO product_account_assignments (product_id, designator, account_id) VALUES (?, ?, ?)",
			p.Identifier, designator, account)
		if err != nil {
			return fmt.Errorf("failed to save product assignment: %w", err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) GetProduct(ctx context.Context, identifier string) (lending.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p lending.Product
	err := s.db.QueryRowContext(ctx,
		"SELECT identifier, name, minor_currency_unit_digits FROM products WHERE identifier = ?",
		identifier,
	).Scan(&p.Identifier, &p.Name, &p.MinorCurrencyUnitDigits)
	if errors.Is(err, sql.ErrNoRows) {
		return lending.Product{}, fmt.Errorf("%w: %s", lending.ErrProductNotFound, identifier)
	}
	if err != nil {
		return lending.Product{}, fmt.Errorf("failed to get product: %w", err)
	}

	p.AccountAssignments, err = s.queryAssignments(ctx,
		"SELECT designator, account_id FROM product_account_assignments WHERE product_id = ?",
		identifier)
	if err != nil {
		return lending.Product{}, err
	}
	return p, nil
}

// =============================================================================
// CASE STORE
// =============================================================================

// SaveCase creates or replaces a case and its account assignments.
func (s *Store) SaveCase(ctx context.Context, c lending.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	params := c.Parameters
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO cases
		(product_id, identifier, current_state, customer_identifier, balance_range_maximum,
		 payment_size, interest, term_unit, term_maximum, cycle_unit, cycle_period)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id, identifier) DO UPDATE SET
			current_state = excluded.current_state,
			customer_identifier = excluded.customer_identifier,
			balance_range_maximum = excluded.balance_range_maximum,
			payment_size = excluded.payment_size,
			interest = excluded.interest,
			term_unit = excluded.term_unit,
			term_maximum = excluded.term_maximum,
			cycle_unit = excluded.cycle_unit,
			cycle_period = excluded.cycle_period
	`,
		c.ProductIdentifier,
		c.Identifier,
		c.CurrentState,
		params.CustomerIdentifier,
		params.BalanceRangeMaximum.String(),
		params.PaymentSize.String(),
		params.Interest.String(),
		string(params.TermRange.TemporalUnit),
		params.TermRange.Maximum,
		string(params.PaymentCycle.TemporalUnit),
		params.PaymentCycle.Period,
	)
	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM case_account_assignments WHERE product_id = ? AND case_id = ?",
		c.ProductIdentifier, c.Identifier); err != nil {
		return fmt.Errorf("failed to clear case assignments: %w", err)
	}
	for designator, account := range c.AccountAssignments {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT INTO case_account_assignments (product_id, case_id, designator, account_id) VALUES (?, ?, ?, ?)",
			c.ProductIdentifier, c.Identifier, designator, account)
		if err != nil {
			return fmt.Errorf("failed to save case assignment: %w", err)
		}
	}

	return sqlTx.Commit()
}

func (s *Store) GetCase(ctx context.Context, productIdentifier, caseIdentifier string) (lending.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		c                              lending.Case
		maximum, paymentSize, interest string
		termUnit, cycleUnit            string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT product_id, identifier, current_state, customer_identifier, balance_range_maximum,
		       payment_size, interest, term_unit, term_maximum, cycle_unit, cycle_period
		FROM cases
		WHERE product_id = ? AND identifier = ?
	`, productIdentifier, caseIdentifier).Scan(
		&c.ProductIdentifier, &c.Identifier, &c.CurrentState, &c.Parameters.CustomerIdentifier,
		&maximum, &paymentSize, &interest,
		&termUnit, &c.Parameters.TermRange.Maximum,
		&cycleUnit, &c.Parameters.PaymentCycle.Period,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return lending.Case{}, fmt.Errorf("%w: %s/%s", lending.ErrCaseNotFound, productIdentifier, caseIdentifier)
	}
	if err != nil {
		return lending.Case{}, fmt.Errorf("failed to get case: %w", err)
	}

	if c.Parameters.BalanceRangeMaximum, err = parseDecimal("cases.balance_range_maximum", maximum); err != nil {
		return lending.Case{}, err
	}
	if c.Parameters.PaymentSize, err = parseDecimal("cases.payment_size", paymentSize); err != nil {
		return lending.Case{}, err
	}
	if c.Parameters.Interest, err = parseDecimal("cases.interest", interest); err != nil {
		return lending.Case{}, err
	}
	c.Parameters.TermRange.TemporalUnit = calendar.TemporalUnit(termUnit)
	c.Parameters.PaymentCycle.TemporalUnit = calendar.TemporalUnit(cycleUnit)

	c.AccountAssignments, err = s.queryAssignments(ctx,
		"SELECT designator, account_id FROM case_account_assignments WHERE product_id = ? AND case_id = ?",
		productIdentifier, caseIdentifier)
	if err != nil {
		return lending.Case{}, err
	}
	return c, nil
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string]string)
	for rows.Next() {
		var designator, account string
		if err := rows.Scan(&designator, &account); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments[designator] = account
	}
	return assignments, rows.Err()
}
