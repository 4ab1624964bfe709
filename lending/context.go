package lending

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATA CONTEXT - Everything known about the case being evaluated
// =============================================================================

// DataContextOfAction bundles the product and case an action is evaluated for.
type DataContextOfAction struct {
	Product Product
	Case    Case
}

// CompoundIdentifier is "<product>.<case>".
func (dc DataContextOfAction) CompoundIdentifier() string {
	return dc.Product.Identifier + "." + dc.Case.Identifier
}

// MessageForCharge is the ledger message journals of action carry for this
// case, e.g. "loan-1.case-7.DISBURSE".
func (dc DataContextOfAction) MessageForCharge(action Action) string {
	return dc.CompoundIdentifier() + "." + string(action)
}

func (dc DataContextOfAction) Interest() decimal.Decimal {
	return dc.Case.Parameters.Interest
}

func (dc DataContextOfAction) MinorCurrencyUnitDigits() int32 {
	return dc.Product.MinorCurrencyUnitDigits
}

// DesignatorMapper returns the account mapping for this case.
func (dc DataContextOfAction) DesignatorMapper() *AssignmentDesignatorMapper {
	return NewAssignmentDesignatorMapper(dc.Product, dc.Case)
}

// =============================================================================
// REPOSITORIES
// =============================================================================

type ProductRepository interface {
	// GetProduct returns ErrProductNotFound (wrapped) if missing.
	GetProduct(ctx context.Context, productIdentifier string) (Product, error)
}

type CaseRepository interface {
	// GetCase returns ErrCaseNotFound (wrapped) if missing.
	GetCase(ctx context.Context, productIdentifier, caseIdentifier string) (Case, error)
}

// LoadDataContext reads the product and case for an evaluation.
func LoadDataContext(ctx context.Context, products ProductRepository, cases CaseRepository, productIdentifier, caseIdentifier string) (DataContextOfAction, error) {
	product, err := products.GetProduct(ctx, productIdentifier)
	if err != nil {
		return DataContextOfAction{}, fmt.Errorf("load product %s: %w", productIdentifier, err)
	}
	c, err := cases.GetCase(ctx, productIdentifier, caseIdentifier)
	if err != nil {
		return DataContextOfAction{}, fmt.Errorf("load case %s: %w", caseIdentifier, err)
	}
	return DataContextOfAction{Product: product, Case: c}, nil
}
