package lending

// DesignatorMapper resolves account designators to ledger account identifiers.
type DesignatorMapper interface {
	// Map returns the account for designator, or false if none is assigned.
	Map(designator string) (string, bool)

	// MapOrError returns the account for designator, or an
	// *UnmappedDesignatorError if none is assigned.
	MapOrError(designator string) (string, error)
}

// AssignmentDesignatorMapper resolves designators from account assignments.
// A case's assignments take precedence over its product's.
type AssignmentDesignatorMapper struct {
	product map[string]string
	caseOf  map[string]string
}

func NewAssignmentDesignatorMapper(product Product, c Case) *AssignmentDesignatorMapper {
	return &AssignmentDesignatorMapper{
		product: product.AccountAssignments,
		caseOf:  c.AccountAssignments,
	}
}

var _ DesignatorMapper = (*AssignmentDesignatorMapper)(nil)

func (m *AssignmentDesignatorMapper) Map(designator string) (string, bool) {
	if account, ok := m.caseOf[designator]; ok && account != "" {
		return account, true
	}
	if account, ok := m.product[designator]; ok && account != "" {
		return account, true
	}
	return "", false
}

func (m *AssignmentDesignatorMapper) MapOrError(designator string) (string, error) {
	account, ok := m.Map(designator)
	if !ok {
		return "", &UnmappedDesignatorError{Designator: designator}
	}
	return account, nil
}
