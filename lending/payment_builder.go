package lending

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYMENT BUILDER - Accumulates cost components for one action
// =============================================================================

// PaymentBuilder collects the cost components of an action and the balance
// movements they imply. Amounts accumulate at full precision per charge
// identifier; they are rounded once, when the builder is finalized.
type PaymentBuilder struct {
	digits      int32
	components  []CostComponent
	index       map[string]int
	adjustments map[string]decimal.Decimal
	finalized   bool
}

func newPaymentBuilder(minorCurrencyUnitDigits int32) *PaymentBuilder {
	return &PaymentBuilder{
		digits:      minorCurrencyUnitDigits,
		index:       make(map[string]int),
		adjustments: make(map[string]decimal.Decimal),
	}
}

// add accumulates amount under the charge's identifier. The first
// occurrence of an identifier fixes its position in the output.
func (b *PaymentBuilder) add(chargeIdentifier string, amount decimal.Decimal, principalBearing bool) {
	if i, ok := b.index[chargeIdentifier]; ok {
		b.components[i].Amount = b.components[i].Amount.Add(amount)
		b.components[i].PrincipalBearing = b.components[i].PrincipalBearing || principalBearing
		return
	}
	b.index[chargeIdentifier] = len(b.components)
	b.components = append(b.components, CostComponent{
		ChargeIdentifier: chargeIdentifier,
		Amount:           amount,
		PrincipalBearing: principalBearing,
	})
}

// move records amount leaving from and arriving at to.
func (b *PaymentBuilder) move(from, to string, amount decimal.Decimal) {
	if from != "" {
		b.adjustments[from] = b.adjustments[from].Sub(amount)
	}
	if to != "" {
		b.adjustments[to] = b.adjustments[to].Add(amount)
	}
}

func (b *PaymentBuilder) finalize() {
	if b.finalized {
		return
	}
	for i := range b.components {
		b.components[i].Amount = roundAmount(b.components[i].Amount, b.digits)
	}
	for designator, amount := range b.adjustments {
		b.adjustments[designator] = roundAmount(amount, b.digits)
	}
	b.finalized = true
}

// CostComponents returns the components in first-appearance order.
func (b *PaymentBuilder) CostComponents() []CostComponent {
	out := make([]CostComponent, len(b.components))
	copy(out, b.components)
	return out
}

func (b *PaymentBuilder) CostComponent(chargeIdentifier string) (CostComponent, bool) {
	i, ok := b.index[chargeIdentifier]
	if !ok {
		return CostComponent{}, false
	}
	return b.components[i], true
}

// BalanceAdjustments returns the signed movement per designator: negative for
// money leaving a designator, positive for money arriving.
func (b *PaymentBuilder) BalanceAdjustments() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(b.adjustments))
	for designator, amount := range b.adjustments {
		out[designator] = amount
	}
	return out
}

// PrincipalTotal sums the principal-bearing components.
func (b *PaymentBuilder) PrincipalTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.components {
		if c.PrincipalBearing {
			total = total.Add(c.Amount)
		}
	}
	return total
}

// FeeTotal sums every component that is not principal-bearing.
func (b *PaymentBuilder) FeeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b.components {
		if !c.PrincipalBearing {
			total = total.Add(c.Amount)
		}
	}
	return total
}

// roundAmount rounds half-to-even to the currency's minor-unit digits.
func roundAmount(amount decimal.Decimal, minorCurrencyUnitDigits int32) decimal.Decimal {
	return amount.RoundBank(minorCurrencyUnitDigits)
}
