package quote

import (
	"github.com/shopspring/decimal"

	"seafood-agent/internal/domain"
)

// catalogPrice picks the authoritative unit prices of a product for mode.
func catalogPrice(p domain.Product, mode domain.PricingMode) (decimal.Decimal, decimal.NullDecimal) {
	divisa := p.UnitPriceBCV
	if p.UnitPriceDivisa.Valid {
		divisa = p.UnitPriceDivisa.Decimal
	}
	switch mode {
	case domain.PricingDivisas:
		return divisa, decimal.NullDecimal{}
	case domain.PricingDual:
		return p.UnitPriceBCV, decimal.NewNullDecimal(divisa)
	default:
		return p.UnitPriceBCV, decimal.NullDecimal{}
	}
}

// customPrice applies an explicit price. In dual mode a missing secondary
// price falls back to the primary one.
func customPrice(primary decimal.Decimal, secondary *decimal.Decimal, mode domain.PricingMode) (decimal.Decimal, decimal.NullDecimal) {
	if mode != domain.PricingDual {
		return primary, decimal.NullDecimal{}
	}
	if secondary != nil {
		return primary, decimal.NewNullDecimal(*secondary)
	}
	return primary, decimal.NewNullDecimal(primary)
}

// Recompute re-derives every subtotal and total of q from its items, the
// delivery charge and rate.
func Recompute(q *domain.Quote, rate decimal.Decimal) {
	dual := q.PricingMode == domain.PricingDual
	sumPrimary := decimal.Zero
	sumSecondary := decimal.Zero
	for i := range q.Items {
		it := &q.Items[i]
		it.UnitPricePrimary = domain.Round2(it.UnitPricePrimary)
		it.SubtotalPrimary = domain.Round2(it.Quantity.Mul(it.UnitPricePrimary))
		sumPrimary = sumPrimary.Add(it.SubtotalPrimary)
		if !dual {
			it.UnitPriceSecondary = decimal.NullDecimal{}
			it.SubtotalSecondary = decimal.NullDecimal{}
			continue
		}
		unit := it.UnitPricePrimary
		if it.UnitPriceSecondary.Valid {
			unit = domain.Round2(it.UnitPriceSecondary.Decimal)
		}
		it.UnitPriceSecondary = decimal.NewNullDecimal(unit)
		sub := domain.Round2(it.Quantity.Mul(unit))
		it.SubtotalSecondary = decimal.NewNullDecimal(sub)
		sumSecondary = sumSecondary.Add(sub)
	}

	q.DeliveryCharge = domain.Round2(q.DeliveryCharge)
	q.TotalPrimary = sumPrimary.Add(q.DeliveryCharge)
	q.ExchangeRate = rate
	q.TotalBs = domain.Round2(q.TotalPrimary.Mul(rate))
	if dual {
		q.TotalSecondary = decimal.NewNullDecimal(sumSecondary.Add(q.DeliveryCharge))
	} else {
		q.TotalSecondary = decimal.NullDecimal{}
	}
}
