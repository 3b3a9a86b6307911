package quote

import (
	"fmt"
	"strings"

	"seafood-agent/internal/domain"
)

// Format renders a quote as chat text.
func Format(q domain.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *Presupuesto #%d* (%s)\n", q.ID, q.Date.Format("02/01/2006"))
	if q.CustomerName != nil {
		fmt.Fprintf(&b, "Cliente: *%s*\n", *q.CustomerName)
	}
	dual := q.PricingMode == domain.PricingDual
	for _, it := range q.Items {
		if dual {
			fmt.Fprintf(&b, "• %s %s %s × %s / %s = %s / %s\n",
				it.Quantity.String(), it.Unit, it.Name,
				domain.FormatUSD(it.UnitPricePrimary), domain.FormatUSD(it.UnitPriceSecondary.Decimal),
				domain.FormatUSD(it.SubtotalPrimary), domain.FormatUSD(it.SubtotalSecondary.Decimal))
			continue
		}
		fmt.Fprintf(&b, "• %s %s %s × %s = %s\n",
			it.Quantity.String(), it.Unit, it.Name,
			domain.FormatUSD(it.UnitPricePrimary), domain.FormatUSD(it.SubtotalPrimary))
	}
	if q.DeliveryCharge.IsPositive() {
		fmt.Fprintf(&b, "Delivery: %s\n", domain.FormatUSD(q.DeliveryCharge))
	}
	switch q.PricingMode {
	case domain.PricingDual:
		fmt.Fprintf(&b, "*Total BCV: %s*\n*Total divisas: %s*\n", domain.FormatUSD(q.TotalPrimary), domain.FormatUSD(q.TotalSecondary.Decimal))
	case domain.PricingDivisas:
		fmt.Fprintf(&b, "*Total (divisas): %s*\n", domain.FormatUSD(q.TotalPrimary))
	default:
		fmt.Fprintf(&b, "*Total: %s*\n", domain.FormatUSD(q.TotalPrimary))
	}
	if q.PricingMode != domain.PricingDivisas {
		if q.HideRate {
			fmt.Fprintf(&b, "Total %s\n", domain.FormatBs(q.TotalBs))
		} else {
			fmt.Fprintf(&b, "Total %s (tasa %s)\n", domain.FormatBs(q.TotalBs), q.ExchangeRate.StringFixed(2))
		}
	}
	status := "pendiente"
	if q.Status == domain.QuotePaid {
		status = "pagado ✅"
	}
	fmt.Fprintf(&b, "Estado: %s", status)
	return b.String()
}

// Summary is a one-line description used in lists.
func Summary(q domain.Quote) string {
	name := "sin cliente"
	if q.CustomerName != nil {
		name = *q.CustomerName
	}
	status := "pendiente"
	if q.Status == domain.QuotePaid {
		status = "pagado"
	}
	return fmt.Sprintf("#%d · %s · %s · %s · %s", q.ID, q.Date.Format("02/01"), name, domain.FormatUSD(q.TotalPrimary), status)
}
