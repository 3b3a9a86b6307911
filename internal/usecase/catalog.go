package usecase

import (
	"context"
	"fmt"
	"strings"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/intent"
	"seafood-agent/internal/textnorm"
)

const settingTheme = "theme"

var themes = []string{"claro", "oscuro", "oceano", "coral"}

func (a *Assistant) listProducts(ctx context.Context, it intent.ListProducts) (string, error) {
	products, err := a.backend.Catalog.Products(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	n := 0
	for _, p := range products {
		if it.Category != "" && !textnorm.Contains(p.Category, it.Category) {
			continue
		}
		n++
		line := fmt.Sprintf("• %s: %s/%s", p.Name, domain.FormatUSD(p.UnitPriceBCV), p.Unit)
		if p.UnitPriceDivisa.Valid {
			line += fmt.Sprintf(" (divisas %s)", domain.FormatUSD(p.UnitPriceDivisa.Decimal))
		}
		if !p.Available {
			line += " 🚫 agotado"
		}
		b.WriteString(line + "\n")
	}
	if n == 0 {
		return "🔍 No hay productos en esa categoría.", nil
	}
	return "🦐 Productos:\n" + strings.TrimRight(b.String(), "\n"), nil
}

func (a *Assistant) repriceProduct(ctx context.Context, it intent.RepriceProduct) (string, error) {
	p, err := a.backend.Catalog.Reprice(ctx, it.Product, it.PriceBCV, it.PriceDivisa)
	if err != nil {
		return "", err
	}
	reply := fmt.Sprintf("💲 %s ahora cuesta %s/%s", p.Name, domain.FormatUSD(p.UnitPriceBCV), p.Unit)
	if p.UnitPriceDivisa.Valid {
		reply += fmt.Sprintf(" (divisas %s)", domain.FormatUSD(p.UnitPriceDivisa.Decimal))
	}
	return reply + ".", nil
}

func (a *Assistant) setAvailability(ctx context.Context, it intent.SetAvailability) (string, error) {
	p, err := a.backend.Catalog.SetAvailable(ctx, it.Product, it.Available)
	if err != nil {
		return "", err
	}
	if p.Available {
		return "✅ " + p.Name + " está disponible.", nil
	}
	return "🚫 " + p.Name + " marcado como agotado.", nil
}

func (a *Assistant) setTheme(ctx context.Context, it intent.SetTheme) (string, error) {
	theme := textnorm.Fold(it.Theme)
	if theme == "" {
		current, ok, err := a.backend.Catalog.Setting(ctx, settingTheme)
		if err != nil {
			return "", err
		}
		if !ok {
			current = themes[0]
		}
		return fmt.Sprintf("🎨 Tema actual: %s. Disponibles: %s.", current, strings.Join(themes, ", ")), nil
	}
	known := false
	for _, t := range themes {
		if t == theme {
			known = true
			break
		}
	}
	if !known {
		return "", domain.InvalidInput("tema desconocido %q, usa uno de: %s", it.Theme, strings.Join(themes, ", "))
	}
	if err := a.backend.Catalog.PutSetting(ctx, settingTheme, theme); err != nil {
		return "", err
	}
	return "🎨 Tema del catálogo cambiado a " + theme + ".", nil
}

func (a *Assistant) viewStats(ctx context.Context) (string, error) {
	customers, err := a.backend.Store.CountActiveCustomers(ctx)
	if err != nil {
		return "", err
	}
	pending, err := a.backend.Store.CountQuotes(ctx, domain.QuotePending)
	if err != nil {
		return "", err
	}
	paid, err := a.backend.Store.CountQuotes(ctx, domain.QuotePaid)
	if err != nil {
		return "", err
	}
	owed, err := a.backend.Ledger.Outstanding(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("📊 Resumen:\n")
	fmt.Fprintf(&b, "• Clientes activos: %d\n", customers)
	fmt.Fprintf(&b, "• Presupuestos pendientes: %d\n", pending)
	fmt.Fprintf(&b, "• Presupuestos pagados: %d\n", paid)
	b.WriteString("• Por cobrar:")
	for _, l := range domain.Lanes {
		fmt.Fprintf(&b, " %s %s;", l.Label(), domain.FormatUSD(owed.Lane(l)))
	}
	fmt.Fprintf(&b, " Divisas (duales) %s", domain.FormatUSD(owed.DualDivisas))
	return b.String(), nil
}

func (a *Assistant) exchangeRate(ctx context.Context, it intent.ExchangeRate) (string, error) {
	if it.Rate != nil {
		r, err := a.backend.Catalog.SetRate(ctx, *it.Rate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("💱 Tasa actualizada: Bs. %s por dólar.", r.Rate.StringFixed(2)), nil
	}
	r, err := a.backend.Catalog.Rate(ctx)
	if err != nil {
		return "", err
	}
	reply := fmt.Sprintf("💱 Tasa actual: Bs. %s por dólar", r.Rate.StringFixed(2))
	if !r.AsOf.IsZero() {
		reply += " (desde el " + r.AsOf.Format("02/01/2006") + ")"
	}
	return reply + ".", nil
}

const helpText = `📋 *Lo que puedo hacer*

*Clientes*
• "crea el cliente Delcy 0414-1234567"
• "anota a delcy $20 de calamar" / "abono de $10 de delcy en divisas"
• "saldo de delcy" / "movimientos de delcy"
• "marca pagado el movimiento 77" / "borra el movimiento 77"
• "link de delcy" / "quita el link de delcy"

*Presupuestos*
• "presupuesto de 2kg jumbo para María"
• "agrega $5 de delivery al presupuesto 12" / "quita el delivery"
• "cambia el calamar por pulpo" / "ponle 3kg al jumbo"
• "marca pagados los presupuestos 12 y 13" / "búscame los presupuestos de María"

*Catálogo y configuración*
• "productos" / "el pulpo ahora vale $16" / "se acabó el calamar"
• "tasa 36.5" / "estadísticas" / "tema oscuro"`
