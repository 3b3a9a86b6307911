package usecase

import (
	"context"
	"fmt"
	"strings"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/intent"
	"seafood-agent/internal/quote"
)

const quoteListLimit = 10

func formatQuote(q domain.Quote) string {
	return quote.Format(q)
}

func writeSkipped(b *strings.Builder, skipped []string) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintf(b, "\n⚠️ Sin precio, no incluidos: %s", strings.Join(skipped, ", "))
}

// extract sends the message to the line-item extractor with the names of the
// available products.
func (a *Assistant) extract(ctx context.Context, text string) (quote.Extraction, error) {
	products, err := a.backend.Catalog.Products(ctx)
	if err != nil {
		return quote.Extraction{}, err
	}
	names := make([]string, 0, len(products))
	for _, p := range products {
		if p.Available {
			names = append(names, p.Name)
		}
	}
	return a.router.Extract(ctx, text, names)
}

func (a *Assistant) createQuote(ctx context.Context, t *turn, it intent.CreateQuote) (string, error) {
	mode, err := domain.ParsePricingMode(it.PricingMode)
	if err != nil {
		return "", err
	}
	ex, err := a.extract(ctx, t.text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(ex.CustomerName) == "" {
		ex.CustomerName = strings.TrimSpace(it.Customer)
	}
	out, err := a.backend.Quotes.Create(ctx, ex, mode, a.backend.Ledger)
	if err != nil {
		return "", err
	}
	t.rememberQuote(out.Quote.ID)

	var b strings.Builder
	b.WriteString(formatQuote(out.Quote))
	if out.Linked != nil && out.Customer != nil {
		t.rememberCustomer(out.Customer.ID)
		fmt.Fprintf(&b, "\n\n📒 Cargado a la cuenta de %s (movimiento #%d).", customerTag(out.Customer.Name), out.Linked.ID)
	}
	writeSkipped(&b, out.Skipped)
	return b.String(), nil
}

func (a *Assistant) viewQuote(ctx context.Context, t *turn, explicit *uint, send bool) (string, error) {
	id, err := a.quoteRef(t, explicit)
	if err != nil {
		return "", err
	}
	q, err := a.backend.Quotes.Get(ctx, id)
	if err != nil {
		return "", err
	}
	t.rememberQuote(q.ID)
	if send {
		return "📤 Listo para reenviar:\n\n" + formatQuote(q), nil
	}
	return formatQuote(q), nil
}

func (a *Assistant) deleteQuote(ctx context.Context, t *turn, it intent.DeleteQuote) (string, error) {
	id, err := a.quoteRef(t, it.QuoteID)
	if err != nil {
		return "", err
	}
	if err := a.backend.Quotes.Delete(ctx, id); err != nil {
		return "", err
	}
	if t.cc.LastQuoteID != nil && *t.cc.LastQuoteID == id {
		t.cc.LastQuoteID = nil
	}
	return fmt.Sprintf("🗑️ Presupuesto #%d eliminado.", id), nil
}

func (a *Assistant) markQuotePaid(ctx context.Context, t *turn, it intent.MarkQuotePaid) (string, error) {
	ids := it.QuoteIDs
	if len(ids) == 0 {
		id, err := a.quoteRef(t, nil)
		if err != nil {
			return "", err
		}
		ids = []uint{id}
	}
	if err := a.backend.Quotes.SetStatus(ctx, ids, it.Paid); err != nil {
		return "", err
	}
	state := "pendiente"
	if it.Paid {
		state = "pagado"
	}
	if len(ids) == 1 {
		t.rememberQuote(ids[0])
		return fmt.Sprintf("✅ Presupuesto #%d marcado como %s.", ids[0], state), nil
	}
	t.forgetQuote()
	refs := make([]string, len(ids))
	for i, id := range ids {
		refs[i] = fmt.Sprintf("#%d", id)
	}
	return fmt.Sprintf("✅ %d presupuestos marcados como %s: %s", len(ids), state, strings.Join(refs, ", ")), nil
}

func (a *Assistant) searchQuotes(ctx context.Context, t *turn, it intent.SearchQuotes) (string, error) {
	var (
		quotes []domain.Quote
		title  string
		err    error
	)
	if name := strings.TrimSpace(it.Customer); name != "" {
		quotes, err = a.backend.Quotes.SearchByCustomer(ctx, name, quoteListLimit)
		title = "Presupuestos de " + name
	} else {
		quotes, err = a.backend.Quotes.List(ctx, "", quoteListLimit)
		title = "Últimos presupuestos"
	}
	if err != nil {
		return "", err
	}
	if len(quotes) == 0 {
		return "🔍 No hay presupuestos que coincidan.", nil
	}
	if len(quotes) == 1 {
		t.rememberQuote(quotes[0].ID)
	} else {
		t.forgetQuote()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 %s:\n", title)
	for _, q := range quotes {
		b.WriteString("• " + quote.Summary(q) + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *Assistant) editQuote(ctx context.Context, t *turn, it intent.EditQuote) (string, error) {
	id, err := a.quoteRef(t, it.QuoteID)
	if err != nil {
		return "", err
	}
	q, err := a.backend.Quotes.Edit(ctx, id, it.Ops)
	if err != nil {
		return "", err
	}
	t.rememberQuote(q.ID)
	reply := "✏️ Presupuesto actualizado.\n\n" + formatQuote(q)
	linked, err := a.backend.Quotes.Linked(ctx, q.ID)
	if err != nil {
		return "", err
	}
	if linked != nil {
		reply += fmt.Sprintf("\n\n📒 Movimiento #%d ajustado a %s.", linked.ID, linked.Amount())
	}
	return reply, nil
}

func (a *Assistant) linkQuote(ctx context.Context, t *turn, it intent.LinkQuote) (string, error) {
	id, err := a.quoteRef(t, it.QuoteID)
	if err != nil {
		return "", err
	}
	c, err := a.customerRef(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	tx, err := a.backend.Ledger.LinkQuote(ctx, id, c.ID)
	if err != nil {
		return "", err
	}
	t.rememberQuote(id)
	t.rememberCustomer(c.ID)
	return fmt.Sprintf("🔗 Presupuesto #%d vinculado a %s (movimiento #%d, %s).", id, customerTag(c.Name), tx.ID, tx.Amount()), nil
}
