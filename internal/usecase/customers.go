package usecase

import (
	"context"
	"fmt"
	"strings"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/intent"
	"seafood-agent/internal/ledger"
)

const defaultMovements = 10

func (a *Assistant) createCustomer(ctx context.Context, t *turn, it intent.CreateCustomer) (string, error) {
	c, err := a.backend.Ledger.CreateCustomer(ctx, it.Name, it.Phone)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(c.ID)
	reply := "✅ Cliente " + customerTag(c.Name) + " registrado."
	if c.Phone != nil {
		reply += " Teléfono: " + *c.Phone + "."
	}
	return reply, nil
}

func (a *Assistant) renameCustomer(ctx context.Context, t *turn, it intent.RenameCustomer) (string, error) {
	c, err := a.customerRef(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	renamed, err := a.backend.Ledger.RenameCustomer(ctx, c.ID, it.NewName)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(renamed.ID)
	return fmt.Sprintf("✏️ %s ahora se llama %s.", c.Name, customerTag(renamed.Name)), nil
}

func (a *Assistant) setCustomerPhone(ctx context.Context, t *turn, it intent.SetCustomerPhone) (string, error) {
	c, err := a.customerRef(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	updated, err := a.backend.Ledger.SetPhone(ctx, c.ID, it.Phone)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(updated.ID)
	return fmt.Sprintf("📞 Teléfono de %s actualizado: %s", customerTag(updated.Name), *updated.Phone), nil
}

func (a *Assistant) deactivateCustomer(ctx context.Context, t *turn, it intent.DeactivateCustomer) (string, error) {
	c, err := a.customerRef(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	if err := a.backend.Ledger.DeactivateCustomer(ctx, c.ID); err != nil {
		return "", err
	}
	t.cc.LastCustomerID = nil
	return fmt.Sprintf("🗑️ Cliente %s desactivado. Su historial se conserva.", c.Name), nil
}

func (a *Assistant) viewBalance(ctx context.Context, t *turn, it intent.ViewBalance) (string, error) {
	c, err := a.customerRef(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	b, err := a.backend.Ledger.Balance(ctx, c.ID)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(c.ID)
	return renderBalance(c, b), nil
}

func (a *Assistant) viewMovements(ctx context.Context, t *turn, it intent.ViewMovements) (string, error) {
	c, err := a.customerRef(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	limit := it.Limit
	if limit <= 0 {
		limit = defaultMovements
	}
	txs, err := a.backend.Ledger.Movements(ctx, c.ID, limit)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(c.ID)
	if len(txs) == 0 {
		return customerTag(c.Name) + " no tiene movimientos.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📒 Últimos movimientos de %s:\n", customerTag(c.Name))
	for _, tx := range txs {
		b.WriteString(movementLine(tx))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *Assistant) recordTransaction(ctx context.Context, t *turn, it intent.RecordTransaction) (string, error) {
	kind := domain.TxPurchase
	if intent.IsPayment(it.Type) {
		kind = domain.TxPayment
	}
	lane, err := domain.ParseLane(it.Lane)
	if err != nil {
		return "", err
	}
	date, err := intent.ParseDate(it.Date)
	if err != nil {
		return "", err
	}
	c, created, err := a.resolveOrCreate(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	tx, err := a.backend.Ledger.Record(ctx, ledger.Entry{
		CustomerID:    c.ID,
		Type:          kind,
		Amount:        domain.Simple(lane, it.Amount),
		Description:   it.Description,
		Date:          date,
		PaymentMethod: it.PaymentMethod,
	})
	if err != nil {
		return "", err
	}
	t.rememberCustomer(c.ID)
	bal, err := a.backend.Ledger.Balance(ctx, c.ID)
	if err != nil {
		return "", err
	}

	verb := "Compra"
	if kind == domain.TxPayment {
		verb = "Abono"
	}
	var b strings.Builder
	if created {
		fmt.Fprintf(&b, "🆕 Cliente %s creado.\n", customerTag(c.Name))
	}
	fmt.Fprintf(&b, "✅ %s de %s anotado a %s (movimiento #%d).\n", verb, tx.Amount(), customerTag(c.Name), tx.ID)
	fmt.Fprintf(&b, "Saldo %s: %s", lane.Label(), domain.FormatUSD(bal.Lane(lane)))
	return b.String(), nil
}

// recordPurchaseItems prices a purchase given as line items, stores it as a
// quote and charges that quote to the customer's account.
func (a *Assistant) recordPurchaseItems(ctx context.Context, t *turn, it intent.RecordPurchaseItems) (string, error) {
	mode, err := domain.ParsePricingMode(it.PricingMode)
	if err != nil {
		return "", err
	}
	c, created, err := a.resolveOrCreate(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	ex, err := a.extract(ctx, t.text)
	if err != nil {
		return "", err
	}
	ex.CustomerName = c.Name
	out, err := a.backend.Quotes.Create(ctx, ex, mode, nil)
	if err != nil {
		return "", err
	}
	t.rememberQuote(out.Quote.ID)
	t.rememberCustomer(c.ID)
	tx, err := a.backend.Ledger.LinkQuote(ctx, out.Quote.ID, c.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if created {
		fmt.Fprintf(&b, "🆕 Cliente %s creado.\n", customerTag(c.Name))
	}
	b.WriteString(formatQuote(out.Quote))
	fmt.Fprintf(&b, "\n\n✅ Cargado a la cuenta de %s (movimiento #%d).", customerTag(c.Name), tx.ID)
	writeSkipped(&b, out.Skipped)
	return b.String(), nil
}

func (a *Assistant) markTransactionPaid(ctx context.Context, t *turn, it intent.MarkTransactionPaid) (string, error) {
	id, err := a.transactionRef(t, it.TransactionID)
	if err != nil {
		return "", err
	}
	tx, err := a.backend.Ledger.SetPaid(ctx, id, it.Paid)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(tx.CustomerID)
	state := "pendiente"
	if it.Paid {
		state = "pagado"
	}
	reply := fmt.Sprintf("✅ Movimiento #%d marcado como %s.", tx.ID, state)
	if tx.LinkedQuoteID != nil {
		t.rememberQuote(*tx.LinkedQuoteID)
		reply += fmt.Sprintf(" Presupuesto #%d actualizado también.", *tx.LinkedQuoteID)
	}
	return reply, nil
}

func (a *Assistant) deleteTransaction(ctx context.Context, t *turn, it intent.DeleteTransaction) (string, error) {
	id, err := a.transactionRef(t, it.TransactionID)
	if err != nil {
		return "", err
	}
	tx, err := a.backend.Ledger.DeleteTransaction(ctx, id)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(tx.CustomerID)
	reply := fmt.Sprintf("🗑️ Movimiento #%d eliminado (%s, %s).", tx.ID, tx.Description, tx.Amount())
	if tx.LinkedQuoteID != nil {
		t.rememberQuote(*tx.LinkedQuoteID)
		reply += fmt.Sprintf(" El presupuesto #%d conserva su estado.", *tx.LinkedQuoteID)
	}
	return reply, nil
}

func (a *Assistant) shareLink(ctx context.Context, t *turn, it intent.ShareLink) (string, error) {
	c, err := a.customerRef(ctx, t, it.Customer)
	if err != nil {
		return "", err
	}
	t.rememberCustomer(c.ID)
	if it.Revoke {
		if err := a.backend.Ledger.RevokeShareToken(ctx, c.ID); err != nil {
			return "", err
		}
		return "🔒 Enlace de " + customerTag(c.Name) + " desactivado.", nil
	}
	token, err := a.backend.Ledger.ShareToken(ctx, c.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🔗 Enlace de consulta para %s:\n%s/cuenta/%s", customerTag(c.Name), a.shareBaseURL, token), nil
}

// resolveOrCreate finds the customer, creating it when nothing resembles the
// name. A name with close matches is reported with suggestions instead.
func (a *Assistant) resolveOrCreate(ctx context.Context, t *turn, name string) (domain.Customer, bool, error) {
	if strings.TrimSpace(name) == "" {
		c, err := a.customerRef(ctx, t, "")
		return c, false, err
	}
	return a.backend.Ledger.FindOrCreateCustomer(ctx, name)
}

func renderBalance(c domain.Customer, b domain.Balance) string {
	if b.IsZero() {
		return "💰 " + customerTag(c.Name) + " no tiene saldo pendiente."
	}
	var s strings.Builder
	fmt.Fprintf(&s, "💰 Saldo de %s:\n", customerTag(c.Name))
	for _, l := range domain.Lanes {
		if v := b.Lane(l); !v.IsZero() {
			fmt.Fprintf(&s, "• %s: %s\n", l.Label(), domain.FormatUSD(v))
		}
	}
	if !b.DualDivisas.IsZero() {
		fmt.Fprintf(&s, "• Divisas (presupuestos duales): %s\n", domain.FormatUSD(b.DualDivisas))
	}
	return strings.TrimRight(s.String(), "\n")
}

func movementLine(tx domain.Transaction) string {
	kind := "Compra"
	if tx.Type == domain.TxPayment {
		kind = "Abono"
	}
	line := fmt.Sprintf("• #%d %s %s %s: %s", tx.ID, tx.Date.Format("02/01"), kind, tx.Amount(), tx.Description)
	if tx.Type == domain.TxPurchase && tx.IsPaid {
		line += " ✅"
	}
	return line
}
