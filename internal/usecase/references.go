package usecase

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"seafood-agent/internal/domain"
)

// Replies embed these markers so a follow-up like "márcalo pagado" can find
// what the previous reply was about.
var (
	quoteMarker       = regexp.MustCompile(`(?i)presupuesto\s+#(\d+)`)
	transactionMarker = regexp.MustCompile(`(?i)movimiento\s+#(\d+)`)
	customerMarker    = regexp.MustCompile(`👤 \*([^*\n]+)\*`)
)

func customerTag(name string) string {
	return "👤 *" + name + "*"
}

func lastAssistantReply(history []domain.ChatTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant {
			return history[i].Text
		}
	}
	return ""
}

// scanID finds the id a reply is about. A reply naming several different
// ids is not about any one of them.
func scanID(pattern *regexp.Regexp, text string) (uint, bool) {
	var id uint
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil || n == 0 {
			continue
		}
		if id != 0 && uint(n) != id {
			return 0, false
		}
		id = uint(n)
	}
	return id, id != 0
}

// rememberQuote records the quote the current reply is about. Every handler
// whose reply names a single quote calls it, so the record is never older
// than the reply markers.
func (t *turn) rememberQuote(id uint) {
	t.cc.LastQuoteID = &id
}

// forgetQuote is for replies that name several quotes; a follow-up must then
// say which one.
func (t *turn) forgetQuote() {
	t.cc.LastQuoteID = nil
}

func (t *turn) rememberCustomer(id uint) {
	t.cc.LastCustomerID = &id
}

// quoteRef resolves the quote a command refers to: explicit id, then the
// context record, then the previous reply.
func (a *Assistant) quoteRef(t *turn, explicit *uint) (uint, error) {
	if explicit != nil && *explicit > 0 {
		return *explicit, nil
	}
	if t.cc.LastQuoteID != nil {
		return *t.cc.LastQuoteID, nil
	}
	if id, ok := scanID(quoteMarker, lastAssistantReply(t.history)); ok {
		return id, nil
	}
	return 0, domain.InvalidInput("¿de qué presupuesto? Indica el número, por ejemplo \"presupuesto 12\"")
}

func (a *Assistant) transactionRef(t *turn, explicit *uint) (uint, error) {
	if explicit != nil && *explicit > 0 {
		return *explicit, nil
	}
	if id, ok := scanID(transactionMarker, lastAssistantReply(t.history)); ok {
		return id, nil
	}
	return 0, domain.InvalidInput("¿qué movimiento? Indica el número, por ejemplo \"movimiento 77\"")
}

// customerRef resolves a customer by name or, when the name is omitted, from
// the conversation.
func (a *Assistant) customerRef(ctx context.Context, t *turn, name string) (domain.Customer, error) {
	if strings.TrimSpace(name) != "" {
		return a.backend.Ledger.ResolveCustomer(ctx, name)
	}
	if t.cc.LastCustomerID != nil {
		c, err := a.backend.Ledger.Customer(ctx, *t.cc.LastCustomerID)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Customer{}, err
		}
	}
	if m := customerMarker.FindStringSubmatch(lastAssistantReply(t.history)); m != nil {
		return a.backend.Ledger.ResolveCustomer(ctx, m[1])
	}
	return domain.Customer{}, domain.InvalidInput("¿de qué cliente? Indica el nombre")
}
