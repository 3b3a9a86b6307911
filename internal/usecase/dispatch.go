package usecase

import (
	"context"

	"seafood-agent/internal/intent"
)

// dispatch runs the single handler for an executed intent.
func (a *Assistant) dispatch(ctx context.Context, t *turn, in intent.Intent) (string, error) {
	switch in.(type) {
	case intent.Help:
		return helpText, nil
	case intent.Chat:
		return conversational(intent.Result{Message: t.message}), nil
	case intent.ClarificationReply:
		return "🤷 No hay ninguna pregunta pendiente. Escribe la instrucción completa.", nil
	}

	if err := a.connected(ctx); err != nil {
		return "", err
	}

	switch it := in.(type) {
	case intent.CreateCustomer:
		return a.createCustomer(ctx, t, it)
	case intent.RenameCustomer:
		return a.renameCustomer(ctx, t, it)
	case intent.SetCustomerPhone:
		return a.setCustomerPhone(ctx, t, it)
	case intent.DeactivateCustomer:
		return a.deactivateCustomer(ctx, t, it)
	case intent.ViewBalance:
		return a.viewBalance(ctx, t, it)
	case intent.ViewMovements:
		return a.viewMovements(ctx, t, it)
	case intent.RecordTransaction:
		return a.recordTransaction(ctx, t, it)
	case intent.RecordPurchaseItems:
		return a.recordPurchaseItems(ctx, t, it)
	case intent.MarkTransactionPaid:
		return a.markTransactionPaid(ctx, t, it)
	case intent.DeleteTransaction:
		return a.deleteTransaction(ctx, t, it)
	case intent.ShareLink:
		return a.shareLink(ctx, t, it)

	case intent.CreateQuote:
		return a.createQuote(ctx, t, it)
	case intent.ViewQuote:
		return a.viewQuote(ctx, t, it.QuoteID, false)
	case intent.SendQuote:
		return a.viewQuote(ctx, t, it.QuoteID, true)
	case intent.DeleteQuote:
		return a.deleteQuote(ctx, t, it)
	case intent.MarkQuotePaid:
		return a.markQuotePaid(ctx, t, it)
	case intent.SearchQuotes:
		return a.searchQuotes(ctx, t, it)
	case intent.EditQuote:
		return a.editQuote(ctx, t, it)
	case intent.LinkQuote:
		return a.linkQuote(ctx, t, it)

	case intent.ListProducts:
		return a.listProducts(ctx, it)
	case intent.RepriceProduct:
		return a.repriceProduct(ctx, it)
	case intent.SetAvailability:
		return a.setAvailability(ctx, it)

	case intent.SetTheme:
		return a.setTheme(ctx, it)
	case intent.ViewStats:
		return a.viewStats(ctx)
	case intent.ExchangeRate:
		return a.exchangeRate(ctx, it)
	}
	return "", newError(ErrorInternal, "unhandled_intent", nil)
}
