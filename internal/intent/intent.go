// Package intent classifies chat text into a closed set of tagged intents,
// gates them by confidence and runs the numbered clarification dialog.
package intent

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/quote"
)

// Intent is one interpretation of a message. The set is closed: every
// implementation lives in this file and the dispatcher switches over all of
// them.
type Intent interface {
	Tag() string
}

// Result is the classifier output for one message.
type Result struct {
	Intent       Intent
	Confidence   float64
	Message      string
	Description  string
	Alternatives []Alternative
}

// Alternative is a competing interpretation offered when confidence is low.
type Alternative struct {
	Intent      Intent
	Description string
}

// Customer operations.

type CreateCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type RenameCustomer struct {
	Customer string `json:"customer"`
	NewName  string `json:"new_name"`
}

type SetCustomerPhone struct {
	Customer string `json:"customer"`
	Phone    string `json:"phone"`
}

type DeactivateCustomer struct {
	Customer string `json:"customer"`
}

// ViewBalance with an empty Customer refers to the customer last discussed.
type ViewBalance struct {
	Customer string `json:"customer"`
}

type ViewMovements struct {
	Customer string `json:"customer"`
	Limit    int    `json:"limit"`
}

// RecordTransaction appends a purchase or payment to a customer's ledger.
type RecordTransaction struct {
	Customer      string          `json:"customer"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Lane          string          `json:"lane"`
	Description   string          `json:"description"`
	PaymentMethod string          `json:"payment_method"`
	Date          string          `json:"date"`
}

// RecordPurchaseItems is a purchase described with line items. The items are
// extracted from the original message in a second call.
type RecordPurchaseItems struct {
	Customer    string `json:"customer"`
	PricingMode string `json:"pricing_mode"`
}

type MarkTransactionPaid struct {
	TransactionID *uint `json:"transaction_id"`
	Paid          bool  `json:"paid"`
}

type DeleteTransaction struct {
	TransactionID *uint `json:"transaction_id"`
}

// ShareLink generates, or with Revoke clears, a customer's read-only link.
type ShareLink struct {
	Customer string `json:"customer"`
	Revoke   bool   `json:"revoke"`
}

// Quote operations. A nil QuoteID refers to the quote last discussed.

type CreateQuote struct {
	PricingMode string `json:"pricing_mode"`
	Customer    string `json:"customer"`
}

type ViewQuote struct {
	QuoteID *uint `json:"quote_id"`
}

type DeleteQuote struct {
	QuoteID *uint `json:"quote_id"`
}

// MarkQuotePaid covers single, batch and contextual marking; no ids means
// the quote last discussed.
type MarkQuotePaid struct {
	QuoteIDs []uint `json:"quote_ids"`
	Paid     bool   `json:"paid"`
}

type SendQuote struct {
	QuoteID *uint `json:"quote_id"`
}

type SearchQuotes struct {
	Customer string `json:"customer"`
}

type EditQuote struct {
	QuoteID *uint
	Ops     []quote.EditOp
}

type LinkQuote struct {
	QuoteID  *uint  `json:"quote_id"`
	Customer string `json:"customer"`
}

// Product operations.

type ListProducts struct {
	Category string `json:"category"`
}

type RepriceProduct struct {
	Product     string           `json:"product"`
	PriceBCV    *decimal.Decimal `json:"price_bcv"`
	PriceDivisa *decimal.Decimal `json:"price_divisa"`
}

type SetAvailability struct {
	Product   string `json:"product"`
	Available bool   `json:"available"`
}

// Configuration operations.

type SetTheme struct {
	Theme string `json:"theme"`
}

type ViewStats struct{}

// ExchangeRate shows the current rate, or sets it when Rate is present.
type ExchangeRate struct {
	Rate *decimal.Decimal `json:"rate"`
}

type Help struct{}

// Chat is a conversational reply with no side effects.
type Chat struct{}

// ClarificationReply picks an option of an open clarification menu.
type ClarificationReply struct {
	Choice int `json:"choice"`
}

func (CreateCustomer) Tag() string      { return "create_customer" }
func (RenameCustomer) Tag() string      { return "rename_customer" }
func (SetCustomerPhone) Tag() string    { return "set_customer_phone" }
func (DeactivateCustomer) Tag() string  { return "deactivate_customer" }
func (ViewBalance) Tag() string         { return "view_balance" }
func (ViewMovements) Tag() string       { return "view_movements" }
func (RecordTransaction) Tag() string   { return "record_transaction" }
func (RecordPurchaseItems) Tag() string { return "record_purchase_items" }
func (MarkTransactionPaid) Tag() string { return "mark_transaction_paid" }
func (DeleteTransaction) Tag() string   { return "delete_transaction" }
func (ShareLink) Tag() string           { return "share_link" }
func (CreateQuote) Tag() string         { return "create_quote" }
func (ViewQuote) Tag() string           { return "view_quote" }
func (DeleteQuote) Tag() string         { return "delete_quote" }
func (MarkQuotePaid) Tag() string       { return "mark_quote_paid" }
func (SendQuote) Tag() string           { return "send_quote" }
func (SearchQuotes) Tag() string        { return "search_quotes" }
func (EditQuote) Tag() string           { return "edit_quote" }
func (LinkQuote) Tag() string           { return "link_quote" }
func (ListProducts) Tag() string        { return "list_products" }
func (RepriceProduct) Tag() string      { return "reprice_product" }
func (SetAvailability) Tag() string     { return "set_availability" }
func (SetTheme) Tag() string            { return "set_theme" }
func (ViewStats) Tag() string           { return "view_stats" }
func (ExchangeRate) Tag() string        { return "exchange_rate" }
func (Help) Tag() string                { return "help" }
func (Chat) Tag() string                { return "chat" }
func (ClarificationReply) Tag() string  { return "clarification_reply" }

// Describe renders a short Spanish description of an intent, used for menu
// options the classifier did not describe itself.
func Describe(i Intent) string {
	switch v := i.(type) {
	case CreateCustomer:
		return "Crear el cliente " + v.Name
	case RenameCustomer:
		return fmt.Sprintf("Renombrar a %s como %s", v.Customer, v.NewName)
	case SetCustomerPhone:
		return fmt.Sprintf("Guardar el teléfono %s de %s", v.Phone, v.Customer)
	case DeactivateCustomer:
		return "Desactivar el cliente " + v.Customer
	case ViewBalance:
		return "Ver el saldo de " + orDefault(v.Customer, "el cliente")
	case ViewMovements:
		return "Ver los movimientos de " + orDefault(v.Customer, "el cliente")
	case RecordTransaction:
		kind := "una compra"
		if IsPayment(v.Type) {
			kind = "un abono"
		}
		return fmt.Sprintf("Anotar %s de $%s a %s", kind, v.Amount.StringFixed(2), v.Customer)
	case RecordPurchaseItems:
		return "Anotar una compra con productos a " + v.Customer
	case MarkTransactionPaid:
		return "Marcar " + paidWord(v.Paid) + " el movimiento" + idSuffix(v.TransactionID)
	case DeleteTransaction:
		return "Eliminar el movimiento" + idSuffix(v.TransactionID)
	case ShareLink:
		if v.Revoke {
			return "Revocar el enlace de " + v.Customer
		}
		return "Generar el enlace de cuenta de " + v.Customer
	case CreateQuote:
		return "Crear un presupuesto" + forCustomer(v.Customer)
	case ViewQuote:
		return "Ver el presupuesto" + idSuffix(v.QuoteID)
	case DeleteQuote:
		return "Eliminar el presupuesto" + idSuffix(v.QuoteID)
	case MarkQuotePaid:
		ids := make([]string, len(v.QuoteIDs))
		for i, id := range v.QuoteIDs {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		return strings.TrimSpace("Marcar " + paidWord(v.Paid) + " el presupuesto " + strings.Join(ids, ", "))
	case SendQuote:
		return "Enviar el presupuesto" + idSuffix(v.QuoteID)
	case SearchQuotes:
		return "Buscar presupuestos de " + v.Customer
	case EditQuote:
		return "Modificar el presupuesto" + idSuffix(v.QuoteID)
	case LinkQuote:
		return "Vincular el presupuesto" + idSuffix(v.QuoteID) + forCustomer(v.Customer)
	case ListProducts:
		return "Ver la lista de productos"
	case RepriceProduct:
		return "Cambiar el precio de " + v.Product
	case SetAvailability:
		if v.Available {
			return "Marcar disponible " + v.Product
		}
		return "Marcar agotado " + v.Product
	case SetTheme:
		return "Cambiar el tema a " + v.Theme
	case ViewStats:
		return "Ver estadísticas"
	case ExchangeRate:
		if v.Rate != nil {
			return "Actualizar la tasa a " + v.Rate.String()
		}
		return "Ver la tasa"
	case Help:
		return "Ver la ayuda"
	case ClarificationReply:
		return fmt.Sprintf("Elegir la opción %d", v.Choice)
	default:
		return "Conversar"
	}
}

// IsPayment reports whether a transaction type names a payment.
func IsPayment(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "payment", "abono", "pago":
		return true
	}
	return false
}

func paidWord(paid bool) string {
	if paid {
		return "pagado"
	}
	return "pendiente"
}

func idSuffix(id *uint) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf(" #%d", *id)
}

func forCustomer(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return " para " + name
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// ParseDate accepts ISO dates and the day-first form used in chat. An empty
// string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.DateOnly, "02/01/2006", "2/1/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.InvalidInput("fecha no reconocida %q", s)
}
