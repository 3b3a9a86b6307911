package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seafood-agent/internal/domain"
)

// Extraction is the structured result of parsing free text into line items.
type Extraction struct {
	Items        []ExtractedItem
	Unmatched    []UnmatchedItem
	Delivery     *decimal.Decimal
	CustomerName string
	Date         *time.Time
}

// ExtractedItem is a catalog match, optionally with an admin price.
type ExtractedItem struct {
	Product        string
	Quantity       decimal.Decimal
	Unit           string
	Price          *decimal.Decimal
	SecondaryPrice *decimal.Decimal
}

// UnmatchedItem is a name the extractor could not map to the catalog.
type UnmatchedItem struct {
	Name     string
	Quantity decimal.Decimal
	Unit     string
	Price    *decimal.Decimal
}

// Linker attaches a new quote to a customer's ledger.
type Linker interface {
	LinkQuoteByName(ctx context.Context, quoteID uint, customerName string) (domain.Transaction, domain.Customer, error)
}

type Created struct {
	Quote    domain.Quote
	Linked   *domain.Transaction
	Customer *domain.Customer
	Skipped  []string
}

// Create prices the extracted items under mode, persists the quote and, when
// a customer name was recognized, tries to link it to that customer. A failed
// link does not fail the creation.
func (s *Service) Create(ctx context.Context, ex Extraction, mode domain.PricingMode, linker Linker) (Created, error) {
	if mode == "" {
		mode = domain.PricingBCV
	}
	rate, err := s.cat.Rate(ctx)
	if err != nil {
		return Created{}, fmt.Errorf("quote: create: %w", err)
	}

	q := domain.Quote{
		PricingMode: mode,
		Status:      domain.QuotePending,
		Items:       []domain.QuoteItem{},
		Date:        time.Now().UTC(),
	}
	if ex.Date != nil && !ex.Date.IsZero() {
		q.Date = *ex.Date
	}
	if ex.Delivery != nil {
		if ex.Delivery.IsNegative() {
			return Created{}, domain.InvalidInput("el delivery no puede ser negativo")
		}
		q.DeliveryCharge = *ex.Delivery
	}
	if name := strings.TrimSpace(ex.CustomerName); name != "" {
		q.CustomerName = &name
	}

	var skipped []string
	for _, it := range ex.Items {
		op := AddItem{Name: it.Product, Quantity: it.Quantity, Unit: it.Unit, Price: it.Price, SecondaryPrice: it.SecondaryPrice}
		if err := addItem(ctx, s.cat, &q, op); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return Created{}, err
			}
			skipped = append(skipped, it.Product)
		}
	}
	for _, it := range ex.Unmatched {
		if it.Price == nil {
			skipped = append(skipped, it.Name)
			continue
		}
		op := AddItem{Name: it.Name, Quantity: it.Quantity, Unit: it.Unit, Price: it.Price}
		if err := addCustomItem(&q, op); err != nil {
			return Created{}, err
		}
	}
	if len(q.Items) == 0 {
		return Created{Skipped: skipped}, domain.InvalidInput("ningún producto del pedido está en el catálogo")
	}

	Recompute(&q, rate.Rate)
	if err := s.db.CreateQuote(ctx, &q); err != nil {
		return Created{}, fmt.Errorf("quote: create: %w", err)
	}
	s.log.Info("quote created", zap.Uint("quote_id", q.ID), zap.String("mode", string(mode)), zap.Int("items", len(q.Items)))

	out := Created{Quote: q, Skipped: skipped}
	if q.CustomerName == nil || linker == nil {
		return out, nil
	}
	t, c, err := linker.LinkQuoteByName(ctx, q.ID, *q.CustomerName)
	if err != nil {
		s.log.Info("quote left unlinked", zap.Uint("quote_id", q.ID), zap.Error(err))
		return out, nil
	}
	out.Linked = &t
	out.Customer = &c
	return out, nil
}

// addCustomItem adds a line that is known not to be in the catalog.
func addCustomItem(q *domain.Quote, o AddItem) error {
	return addItem(context.Background(), noCatalog{}, q, o)
}

type noCatalog struct{}

func (noCatalog) Find(_ context.Context, name string) (domain.Product, error) {
	return domain.Product{}, domain.NotFound("producto", name)
}

func (noCatalog) Rate(context.Context) (domain.ExchangeRate, error) {
	return domain.ExchangeRate{}, domain.NotFound("tasa", "")
}
