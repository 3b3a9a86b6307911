package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/textnorm"
)

// EditOp is one quote edit. The set is closed: every op is one of the types
// below and applyOp switches over all of them.
type EditOp interface {
	isEditOp()
}

// SetItemPrice changes the unit price of an item in one or both lanes.
type SetItemPrice struct {
	Item      string
	Primary   *decimal.Decimal
	Secondary *decimal.Decimal
}

type SetItemQuantity struct {
	Item     string
	Quantity decimal.Decimal
}

// DecrementQuantity removes the item when its quantity drops to zero or less.
type DecrementQuantity struct {
	Item string
	By   decimal.Decimal
}

type RemoveItem struct {
	Item string
}

// AddItem adds a catalog product, or a custom line when Price is set and the
// product is not in the catalog. An item already on the quote gains quantity
// at its existing price.
type AddItem struct {
	Name           string
	Quantity       decimal.Decimal
	Unit           string
	Price          *decimal.Decimal
	SecondaryPrice *decimal.Decimal
}

// SubstituteItem swaps the product of a line, re-pricing it from the catalog
// and keeping its quantity.
type SubstituteItem struct {
	Item    string
	Product string
}

type SetDeliveryCharge struct {
	Amount decimal.Decimal
}

type SetCustomerName struct {
	Name string
}

type SetDate struct {
	Date time.Time
}

// ToggleRateVisibility sets HideRate to Hide, or flips it when Hide is nil.
type ToggleRateVisibility struct {
	Hide *bool
}

func (SetItemPrice) isEditOp()         {}
func (SetItemQuantity) isEditOp()      {}
func (DecrementQuantity) isEditOp()    {}
func (RemoveItem) isEditOp()           {}
func (AddItem) isEditOp()              {}
func (SubstituteItem) isEditOp()       {}
func (SetDeliveryCharge) isEditOp()    {}
func (SetCustomerName) isEditOp()      {}
func (SetDate) isEditOp()              {}
func (ToggleRateVisibility) isEditOp() {}

// Catalog is the product lookup used for pricing.
type Catalog interface {
	Find(ctx context.Context, name string) (domain.Product, error)
	Rate(ctx context.Context) (domain.ExchangeRate, error)
}

// Apply runs ops against q in order. Totals are not touched; callers
// recompute once after the whole batch.
func Apply(ctx context.Context, cat Catalog, q *domain.Quote, ops []EditOp) error {
	for i, op := range ops {
		if err := applyOp(ctx, cat, q, op); err != nil {
			return fmt.Errorf("quote: edit %d (%T): %w", i+1, op, err)
		}
	}
	return nil
}

func applyOp(ctx context.Context, cat Catalog, q *domain.Quote, op EditOp) error {
	switch o := op.(type) {
	case SetItemPrice:
		i, err := findItem(q, o.Item)
		if err != nil {
			return err
		}
		if o.Primary == nil && o.Secondary == nil {
			return domain.InvalidInput("falta el precio")
		}
		primary, secondary := o.Primary, o.Secondary
		if q.PricingMode != domain.PricingDual && primary == nil {
			primary, secondary = secondary, nil
		}
		if err := nonNegative(primary, secondary); err != nil {
			return err
		}
		if primary != nil {
			q.Items[i].UnitPricePrimary = *primary
		}
		if secondary != nil && q.PricingMode == domain.PricingDual {
			q.Items[i].UnitPriceSecondary = decimal.NewNullDecimal(*secondary)
		}
	case SetItemQuantity:
		i, err := findItem(q, o.Item)
		if err != nil {
			return err
		}
		if !o.Quantity.IsPositive() {
			return domain.InvalidInput("la cantidad debe ser mayor que cero")
		}
		q.Items[i].Quantity = o.Quantity
	case DecrementQuantity:
		i, err := findItem(q, o.Item)
		if err != nil {
			return err
		}
		by := o.By
		if !by.IsPositive() {
			by = decimal.NewFromInt(1)
		}
		left := q.Items[i].Quantity.Sub(by)
		if !left.IsPositive() {
			removeAt(q, i)
			return nil
		}
		q.Items[i].Quantity = left
	case RemoveItem:
		i, err := findItem(q, o.Item)
		if err != nil {
			return err
		}
		removeAt(q, i)
	case AddItem:
		return addItem(ctx, cat, q, o)
	case SubstituteItem:
		i, err := findItem(q, o.Item)
		if err != nil {
			return err
		}
		p, err := cat.Find(ctx, o.Product)
		if err != nil {
			return err
		}
		primary, secondary := catalogPrice(p, q.PricingMode)
		it := &q.Items[i]
		it.Name = p.Name
		it.Unit = p.Unit
		it.UnitPricePrimary = primary
		it.UnitPriceSecondary = secondary
	case SetDeliveryCharge:
		if o.Amount.IsNegative() {
			return domain.InvalidInput("el delivery no puede ser negativo")
		}
		q.DeliveryCharge = o.Amount
	case SetCustomerName:
		name := strings.Join(strings.Fields(o.Name), " ")
		if name == "" {
			q.CustomerName = nil
			return nil
		}
		q.CustomerName = &name
	case SetDate:
		if o.Date.IsZero() {
			return domain.InvalidInput("fecha inválida")
		}
		q.Date = o.Date
	case ToggleRateVisibility:
		if o.Hide != nil {
			q.HideRate = *o.Hide
		} else {
			q.HideRate = !q.HideRate
		}
	default:
		return domain.InvalidInput("operación de edición desconocida %T", op)
	}
	return nil
}

func addItem(ctx context.Context, cat Catalog, q *domain.Quote, o AddItem) error {
	qty := o.Quantity
	if !qty.IsPositive() {
		qty = decimal.NewFromInt(1)
	}
	if err := nonNegative(o.Price, o.SecondaryPrice); err != nil {
		return err
	}

	var item domain.QuoteItem
	p, err := cat.Find(ctx, o.Name)
	switch {
	case err == nil:
		item = domain.QuoteItem{Name: p.Name, Unit: p.Unit}
		item.UnitPricePrimary, item.UnitPriceSecondary = catalogPrice(p, q.PricingMode)
		if o.Price != nil {
			item.UnitPricePrimary, item.UnitPriceSecondary = customPrice(*o.Price, o.SecondaryPrice, q.PricingMode)
		}
	case o.Price != nil:
		item = domain.QuoteItem{Name: strings.TrimSpace(o.Name), Unit: o.Unit}
		item.UnitPricePrimary, item.UnitPriceSecondary = customPrice(*o.Price, o.SecondaryPrice, q.PricingMode)
	default:
		return err
	}
	if item.Unit == "" {
		item.Unit = "und"
	}

	for i := range q.Items {
		if textnorm.Equal(q.Items[i].Name, item.Name) {
			q.Items[i].Quantity = q.Items[i].Quantity.Add(qty)
			return nil
		}
	}
	item.Quantity = qty
	q.Items = append(q.Items, item)
	return nil
}

func findItem(q *domain.Quote, name string) (int, error) {
	names := make([]string, len(q.Items))
	for i, it := range q.Items {
		names[i] = it.Name
	}
	m := textnorm.Resolve(names, name, 5)
	if m.Index < 0 {
		return -1, domain.NotFound("producto del presupuesto", name, m.Suggestions...)
	}
	return m.Index, nil
}

func removeAt(q *domain.Quote, i int) {
	q.Items = append(q.Items[:i], q.Items[i+1:]...)
}

func nonNegative(values ...*decimal.Decimal) error {
	for _, v := range values {
		if v != nil && v.IsNegative() {
			return domain.InvalidInput("precio negativo")
		}
	}
	return nil
}
