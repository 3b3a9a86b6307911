package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PricingMode string

const (
	PricingBCV     PricingMode = "bcv"
	PricingDivisas PricingMode = "divisas"
	PricingDual    PricingMode = "dual"
)

func ParsePricingMode(s string) (PricingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bcv":
		return PricingBCV, nil
	case "divisas", "divisa", "usd":
		return PricingDivisas, nil
	case "dual", "ambos", "mixto":
		return PricingDual, nil
	}
	return "", fmt.Errorf("%w: unknown pricing mode %q", ErrInvalidInput, s)
}

type QuoteStatus string

const (
	QuotePending QuoteStatus = "pending"
	QuotePaid    QuoteStatus = "paid"
)

type QuoteItem struct {
	Name               string              `json:"name"`
	Quantity           decimal.Decimal     `json:"quantity"`
	Unit               string              `json:"unit"`
	UnitPricePrimary   decimal.Decimal     `json:"unitPricePrimary"`
	UnitPriceSecondary decimal.NullDecimal `json:"unitPriceSecondary"`
	SubtotalPrimary    decimal.Decimal     `json:"subtotalPrimary"`
	SubtotalSecondary  decimal.NullDecimal `json:"subtotalSecondary"`
}

// Quote ("presupuesto"). Totals are derived from items and delivery by the
// quote package and are never set independently.
type Quote struct {
	ID             uint                           `gorm:"primaryKey"`
	Date           time.Time                      `gorm:"not null"`
	Items          datatypes.JSONSlice[QuoteItem] `gorm:"not null"`
	PricingMode    PricingMode                    `gorm:"not null;size:16"`
	DeliveryCharge decimal.Decimal                `gorm:"type:numeric(14,2);not null"`
	HideRate       bool                           `gorm:"not null;default:false"`
	Status         QuoteStatus                    `gorm:"not null;size:16;index"`
	CustomerName   *string                        `gorm:"index"`
	ExchangeRate   decimal.Decimal                `gorm:"type:numeric(14,4);not null"`
	TotalPrimary   decimal.Decimal                `gorm:"type:numeric(14,2);not null"`
	TotalBs        decimal.Decimal                `gorm:"type:numeric(16,2);not null"`
	TotalSecondary decimal.NullDecimal            `gorm:"type:numeric(14,2)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LedgerAmount is the money variant a linked transaction must carry for the
// quote's current totals.
func (q Quote) LedgerAmount() Amount {
	switch q.PricingMode {
	case PricingDual:
		return Dual(q.TotalPrimary, q.TotalSecondary.Decimal)
	case PricingDivisas:
		return Simple(LaneDivisas, q.TotalPrimary)
	default:
		return Simple(LaneBCV, q.TotalPrimary)
	}
}

// Product is a catalog entry.
type Product struct {
	ID              uint                `gorm:"primaryKey"`
	Name            string              `gorm:"not null;uniqueIndex"`
	Category        string              `gorm:"not null;default:''"`
	UnitPriceBCV    decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	UnitPriceDivisa decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	Unit            string              `gorm:"not null;default:'kg'"`
	Available       bool                `gorm:"not null"`
	UpdatedAt       time.Time
}

// ExchangeRate is a read-only snapshot used for conversions.
type ExchangeRate struct {
	Rate decimal.Decimal
	AsOf time.Time
}

// Setting is a key/value row for site configuration.
type Setting struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}
