package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is soft-deleted through IsActive and never hard-deleted.
type Customer struct {
	ID         uint    `gorm:"primaryKey"`
	Name       string  `gorm:"not null;index"`
	Phone      *string `gorm:"size:32"`
	ShareToken *string `gorm:"uniqueIndex;size:64"`
	IsActive   bool    `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type TransactionType string

const (
	TxPurchase TransactionType = "purchase"
	TxPayment  TransactionType = "payment"
)

// Transaction is a ledger entry. AmountSecondary is set only for entries
// generated from dual-priced quotes.
type Transaction struct {
	ID              uint                `gorm:"primaryKey"`
	CustomerID      uint                `gorm:"not null;index"`
	Type            TransactionType     `gorm:"not null;size:16"`
	Date            time.Time           `gorm:"not null"`
	Description     string              `gorm:"not null"`
	AmountPrimary   decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	AmountSecondary decimal.NullDecimal `gorm:"type:numeric(14,2)"`
	CurrencyLane    Lane                `gorm:"not null;size:16"`
	LinkedQuoteID   *uint               `gorm:"uniqueIndex"`
	IsPaid          bool                `gorm:"not null;default:false"`
	PaymentMethod   *string             `gorm:"size:32"`
	CreatedAt       time.Time
}

// Amount returns the money variant stored in the row.
func (t Transaction) Amount() Amount {
	if t.AmountSecondary.Valid {
		return Dual(t.AmountPrimary, t.AmountSecondary.Decimal)
	}
	return Simple(t.CurrencyLane, t.AmountPrimary)
}

// SetAmount writes a money variant into the row columns.
func (t *Transaction) SetAmount(a Amount) {
	t.AmountPrimary = a.Primary()
	t.CurrencyLane = a.Lane()
	if d, ok := a.Divisa(); ok {
		t.AmountSecondary = decimal.NewNullDecimal(d)
		return
	}
	t.AmountSecondary = decimal.NullDecimal{}
}

// Balance is a computed view of a customer's debt per lane. DualDivisas holds
// the divisa-equivalent side of dual entries and is never folded into Divisas.
type Balance struct {
	BCV         decimal.Decimal
	Divisas     decimal.Decimal
	EuroBCV     decimal.Decimal
	DualDivisas decimal.Decimal
}

func (b Balance) Lane(l Lane) decimal.Decimal {
	switch l {
	case LaneDivisas:
		return b.Divisas
	case LaneEuroBCV:
		return b.EuroBCV
	default:
		return b.BCV
	}
}

func (b Balance) IsZero() bool {
	return b.BCV.IsZero() && b.Divisas.IsZero() && b.EuroBCV.IsZero() && b.DualDivisas.IsZero()
}
