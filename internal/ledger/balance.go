package ledger

import (
	"github.com/shopspring/decimal"

	"seafood-agent/internal/domain"
)

// ComputeBalance folds a transaction log into per-lane balances: unpaid
// purchases minus payments. The result does not depend on row order.
func ComputeBalance(txs []domain.Transaction) domain.Balance {
	b := domain.Balance{
		BCV:         decimal.Zero,
		Divisas:     decimal.Zero,
		EuroBCV:     decimal.Zero,
		DualDivisas: decimal.Zero,
	}
	for _, t := range txs {
		var sign decimal.Decimal
		switch {
		case t.Type == domain.TxPayment:
			sign = decimal.NewFromInt(-1)
		case t.Type == domain.TxPurchase && !t.IsPaid:
			sign = decimal.NewFromInt(1)
		default:
			continue
		}

		amt := t.Amount()
		v := amt.Primary().Mul(sign)
		switch amt.Lane() {
		case domain.LaneDivisas:
			b.Divisas = b.Divisas.Add(v)
		case domain.LaneEuroBCV:
			b.EuroBCV = b.EuroBCV.Add(v)
		default:
			b.BCV = b.BCV.Add(v)
		}
		// The divisa side of a dual entry has its own bucket and never
		// reaches the pure divisas lane.
		if d, ok := amt.Divisa(); ok {
			b.DualDivisas = b.DualDivisas.Add(d.Mul(sign))
		}
	}
	return b
}
