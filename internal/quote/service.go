// Package quote owns quote documents: their edit operations, total
// recomputation and creation from extracted line items.
package quote

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/store"
)

type Service struct {
	db  *store.Store
	cat Catalog
	log *zap.Logger
}

func NewService(db *store.Store, cat Catalog, log *zap.Logger) (*Service, error) {
	if db == nil {
		return nil, errors.New("quote: store must not be nil")
	}
	if cat == nil {
		return nil, errors.New("quote: catalog must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, cat: cat, log: log.With(zap.String("component", "quote"))}, nil
}

func (s *Service) Get(ctx context.Context, id uint) (domain.Quote, error) {
	return s.db.GetQuote(ctx, id)
}

// Linked returns the ledger entry of a quote, or nil.
func (s *Service) Linked(ctx context.Context, id uint) (*domain.Transaction, error) {
	return s.db.TransactionByQuote(ctx, id)
}

func (s *Service) SearchByCustomer(ctx context.Context, name string, limit int) ([]domain.Quote, error) {
	return s.db.QuotesByCustomerName(ctx, name, limit)
}

func (s *Service) List(ctx context.Context, status domain.QuoteStatus, limit int) ([]domain.Quote, error) {
	return s.db.ListQuotes(ctx, status, limit)
}

// Edit applies ops in order, recomputes once and saves the quote together
// with its linked ledger entry so both always carry the same totals.
// Concurrent edits of one quote are last-write-wins.
func (s *Service) Edit(ctx context.Context, id uint, ops []EditOp) (domain.Quote, error) {
	if len(ops) == 0 {
		return domain.Quote{}, domain.InvalidInput("no se indicó ningún cambio")
	}
	q, err := s.db.GetQuote(ctx, id)
	if err != nil {
		return domain.Quote{}, err
	}
	if err := Apply(ctx, s.cat, &q, ops); err != nil {
		return domain.Quote{}, err
	}
	Recompute(&q, s.currentRate(ctx, q.ExchangeRate))

	err = s.db.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.SaveQuote(ctx, &q); err != nil {
			return err
		}
		linked, err := tx.TransactionByQuote(ctx, q.ID)
		if err != nil {
			return err
		}
		if linked == nil {
			return nil
		}
		linked.SetAmount(q.LedgerAmount())
		return tx.SaveTransaction(ctx, linked)
	})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("quote: save edit: %w", err)
	}
	s.log.Info("quote edited", zap.Uint("quote_id", q.ID), zap.Int("ops", len(ops)))
	return q, nil
}

// SetStatus marks quotes paid or pending. Linked ledger entries follow in the
// same database transaction. All ids must exist or nothing changes.
func (s *Service) SetStatus(ctx context.Context, ids []uint, paid bool) error {
	if len(ids) == 0 {
		return domain.InvalidInput("no se indicó ningún presupuesto")
	}
	status := domain.QuotePending
	if paid {
		status = domain.QuotePaid
	}
	err := s.db.Transaction(ctx, func(tx *store.Store) error {
		for _, id := range ids {
			if err := tx.SetQuoteStatus(ctx, id, status); err != nil {
				return err
			}
			linked, err := tx.TransactionByQuote(ctx, id)
			if err != nil {
				return err
			}
			if linked != nil {
				if err := tx.SetTransactionPaid(ctx, linked.ID, paid); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("quote: set status: %w", err)
	}
	return nil
}

// Delete removes a quote. Its ledger entry, if any, stays as a plain
// purchase without the link.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.ClearQuoteLink(ctx, id); err != nil {
			return err
		}
		return tx.DeleteQuote(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("quote: delete: %w", err)
	}
	s.log.Info("quote deleted", zap.Uint("quote_id", id))
	return nil
}

func (s *Service) currentRate(ctx context.Context, fallback decimal.Decimal) decimal.Decimal {
	r, err := s.cat.Rate(ctx)
	if err != nil {
		s.log.Warn("exchange rate unavailable, keeping quote rate", zap.Error(err))
		return fallback
	}
	return r.Rate
}
