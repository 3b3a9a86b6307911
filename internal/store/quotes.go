package store

import (
	"context"
	"fmt"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/textnorm"
)

func (s *Store) CreateQuote(ctx context.Context, q *domain.Quote) error {
	if q.Date.IsZero() {
		q.Date = now()
	}
	if q.Status == "" {
		q.Status = domain.QuotePending
	}
	if err := s.conn(ctx).Create(q).Error; err != nil {
		return fmt.Errorf("store: create quote: %w", err)
	}
	return nil
}

func (s *Store) GetQuote(ctx context.Context, id uint) (domain.Quote, error) {
	var q domain.Quote
	if err := s.conn(ctx).First(&q, id).Error; err != nil {
		return domain.Quote{}, fmt.Errorf("store: get quote: %w", notFound(err, "presupuesto", id))
	}
	return q, nil
}

// SaveQuote writes every column of q.
func (s *Store) SaveQuote(ctx context.Context, q *domain.Quote) error {
	if err := s.conn(ctx).Save(q).Error; err != nil {
		return fmt.Errorf("store: save quote: %w", err)
	}
	return nil
}

func (s *Store) SetQuoteStatus(ctx context.Context, id uint, status domain.QuoteStatus) error {
	res := s.conn(ctx).Model(&domain.Quote{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("store: set quote status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("presupuesto", fmt.Sprintf("#%d", id))
	}
	return nil
}

func (s *Store) DeleteQuote(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&domain.Quote{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: delete quote: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("presupuesto", fmt.Sprintf("#%d", id))
	}
	return nil
}

// ListQuotes returns quotes newest first, optionally filtered by status.
func (s *Store) ListQuotes(ctx context.Context, status domain.QuoteStatus, limit int) ([]domain.Quote, error) {
	q := s.conn(ctx).Order("id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Quote
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: list quotes: %w", err)
	}
	return out, nil
}

// QuotesByCustomerName matches the customer name diacritic-insensitively.
// Folding happens in Go since sqlite and postgres disagree on unaccent.
func (s *Store) QuotesByCustomerName(ctx context.Context, name string, limit int) ([]domain.Quote, error) {
	var all []domain.Quote
	if err := s.conn(ctx).Where("customer_name IS NOT NULL").Order("id DESC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("store: quotes by customer: %w", err)
	}
	var out []domain.Quote
	for _, q := range all {
		if textnorm.Contains(*q.CustomerName, name) {
			out = append(out, q)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *Store) CountQuotes(ctx context.Context, status domain.QuoteStatus) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&domain.Quote{}).Where("status = ?", status).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count quotes: %w", err)
	}
	return n, nil
}
