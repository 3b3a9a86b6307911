package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"seafood-agent/internal/domain"
)

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) error {
	if t.Date.IsZero() {
		t.Date = now()
	}
	if err := s.conn(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("store: create transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uint) (domain.Transaction, error) {
	var t domain.Transaction
	if err := s.conn(ctx).First(&t, id).Error; err != nil {
		return domain.Transaction{}, fmt.Errorf("store: get transaction: %w", notFound(err, "movimiento", id))
	}
	return t, nil
}

// ListTransactions returns a customer's entries, newest first. limit <= 0
// returns all of them.
func (s *Store) ListTransactions(ctx context.Context, customerID uint, limit int) ([]domain.Transaction, error) {
	q := s.conn(ctx).Where("customer_id = ?", customerID).Order("date DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []domain.Transaction
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: list transactions: %w", err)
	}
	return out, nil
}

// ListAllTransactions returns every entry of active customers.
func (s *Store) ListAllTransactions(ctx context.Context) ([]domain.Transaction, error) {
	var out []domain.Transaction
	active := s.conn(ctx).Model(&domain.Customer{}).Select("id").Where("is_active = ?", true)
	err := s.conn(ctx).Where("customer_id IN (?)", active).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: list all transactions: %w", err)
	}
	return out, nil
}

// TransactionByQuote returns the entry linked to quoteID, if any.
func (s *Store) TransactionByQuote(ctx context.Context, quoteID uint) (*domain.Transaction, error) {
	var t domain.Transaction
	err := s.conn(ctx).Where("linked_quote_id = ?", quoteID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: transaction by quote: %w", err)
	}
	return &t, nil
}

// SaveTransaction writes every column of t.
func (s *Store) SaveTransaction(ctx context.Context, t *domain.Transaction) error {
	if err := s.conn(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("store: save transaction: %w", err)
	}
	return nil
}

func (s *Store) SetTransactionPaid(ctx context.Context, id uint, paid bool) error {
	res := s.conn(ctx).Model(&domain.Transaction{}).Where("id = ?", id).Update("is_paid", paid)
	if res.Error != nil {
		return fmt.Errorf("store: set transaction paid: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("movimiento", fmt.Sprintf("#%d", id))
	}
	return nil
}

// DeleteTransaction hard-deletes an entry.
func (s *Store) DeleteTransaction(ctx context.Context, id uint) error {
	res := s.conn(ctx).Delete(&domain.Transaction{}, id)
	if res.Error != nil {
		return fmt.Errorf("store: delete transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("movimiento", fmt.Sprintf("#%d", id))
	}
	return nil
}

// ClearQuoteLink detaches any entry from quoteID, keeping the entry itself.
func (s *Store) ClearQuoteLink(ctx context.Context, quoteID uint) error {
	err := s.conn(ctx).Model(&domain.Transaction{}).
		Where("linked_quote_id = ?", quoteID).
		Update("linked_quote_id", nil).Error
	if err != nil {
		return fmt.Errorf("store: clear quote link: %w", err)
	}
	return nil
}
