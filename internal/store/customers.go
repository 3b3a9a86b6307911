package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"seafood-agent/internal/domain"
)

func (s *Store) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	if err := s.conn(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("store: create customer: %w", err)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id uint) (domain.Customer, error) {
	var c domain.Customer
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return domain.Customer{}, fmt.Errorf("store: get customer: %w", notFound(err, "cliente", id))
	}
	return c, nil
}

// ListActiveCustomers returns active customers ordered by name.
func (s *Store) ListActiveCustomers(ctx context.Context) ([]domain.Customer, error) {
	var out []domain.Customer
	if err := s.conn(ctx).Where("is_active = ?", true).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: list customers: %w", err)
	}
	return out, nil
}

func (s *Store) CustomerByShareToken(ctx context.Context, token string) (domain.Customer, error) {
	var c domain.Customer
	err := s.conn(ctx).Where("share_token = ? AND is_active = ?", token, true).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Customer{}, domain.NotFound("enlace", token)
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("store: customer by token: %w", err)
	}
	return c, nil
}

// UpdateCustomer writes the given columns. A map is used so zero values
// (nil phone, false active) are written.
func (s *Store) UpdateCustomer(ctx context.Context, id uint, fields map[string]any) error {
	res := s.conn(ctx).Model(&domain.Customer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("store: update customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("cliente", fmt.Sprintf("#%d", id))
	}
	return nil
}

func (s *Store) CountActiveCustomers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&domain.Customer{}).Where("is_active = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("store: count customers: %w", err)
	}
	return n, nil
}
