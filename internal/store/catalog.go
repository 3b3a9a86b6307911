package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seafood-agent/internal/domain"
)

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := s.conn(ctx).Order("category").Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("store: list products: %w", err)
	}
	return out, nil
}

func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	if err := s.conn(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("store: create product: %w", err)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uint, fields map[string]any) error {
	res := s.conn(ctx).Model(&domain.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("store: update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("producto", fmt.Sprintf("#%d", id))
	}
	return nil
}

// GetSetting returns the stored value and whether the key exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var st domain.Setting
	err := s.conn(ctx).Where("key = ?", key).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get setting %q: %w", key, err)
	}
	return st.Value, true, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	st := domain.Setting{Key: key, Value: value, UpdatedAt: now()}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&st).Error
	if err != nil {
		return fmt.Errorf("store: put setting %q: %w", key, err)
	}
	return nil
}
