// Package catalog is the read side of the product list and exchange rate,
// plus the reprice and availability write-back used by product commands.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"seafood-agent/internal/domain"
	"seafood-agent/internal/textnorm"
)

const (
	settingRate     = "bcv_rate"
	settingRateDate = "bcv_rate_date"
	maxSuggestions  = 5
)

// Source is the persistence consumed by the catalog. *store.Store satisfies it.
type Source interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id uint, fields map[string]any) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	PutSetting(ctx context.Context, key, value string) error
}

type Service struct {
	src   Source
	cache *Cache
	log   *zap.Logger
	now   func() time.Time
}

func New(src Source, cache *Cache, log *zap.Logger) (*Service, error) {
	if src == nil {
		return nil, errors.New("catalog: source must not be nil")
	}
	if cache == nil {
		cache = NewCache(0)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{src: src, cache: cache, log: log, now: time.Now}, nil
}

// Products returns the whole catalog, served from the cache while fresh.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	if products, ok := s.cache.Get(); ok {
		return products, nil
	}
	products, err := s.src.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load products: %w", err)
	}
	s.cache.Set(products)
	s.log.Debug("catalog cache refreshed", zap.Int("products", len(products)))
	return products, nil
}

// Find resolves a product by diacritic-insensitive name.
func (s *Service) Find(ctx context.Context, name string) (domain.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	m := textnorm.Resolve(names, name, maxSuggestions)
	if m.Index < 0 {
		return domain.Product{}, domain.NotFound("producto", name, m.Suggestions...)
	}
	return products[m.Index], nil
}

// Rate returns the current exchange-rate snapshot.
func (s *Service) Rate(ctx context.Context) (domain.ExchangeRate, error) {
	raw, ok, err := s.src.GetSetting(ctx, settingRate)
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("catalog: load rate: %w", err)
	}
	if !ok {
		return domain.ExchangeRate{}, domain.NotFound("tasa", settingRate)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("catalog: parse rate %q: %w", raw, err)
	}
	out := domain.ExchangeRate{Rate: rate}
	if d, ok, err := s.src.GetSetting(ctx, settingRateDate); err == nil && ok {
		if t, perr := time.Parse(time.DateOnly, d); perr == nil {
			out.AsOf = t
		}
	}
	return out, nil
}

func (s *Service) SetRate(ctx context.Context, rate decimal.Decimal) (domain.ExchangeRate, error) {
	if !rate.IsPositive() {
		return domain.ExchangeRate{}, domain.InvalidInput("la tasa debe ser mayor que cero")
	}
	asOf := s.now().UTC()
	if err := s.src.PutSetting(ctx, settingRate, rate.String()); err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("catalog: save rate: %w", err)
	}
	if err := s.src.PutSetting(ctx, settingRateDate, asOf.Format(time.DateOnly)); err != nil {
		return domain.ExchangeRate{}, fmt.Errorf("catalog: save rate date: %w", err)
	}
	return domain.ExchangeRate{Rate: rate, AsOf: asOf}, nil
}

// Reprice updates one or both lane prices of a product.
func (s *Service) Reprice(ctx context.Context, name string, bcv, divisa *decimal.Decimal) (domain.Product, error) {
	if bcv == nil && divisa == nil {
		return domain.Product{}, domain.InvalidInput("indica al menos un precio")
	}
	p, err := s.Find(ctx, name)
	if err != nil {
		return domain.Product{}, err
	}
	fields := map[string]any{}
	if bcv != nil {
		if bcv.IsNegative() {
			return domain.Product{}, domain.InvalidInput("precio negativo")
		}
		fields["unit_price_bcv"] = domain.Round2(*bcv)
		p.UnitPriceBCV = domain.Round2(*bcv)
	}
	if divisa != nil {
		if divisa.IsNegative() {
			return domain.Product{}, domain.InvalidInput("precio negativo")
		}
		fields["unit_price_divisa"] = decimal.NewNullDecimal(domain.Round2(*divisa))
		p.UnitPriceDivisa = decimal.NewNullDecimal(domain.Round2(*divisa))
	}
	if err := s.src.UpdateProduct(ctx, p.ID, fields); err != nil {
		return domain.Product{}, fmt.Errorf("catalog: reprice: %w", err)
	}
	s.cache.Invalidate()
	return p, nil
}

func (s *Service) SetAvailable(ctx context.Context, name string, available bool) (domain.Product, error) {
	p, err := s.Find(ctx, name)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.src.UpdateProduct(ctx, p.ID, map[string]any{"available": available}); err != nil {
		return domain.Product{}, fmt.Errorf("catalog: set availability: %w", err)
	}
	s.cache.Invalidate()
	p.Available = available
	return p, nil
}

// Setting and PutSetting expose site configuration stored next to the rate.
func (s *Service) Setting(ctx context.Context, key string) (string, bool, error) {
	return s.src.GetSetting(ctx, key)
}

func (s *Service) PutSetting(ctx context.Context, key, value string) error {
	return s.src.PutSetting(ctx, key, value)
}
