package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"seafood-agent/internal/domain"
)

type fakeSource struct {
	products  []domain.Product
	settings  map[string]string
	listCalls int
	listErr   error
	updates   map[uint]map[string]any
}

func (f *fakeSource) ListProducts(_ context.Context) ([]domain.Product, error) {
	f.listCalls++
	return f.products, f.listErr
}

func (f *fakeSource) UpdateProduct(_ context.Context, id uint, fields map[string]any) error {
	if f.updates == nil {
		f.updates = map[uint]map[string]any{}
	}
	f.updates[id] = fields
	return nil
}

func (f *fakeSource) GetSetting(_ context.Context, key string) (string, bool, error) {
	v, ok := f.settings[key]
	return v, ok, nil
}

func (f *fakeSource) PutSetting(_ context.Context, key, value string) error {
	if f.settings == nil {
		f.settings = map[string]string{}
	}
	f.settings[key] = value
	return nil
}

func seafood() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Camarón jumbo", Unit: "kg", UnitPriceBCV: decimal.RequireFromString("12.50"), Available: true},
		{ID: 2, Name: "Calamar", Unit: "kg", UnitPriceBCV: decimal.RequireFromString("8"), Available: true},
	}
}

func newTestService(t *testing.T, src *fakeSource, cache *Cache) *Service {
	t.Helper()
	svc, err := New(src, cache, nil)
	require.NoError(t, err)
	return svc
}

func TestNew_ValidatesSource(t *testing.T) {
	_, err := New(nil, nil, nil)
	require.Error(t, err)
}

func TestProducts_ServedFromCacheUntilExpired(t *testing.T) {
	src := &fakeSource{products: seafood()}
	cache := NewCache(time.Minute)
	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	svc := newTestService(t, src, cache)

	_, err := svc.Products(context.Background())
	require.NoError(t, err)
	_, err = svc.Products(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, src.listCalls)
	require.Equal(t, clock, cache.LoadedAt())

	clock = clock.Add(2 * time.Minute)
	_, err = svc.Products(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, src.listCalls)
}

func TestProducts_LoadError(t *testing.T) {
	svc := newTestService(t, &fakeSource{listErr: errors.New("db down")}, NewCache(time.Minute))
	_, err := svc.Products(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "load products")
}

func TestFind_DiacriticInsensitive(t *testing.T) {
	svc := newTestService(t, &fakeSource{products: seafood()}, NewCache(time.Minute))

	p, err := svc.Find(context.Background(), "jumbo")
	require.NoError(t, err)
	require.Equal(t, uint(1), p.ID)

	p, err = svc.Find(context.Background(), "CAMARON JUMBO")
	require.NoError(t, err)
	require.Equal(t, uint(1), p.ID)

	_, err = svc.Find(context.Background(), "calamares")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, []string{"Calamar"}, nf.Suggestions)
}

func TestReprice_InvalidatesCache(t *testing.T) {
	src := &fakeSource{products: seafood()}
	svc := newTestService(t, src, NewCache(time.Hour))

	price := decimal.RequireFromString("9.999")
	p, err := svc.Reprice(context.Background(), "calamar", &price, nil)
	require.NoError(t, err)
	require.Equal(t, "10.00", p.UnitPriceBCV.StringFixed(2))
	require.Contains(t, src.updates[2], "unit_price_bcv")
	require.NotContains(t, src.updates[2], "unit_price_divisa")

	_, ok := svc.cache.Get()
	require.False(t, ok)

	_, err = svc.Reprice(context.Background(), "calamar", nil, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSetAvailable(t *testing.T) {
	src := &fakeSource{products: seafood()}
	svc := newTestService(t, src, NewCache(time.Hour))

	p, err := svc.SetAvailable(context.Background(), "calamar", false)
	require.NoError(t, err)
	require.False(t, p.Available)
	require.Equal(t, false, src.updates[2]["available"])
}

func TestRate_SetAndGet(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(t, src, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

	_, err := svc.Rate(context.Background())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.SetRate(context.Background(), decimal.Zero)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.SetRate(context.Background(), decimal.RequireFromString("36.5"))
	require.NoError(t, err)

	r, err := svc.Rate(context.Background())
	require.NoError(t, err)
	require.True(t, r.Rate.Equal(decimal.RequireFromString("36.5")))
	require.Equal(t, "2026-10-19", r.AsOf.Format(time.DateOnly))
}
