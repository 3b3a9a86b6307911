package catalog

import (
	"sync"
	"time"

	"seafood-agent/internal/domain"
)

// Cache holds a product list together with the time it was loaded.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	loadedAt time.Time
	products []domain.Product
	now      func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns a copy of the cached products while they are fresh.
func (c *Cache) Get() ([]domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.products == nil || c.ttl <= 0 || c.now().Sub(c.loadedAt) >= c.ttl {
		return nil, false
	}
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out, true
}

func (c *Cache) Set(products []domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = make([]domain.Product, len(products))
	copy(c.products, products)
	c.loadedAt = c.now()
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.loadedAt = time.Time{}
}

// LoadedAt is the zero time when nothing is cached.
func (c *Cache) LoadedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadedAt
}
