package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ec-fulfillment/internal/domain/product"
)

// MemoryProductStore is an in-memory product.Repository. Stock writes are
// serialized by a mutex, which makes CompareAndSwapStock atomic.
type MemoryProductStore struct {
	mu       sync.RWMutex
	products map[string]product.Product
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{products: make(map[string]product.Product)}
}

// Put inserts or replaces a product. The catalog owns product records; this
// exists for seeding and tests.
func (s *MemoryProductStore) Put(p *product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
}

func (s *MemoryProductStore) GetProduct(_ context.Context, id string) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrProductNotFound
	}
	return &p, nil
}

func (s *MemoryProductStore) ListProducts(_ context.Context) ([]*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*product.Product, 0, len(s.products))
	for _, p := range s.products {
		p := p
		items = append(items, &p)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *MemoryProductStore) CompareAndSwapStock(_ context.Context, id string, expected, next int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return false, product.ErrProductNotFound
	}
	if p.Stock != expected {
		return false, nil
	}
	p.Stock = next
	p.UpdatedAt = now()
	s.products[id] = p
	return true, nil
}

func (s *MemoryProductStore) IncrementStock(_ context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return 0, product.ErrProductNotFound
	}
	p.Stock += delta
	p.UpdatedAt = now()
	s.products[id] = p
	return p.Stock, nil
}
