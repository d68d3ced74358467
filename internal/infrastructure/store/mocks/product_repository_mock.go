package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-fulfillment/internal/domain/product"
	"github.com/example/ec-fulfillment/internal/infrastructure/store"
)

// MockProductRepository wraps an in-memory product store and lets tests
// observe calls or inject failures.
type MockProductRepository struct {
	*store.MemoryProductStore

	mu sync.Mutex

	CASCalls       []CASCall
	IncrementCalls []IncrementCall

	// CASCallback, when set, runs before the swap. A non-nil error is returned
	// to the caller.
	CASCallback  func(id string, expected, next int) error
	IncrementErr error
	GetErr       error
}

type CASCall struct {
	ProductID string
	Expected  int
	Next      int
}

type IncrementCall struct {
	ProductID string
	Delta     int
}

func NewMockProductRepository(products ...*product.Product) *MockProductRepository {
	m := &MockProductRepository{MemoryProductStore: store.NewMemoryProductStore()}
	for _, p := range products {
		m.Put(p)
	}
	return m
}

func (m *MockProductRepository) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	err := m.GetErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.MemoryProductStore.GetProduct(ctx, id)
}

func (m *MockProductRepository) CompareAndSwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	m.mu.Lock()
	m.CASCalls = append(m.CASCalls, CASCall{ProductID: id, Expected: expected, Next: next})
	cb := m.CASCallback
	m.mu.Unlock()

	if cb != nil {
		if err := cb(id, expected, next); err != nil {
			return false, err
		}
	}
	return m.MemoryProductStore.CompareAndSwapStock(ctx, id, expected, next)
}

func (m *MockProductRepository) IncrementStock(ctx context.Context, id string, delta int) (int, error) {
	m.mu.Lock()
	m.IncrementCalls = append(m.IncrementCalls, IncrementCall{ProductID: id, Delta: delta})
	err := m.IncrementErr
	m.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return m.MemoryProductStore.IncrementStock(ctx, id, delta)
}

// Stock returns the current stock of a product, or -1 if it does not exist.
func (m *MockProductRepository) Stock(id string) int {
	p, err := m.MemoryProductStore.GetProduct(context.Background(), id)
	if err != nil {
		return -1
	}
	return p.Stock
}
