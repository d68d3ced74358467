package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-fulfillment/internal/domain/order"
	"github.com/example/ec-fulfillment/internal/infrastructure/store"
)

// MockOrderRepository wraps an in-memory order store with call recording
// and failure injection.
type MockOrderRepository struct {
	*store.MemoryOrderStore

	mu sync.Mutex

	CreateCalls int
	UpdateCalls int

	CreateErr error
	// CreateCallback, when set, replaces the store's CreateOrder.
	CreateCallback func(ctx context.Context, o *order.Order) error
	// BeforeUpdate runs before each UpdateOrder, e.g. to simulate a
	// concurrent writer.
	BeforeUpdate func(ctx context.Context, o *order.Order)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{MemoryOrderStore: store.NewMemoryOrderStore()}
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	m.CreateCalls++
	err, cb := m.CreateErr, m.CreateCallback
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if cb != nil {
		return cb(ctx, o)
	}
	return m.MemoryOrderStore.CreateOrder(ctx, o)
}

func (m *MockOrderRepository) UpdateOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	m.UpdateCalls++
	before := m.BeforeUpdate
	m.mu.Unlock()

	if before != nil {
		before(ctx, o)
	}
	return m.MemoryOrderStore.UpdateOrder(ctx, o)
}
