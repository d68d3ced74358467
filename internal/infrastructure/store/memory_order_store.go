package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ec-fulfillment/internal/domain/order"
)

// MemoryOrderStore is an in-memory order.Repository holding deep copies, so
// callers never share state with the store.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
	codes  map[string]string // code -> order id
}

func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{
		orders: make(map[string]*order.Order),
		codes:  make(map[string]string),
	}
}

func (s *MemoryOrderStore) CreateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codes[o.Code]; taken {
		return order.ErrDuplicateCode
	}
	s.orders[o.ID] = o.Clone()
	s.codes[o.Code] = o.ID
	return nil
}

func (s *MemoryOrderStore) GetOrder(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (s *MemoryOrderStore) UpdateOrder(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if current.Version != o.Version {
		return order.ErrVersionConflict
	}
	o.Version++
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *MemoryOrderStore) ListOrders(_ context.Context) ([]*order.Order, error) {
	return s.filter(func(*order.Order) bool { return true }), nil
}

func (s *MemoryOrderStore) ListOrdersByCustomer(_ context.Context, customerID string) ([]*order.Order, error) {
	return s.filter(func(o *order.Order) bool { return o.CustomerID == customerID }), nil
}

func (s *MemoryOrderStore) ListOrdersByVendor(_ context.Context, vendorID string) ([]*order.Order, error) {
	return s.filter(func(o *order.Order) bool { return o.HasVendor(vendorID) }), nil
}

// filter returns matching orders, newest first.
func (s *MemoryOrderStore) filter(match func(*order.Order) bool) []*order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*order.Order, 0)
	for _, o := range s.orders {
		if match(o) {
			result = append(result, o.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
