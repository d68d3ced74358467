package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/domain/fulfillment"
	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/domain/order"
	"github.com/example/ec-fulfillment/internal/domain/product"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================
// Product Store Tests
// ============================================

func TestMemoryProductStore_CompareAndSwapStock(t *testing.T) {
	s := NewMemoryProductStore()
	s.Put(&product.Product{ID: "p1", Stock: 5})
	ctx := context.Background()

	ok, err := s.CompareAndSwapStock(ctx, "p1", 4, 2)
	require.NoError(t, err)
	assert.False(t, ok, "stale expected value must not swap")

	ok, err = s.CompareAndSwapStock(ctx, "p1", 5, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	_, err = s.CompareAndSwapStock(ctx, "missing", 1, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryProductStore_ConcurrentSwapsOnlyOneWins(t *testing.T) {
	s := NewMemoryProductStore()
	s.Put(&product.Product{ID: "p1", Stock: 10})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.CompareAndSwapStock(context.Background(), "p1", 10, 9); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryProductStore_IncrementStock(t *testing.T) {
	s := NewMemoryProductStore()
	s.Put(&product.Product{ID: "p1", Stock: 1})

	stock, err := s.IncrementStock(context.Background(), "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, stock)

	_, err = s.IncrementStock(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestMemoryProductStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryProductStore()
	s.Put(&product.Product{ID: "p1", Stock: 3})

	p, err := s.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	p.Stock = 100

	again, _ := s.GetProduct(context.Background(), "p1")
	assert.Equal(t, 3, again.Stock)
}

// ============================================
// Order Store Tests
// ============================================

func newStoredOrder(id, code, customer string, created time.Time, vendors ...string) *order.Order {
	o := &order.Order{
		ID:         id,
		Code:       code,
		CustomerID: customer,
		Status:     fulfillment.OrderPending,
		CreatedAt:  created,
		Version:    1,
	}
	for i, v := range vendors {
		o.Items = append(o.Items, order.OrderItem{
			ProductID:         "p" + string(rune('1'+i)),
			VendorID:          v,
			Quantity:          1,
			FulfillmentStatus: fulfillment.ItemPending,
		})
	}
	return o
}

func TestMemoryOrderStore_CreateAndGet(t *testing.T) {
	s := NewMemoryOrderStore()
	ctx := context.Background()
	o := newStoredOrder("o1", "AAAAAA-1", "c1", time.Now(), "v1")

	require.NoError(t, s.CreateOrder(ctx, o))

	got, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA-1", got.Code)

	got.Items[0].FulfillmentStatus = fulfillment.ItemShipped
	again, _ := s.GetOrder(ctx, "o1")
	assert.Equal(t, fulfillment.ItemPending, again.Items[0].FulfillmentStatus)

	_, err = s.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestMemoryOrderStore_DuplicateCode(t *testing.T) {
	s := NewMemoryOrderStore()
	ctx := context.Background()

	require.NoError(t, s.CreateOrder(ctx, newStoredOrder("o1", "SAME", "c1", time.Now(), "v1")))
	err := s.CreateOrder(ctx, newStoredOrder("o2", "SAME", "c1", time.Now(), "v1"))

	assert.ErrorIs(t, err, order.ErrDuplicateCode)
}

func TestMemoryOrderStore_UpdateVersionCheck(t *testing.T) {
	s := NewMemoryOrderStore()
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, newStoredOrder("o1", "C1", "c1", time.Now(), "v1")))

	first, _ := s.GetOrder(ctx, "o1")
	second, _ := s.GetOrder(ctx, "o1")

	first.Status = fulfillment.OrderCancelled
	require.NoError(t, s.UpdateOrder(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Status = fulfillment.OrderFulfilled
	err := s.UpdateOrder(ctx, second)
	assert.ErrorIs(t, err, order.ErrVersionConflict)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	stored, _ := s.GetOrder(ctx, "o1")
	assert.Equal(t, fulfillment.OrderCancelled, stored.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestMemoryOrderStore_Lists(t *testing.T) {
	s := NewMemoryOrderStore()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateOrder(ctx, newStoredOrder("o1", "C1", "alice", base, "v1")))
	require.NoError(t, s.CreateOrder(ctx, newStoredOrder("o2", "C2", "alice", base.Add(time.Hour), "v2")))
	require.NoError(t, s.CreateOrder(ctx, newStoredOrder("o3", "C3", "bob", base.Add(2*time.Hour), "v1", "v2")))

	alice, err := s.ListOrdersByCustomer(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "o2", alice[0].ID, "newest first")

	v1, err := s.ListOrdersByVendor(ctx, "v1")
	require.NoError(t, err)
	require.Len(t, v1, 2)
	assert.Equal(t, "o3", v1[0].ID)
	assert.Equal(t, "o1", v1[1].ID)

	none, err := s.ListOrdersByCustomer(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := s.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"o3", "o2", "o1"}, []string{all[0].ID, all[1].ID, all[2].ID})
}

func TestMemoryOrderStore_ListOrders_SameTimestamp(t *testing.T) {
	s := NewMemoryOrderStore()
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateOrder(ctx, newStoredOrder("o-a", "C1", "alice", at, "v1")))
	require.NoError(t, s.CreateOrder(ctx, newStoredOrder("o-b", "C2", "bob", at, "v1")))

	all, err := s.ListOrders(ctx)

	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "o-b", all[0].ID, "ties break on id descending")
}

// ============================================
// Notification Store Tests
// ============================================

func TestMemoryNotificationStore_InsertUnlessUnread(t *testing.T) {
	s := NewMemoryNotificationStore()
	ctx := context.Background()

	ok, err := s.InsertUnlessUnread(ctx, &notification.Notification{ID: "n1", UserID: "v1", Message: "low", RelatedProductID: "p1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = s.InsertUnlessUnread(ctx, &notification.Notification{ID: "n2", UserID: "v1", Message: "low", RelatedProductID: "p1"})
	assert.False(t, ok, "unread duplicate must be suppressed")

	ok, _ = s.InsertUnlessUnread(ctx, &notification.Notification{ID: "n3", UserID: "v2", Message: "low", RelatedProductID: "p1"})
	assert.True(t, ok, "different user is independent")

	_, err = s.MarkRead(ctx, "n1")
	require.NoError(t, err)

	ok, _ = s.InsertUnlessUnread(ctx, &notification.Notification{ID: "n4", UserID: "v1", Message: "low", RelatedProductID: "p1"})
	assert.True(t, ok, "read notification no longer blocks")
}

func TestMemoryNotificationStore_ConcurrentInsertsKeepOneUnread(t *testing.T) {
	s := NewMemoryNotificationStore()

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n := &notification.Notification{ID: string(rune('a' + i)), UserID: "v1", Message: "low", RelatedProductID: "p1"}
			if ok, _ := s.InsertUnlessUnread(context.Background(), n); ok {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())
}

func TestMemoryNotificationStore_WithoutProductAlwaysInserts(t *testing.T) {
	s := NewMemoryNotificationStore()
	ctx := context.Background()

	for _, id := range []string{"n1", "n2"} {
		ok, err := s.InsertUnlessUnread(ctx, &notification.Notification{ID: id, UserID: "c1", Message: "shipped"})
		require.NoError(t, err)
		assert.True(t, ok)
	}

	list, _ := s.ListByUser(ctx, "c1")
	assert.Len(t, list, 2)
}

func TestMemoryNotificationStore_MarkReadMissing(t *testing.T) {
	_, err := NewMemoryNotificationStore().MarkRead(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
