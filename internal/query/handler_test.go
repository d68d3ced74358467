package query

import (
	"context"
	"testing"
	"time"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/domain/fulfillment"
	"github.com/example/ec-fulfillment/internal/domain/order"
	"github.com/example/ec-fulfillment/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueryHandler(t *testing.T) (*Handler, *store.MemoryOrderStore) {
	t.Helper()
	orders := store.NewMemoryOrderStore()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	seed := []*order.Order{
		{ID: "order-1", Code: "AAAAAA-250301090000", CustomerID: "cust-1", CreatedAt: base, Items: []order.OrderItem{
			{ProductID: "p1", VendorID: "vendor-a", Quantity: 1, FulfillmentStatus: fulfillment.ItemPending},
			{ProductID: "p2", VendorID: "vendor-b", Quantity: 2, FulfillmentStatus: fulfillment.ItemShipped},
		}},
		{ID: "order-2", Code: "BBBBBB-250301100000", CustomerID: "cust-1", CreatedAt: base.Add(time.Hour), Items: []order.OrderItem{
			{ProductID: "p3", VendorID: "vendor-b", Quantity: 1, FulfillmentStatus: fulfillment.ItemPending},
		}},
		{ID: "order-3", Code: "CCCCCC-250301110000", CustomerID: "cust-2", CreatedAt: base.Add(2 * time.Hour), Items: []order.OrderItem{
			{ProductID: "p1", VendorID: "vendor-a", Quantity: 4, FulfillmentStatus: fulfillment.ItemPending},
		}},
	}
	for _, o := range seed {
		o.Status = fulfillment.OrderPending
		o.Version = 1
		require.NoError(t, orders.CreateOrder(context.Background(), o))
	}
	return NewHandler(orders), orders
}

func orderIDs(orders []*order.Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

// ============================================
// Order Query Tests
// ============================================

func TestHandler_GetOrderByID(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	o, err := handler.GetOrderByID(context.Background(), "order-1")

	require.NoError(t, err)
	assert.Equal(t, "cust-1", o.CustomerID)
	assert.Len(t, o.Items, 2)
}

func TestHandler_GetOrderByID_NotFound(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	_, err := handler.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = handler.GetOrderByID(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestHandler_GetOrderByID_ReturnsCopy(t *testing.T) {
	handler, _ := newTestQueryHandler(t)
	ctx := context.Background()

	o, err := handler.GetOrderByID(ctx, "order-1")
	require.NoError(t, err)
	o.Items[0].FulfillmentStatus = fulfillment.ItemDelivered
	o.Status = fulfillment.OrderCancelled

	again, err := handler.GetOrderByID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, fulfillment.ItemPending, again.Items[0].FulfillmentStatus)
	assert.Equal(t, fulfillment.OrderPending, again.Status)
}

func TestHandler_GetAllOrders(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	orders, err := handler.GetAllOrders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"order-3", "order-2", "order-1"}, orderIDs(orders))
}

func TestHandler_GetAllOrders_Empty(t *testing.T) {
	handler := NewHandler(store.NewMemoryOrderStore())

	orders, err := handler.GetAllOrders(context.Background())

	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestHandler_GetOrdersByCustomer(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	orders, err := handler.GetOrdersByCustomer(context.Background(), "cust-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"order-2", "order-1"}, orderIDs(orders))
}

func TestHandler_GetOrdersByCustomer_None(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	orders, err := handler.GetOrdersByCustomer(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestHandler_GetOrdersByVendor(t *testing.T) {
	tests := []struct {
		vendorID string
		want     []string
	}{
		{"vendor-a", []string{"order-3", "order-1"}},
		{"vendor-b", []string{"order-2", "order-1"}},
		{"vendor-c", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.vendorID, func(t *testing.T) {
			handler, _ := newTestQueryHandler(t)

			orders, err := handler.GetOrdersByVendor(context.Background(), tt.vendorID)

			require.NoError(t, err)
			assert.Equal(t, tt.want, orderIDs(orders))
		})
	}
}

func TestHandler_GetOrderItemsForVendor(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	items, err := handler.GetOrderItemsForVendor(context.Background(), "order-1", "vendor-b")

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ProductID)
	assert.Equal(t, fulfillment.ItemShipped, items[0].FulfillmentStatus)
}

func TestHandler_GetOrderItemsForVendor_NoLines(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	_, err := handler.GetOrderItemsForVendor(context.Background(), "order-2", "vendor-a")

	assert.ErrorIs(t, err, ErrNoVendorItems)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestHandler_GetOrderItemsForOrder(t *testing.T) {
	handler, _ := newTestQueryHandler(t)

	items, err := handler.GetOrderItemsForOrder(context.Background(), "order-1")

	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = handler.GetOrderItemsForOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
