package command

import (
	"context"
	"testing"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/domain/fulfillment"
	"github.com/example/ec-fulfillment/internal/domain/inventory"
	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/domain/order"
	"github.com/example/ec-fulfillment/internal/domain/product"
	"github.com/example/ec-fulfillment/internal/infrastructure/store"
	"github.com/example/ec-fulfillment/internal/infrastructure/store/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testDeps struct {
	products      *mocks.MockProductRepository
	orders        *mocks.MockOrderRepository
	notifications *notification.Service
	publisher     *mocks.MockPublisher
}

func newTestHandler(t *testing.T) (*Handler, *testDeps) {
	logger := zaptest.NewLogger(t)
	deps := &testDeps{
		products: mocks.NewMockProductRepository(
			&product.Product{ID: "prod-1", VendorID: "vendor-1", Name: "Kettle", Price: decimal.RequireFromString("24.99"), Stock: 8, StockThreshold: 2, IsActive: true},
		),
		orders:    mocks.NewMockOrderRepository(),
		publisher: mocks.NewMockPublisher(),
	}
	deps.notifications = notification.NewService(store.NewMemoryNotificationStore(), nil, logger)

	inventorySvc := inventory.NewService(deps.products, deps.notifications, logger)
	orderSvc := order.NewService(deps.orders, deps.products, inventorySvc, deps.notifications,
		store.NewMemoryVendorDirectory(), logger, order.WithPublisher(deps.publisher))

	return NewHandler(orderSvc, inventorySvc, deps.notifications), deps
}

func placeOrder(t *testing.T, handler *Handler, qty int) *order.Order {
	t.Helper()
	o, err := handler.PlaceOrder(context.Background(), PlaceOrder{
		CustomerID:      "cust-1",
		ShippingAddress: order.Address{Street: "2 High St", City: "Leeds", Zip: "LS1 4AP"},
		Items:           []order.LineRequest{{ProductID: "prod-1", Quantity: qty}},
	})
	require.NoError(t, err)
	return o
}

// ============================================
// Place Order Tests
// ============================================

func TestHandler_PlaceOrder_Success(t *testing.T) {
	handler, deps := newTestHandler(t)

	o := placeOrder(t, handler, 3)

	assert.Equal(t, "cust-1", o.CustomerID)
	assert.Equal(t, fulfillment.OrderPending, o.Status)
	assert.True(t, decimal.RequireFromString("74.97").Equal(o.TotalAmount))
	assert.Equal(t, 5, deps.products.Stock("prod-1"))
	assert.Equal(t, []string{order.EventOrderPlaced}, deps.publisher.EventTypes())
}

func TestHandler_PlaceOrder_InsufficientStock(t *testing.T) {
	handler, deps := newTestHandler(t)

	_, err := handler.PlaceOrder(context.Background(), PlaceOrder{
		CustomerID:      "cust-1",
		ShippingAddress: order.Address{Street: "2 High St", City: "Leeds", Zip: "LS1 4AP"},
		Items:           []order.LineRequest{{ProductID: "prod-1", Quantity: 9}},
	})

	assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	assert.Equal(t, 8, deps.products.Stock("prod-1"))
}

// ============================================
// Fulfillment Tests
// ============================================

func TestHandler_UpdateItemStatus(t *testing.T) {
	handler, _ := newTestHandler(t)
	o := placeOrder(t, handler, 1)

	updated, err := handler.UpdateItemStatus(context.Background(), UpdateItemStatus{
		OrderID: o.ID, ProductID: "prod-1", VendorID: "vendor-1", Status: "Shipped",
	})

	require.NoError(t, err)
	assert.Equal(t, fulfillment.ItemShipped, updated.Items[0].FulfillmentStatus)
}

func TestHandler_UpdateItemStatus_UnknownStatus(t *testing.T) {
	handler, deps := newTestHandler(t)
	o := placeOrder(t, handler, 1)

	_, err := handler.UpdateItemStatus(context.Background(), UpdateItemStatus{
		OrderID: o.ID, ProductID: "prod-1", VendorID: "vendor-1", Status: "shipped-ish",
	})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, deps.orders.UpdateCalls)
}

func TestHandler_DeliverOrder(t *testing.T) {
	handler, _ := newTestHandler(t)
	o := placeOrder(t, handler, 1)

	delivered, err := handler.DeliverOrder(context.Background(), DeliverOrder{OrderID: o.ID})

	require.NoError(t, err)
	assert.Equal(t, fulfillment.OrderFulfilled, delivered.Status)
}

// ============================================
// Cancel Order Tests
// ============================================

func TestHandler_CancelOrder(t *testing.T) {
	handler, deps := newTestHandler(t)
	o := placeOrder(t, handler, 2)

	cancelled, err := handler.CancelOrder(context.Background(), CancelOrder{OrderID: o.ID, Note: "customer called"})

	require.NoError(t, err)
	assert.Equal(t, fulfillment.OrderCancelled, cancelled.Status)
	assert.Equal(t, 8, deps.products.Stock("prod-1"))
}

func TestHandler_UpdateShippingAddress(t *testing.T) {
	handler, deps := newTestHandler(t)
	o := placeOrder(t, handler, 1)
	moved := order.Address{Street: "40 Canal St", City: "Leeds", Zip: "LS2 7EH"}

	updated, err := handler.UpdateShippingAddress(context.Background(), UpdateShippingAddress{OrderID: o.ID, ShippingAddress: moved})

	require.NoError(t, err)
	assert.Equal(t, moved, updated.ShippingAddress)
	assert.Equal(t, []string{order.EventOrderPlaced, order.EventOrderAddressChanged}, deps.publisher.EventTypes())
}

func TestHandler_CancelOrder_NotFound(t *testing.T) {
	handler, _ := newTestHandler(t)

	_, err := handler.CancelOrder(context.Background(), CancelOrder{OrderID: "missing", Note: "x"})

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

// ============================================
// Restock / Notification Tests
// ============================================

func TestHandler_RestockProduct(t *testing.T) {
	handler, _ := newTestHandler(t)

	stock, err := handler.RestockProduct(context.Background(), RestockProduct{VendorID: "vendor-1", ProductID: "prod-1", Quantity: 4})

	require.NoError(t, err)
	assert.Equal(t, 12, stock)
}

func TestHandler_RestockProduct_OtherVendor(t *testing.T) {
	handler, deps := newTestHandler(t)

	_, err := handler.RestockProduct(context.Background(), RestockProduct{VendorID: "vendor-2", ProductID: "prod-1", Quantity: 4})

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, 8, deps.products.Stock("prod-1"))
}

func TestHandler_MarkNotificationRead(t *testing.T) {
	handler, deps := newTestHandler(t)
	ctx := context.Background()
	placeOrder(t, handler, 7) // leaves 1 of 8, below threshold

	list, err := deps.notifications.ListForUser(ctx, "vendor-1")
	require.NoError(t, err)
	require.NotEmpty(t, list)

	n, err := handler.MarkNotificationRead(ctx, MarkNotificationRead{NotificationID: list[0].ID})

	require.NoError(t, err)
	assert.True(t, n.IsRead)

	_, err = handler.MarkNotificationRead(ctx, MarkNotificationRead{NotificationID: "missing"})
	assert.ErrorIs(t, err, notification.ErrNotificationNotFound)
}
