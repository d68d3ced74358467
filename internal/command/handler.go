package command

import (
	"context"

	"github.com/example/ec-fulfillment/internal/domain/fulfillment"
	"github.com/example/ec-fulfillment/internal/domain/inventory"
	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/domain/order"
)

// Handler maps incoming commands onto the domain services.
type Handler struct {
	orderSvc        *order.Service
	inventorySvc    *inventory.Service
	notificationSvc *notification.Service
}

func NewHandler(
	orderSvc *order.Service,
	inventorySvc *inventory.Service,
	notificationSvc *notification.Service,
) *Handler {
	return &Handler{
		orderSvc:        orderSvc,
		inventorySvc:    inventorySvc,
		notificationSvc: notificationSvc,
	}
}

// PlaceOrder reserves stock and creates a pending order
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	return h.orderSvc.CreateOrder(ctx, order.CreateOrderInput{
		CustomerID:      cmd.CustomerID,
		ShippingAddress: cmd.ShippingAddress,
		Items:           cmd.Items,
	})
}

// UpdateItemStatus moves one of the vendor's order lines forward
func (h *Handler) UpdateItemStatus(ctx context.Context, cmd UpdateItemStatus) (*order.Order, error) {
	status, err := fulfillment.ParseItemStatus(cmd.Status)
	if err != nil {
		return nil, err
	}
	return h.orderSvc.UpdateOrderItemStatus(ctx, cmd.OrderID, cmd.ProductID, cmd.VendorID, status)
}

// DeliverOrder marks every line of an order delivered
func (h *Handler) DeliverOrder(ctx context.Context, cmd DeliverOrder) (*order.Order, error) {
	return h.orderSvc.MarkOrderDelivered(ctx, cmd.OrderID)
}

func (h *Handler) UpdateShippingAddress(ctx context.Context, cmd UpdateShippingAddress) (*order.Order, error) {
	return h.orderSvc.UpdateShippingAddress(ctx, cmd.OrderID, cmd.ShippingAddress)
}

// CancelOrder cancels an order and returns its stock
func (h *Handler) CancelOrder(ctx context.Context, cmd CancelOrder) (*order.Order, error) {
	return h.orderSvc.CancelOrder(ctx, cmd.OrderID, cmd.Note)
}

// RestockProduct adds stock to a product owned by the vendor and returns the new level
func (h *Handler) RestockProduct(ctx context.Context, cmd RestockProduct) (int, error) {
	return h.inventorySvc.Restock(ctx, cmd.VendorID, cmd.ProductID, cmd.Quantity)
}

func (h *Handler) MarkNotificationRead(ctx context.Context, cmd MarkNotificationRead) (*notification.Notification, error) {
	return h.notificationSvc.MarkRead(ctx, cmd.NotificationID)
}
