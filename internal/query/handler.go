package query

import (
	"context"
	"fmt"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/domain/order"
)

// ErrNoVendorItems is returned when a vendor asks for an order it has no lines in.
var ErrNoVendorItems = fmt.Errorf("%w: vendor has no items in this order", apperr.ErrForbidden)

// Handler serves read-only views of stored orders. Every result is a copy.
type Handler struct {
	orders order.Repository
}

func NewHandler(orders order.Repository) *Handler {
	return &Handler{orders: orders}
}

func (h *Handler) GetOrderByID(ctx context.Context, orderID string) (*order.Order, error) {
	if orderID == "" {
		return nil, apperr.Validation("order id is required")
	}
	return h.orders.GetOrder(ctx, orderID)
}

// GetAllOrders lists every order, newest first. It backs the staff view.
func (h *Handler) GetAllOrders(ctx context.Context) ([]*order.Order, error) {
	return h.orders.ListOrders(ctx)
}

// GetOrdersByCustomer lists a customer's orders, newest first.
func (h *Handler) GetOrdersByCustomer(ctx context.Context, customerID string) ([]*order.Order, error) {
	if customerID == "" {
		return nil, apperr.Validation("customer id is required")
	}
	return h.orders.ListOrdersByCustomer(ctx, customerID)
}

// GetOrdersByVendor lists orders with at least one line from the vendor, newest first.
func (h *Handler) GetOrdersByVendor(ctx context.Context, vendorID string) ([]*order.Order, error) {
	if vendorID == "" {
		return nil, apperr.Validation("vendor id is required")
	}
	return h.orders.ListOrdersByVendor(ctx, vendorID)
}

// GetOrderItemsForVendor returns only the vendor's lines of an order.
func (h *Handler) GetOrderItemsForVendor(ctx context.Context, orderID, vendorID string) ([]order.OrderItem, error) {
	if vendorID == "" {
		return nil, apperr.Validation("vendor id is required")
	}
	o, err := h.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items := o.ItemsForVendor(vendorID)
	if len(items) == 0 {
		return nil, ErrNoVendorItems
	}
	return items, nil
}

func (h *Handler) GetOrderItemsForOrder(ctx context.Context, orderID string) ([]order.OrderItem, error) {
	o, err := h.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.Items, nil
}
