package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound          = fmt.Errorf("order %w", apperr.ErrNotFound)
	ErrOrderItemNotFound      = fmt.Errorf("order item %w", apperr.ErrNotFound)
	ErrNotItemVendor          = fmt.Errorf("%w: order item belongs to another vendor", apperr.ErrForbidden)
	ErrOrderCancelled         = fmt.Errorf("%w: order is cancelled", apperr.ErrInvalidStatusTransition)
	ErrOrderHasDeliveredItems = fmt.Errorf("%w: order has delivered items", apperr.ErrInvalidStatusTransition)
	ErrAddressLocked          = fmt.Errorf("%w: shipping address cannot change once an item has shipped", apperr.ErrInvalidStatusTransition)
	ErrVersionConflict        = fmt.Errorf("order modified concurrently: %w", apperr.ErrConflict)
	ErrDuplicateCode          = errors.New("order code already exists")
)

type Address struct {
	Street string `json:"street" validate:"required"`
	City   string `json:"city" validate:"required"`
	Zip    string `json:"zip" validate:"required,max=10"`
}

// OrderItem is one order line. Product and vendor fields are snapshots taken
// when the order was placed.
type OrderItem struct {
	ProductID         string                 `json:"product_id"`
	ProductCode       string                 `json:"product_code"`
	ProductName       string                 `json:"product_name"`
	ProductPrice      decimal.Decimal        `json:"product_price"`
	ImageURL          string                 `json:"image_url,omitempty"`
	VendorID          string                 `json:"vendor_id"`
	VendorName        string                 `json:"vendor_name"`
	Quantity          int                    `json:"quantity"`
	FulfillmentStatus fulfillment.ItemStatus `json:"fulfillment_status"`
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              string                  `json:"id"`
	Code            string                  `json:"code"`
	CustomerID      string                  `json:"customer_id"`
	Status          fulfillment.OrderStatus `json:"status"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	ShippingAddress Address                 `json:"shipping_address"`
	Items           []OrderItem             `json:"items"`
	Messages        []string                `json:"messages"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	Version         int                     `json:"version"`
}

// Total sums the line totals of items.
func Total(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.Messages = slices.Clone(o.Messages)
	return &c
}

func (o *Order) ItemStatuses() []fulfillment.ItemStatus {
	statuses := make([]fulfillment.ItemStatus, len(o.Items))
	for i, it := range o.Items {
		statuses[i] = it.FulfillmentStatus
	}
	return statuses
}

// FindItem returns the index of the line for productID.
func (o *Order) FindItem(productID string) (int, bool) {
	for i, it := range o.Items {
		if it.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// VendorIDs returns the distinct vendors of the order in line order.
func (o *Order) VendorIDs() []string {
	seen := make(map[string]bool, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if !seen[it.VendorID] {
			seen[it.VendorID] = true
			ids = append(ids, it.VendorID)
		}
	}
	return ids
}

func (o *Order) HasVendor(vendorID string) bool {
	for _, it := range o.Items {
		if it.VendorID == vendorID {
			return true
		}
	}
	return false
}

func (o *Order) ItemsForVendor(vendorID string) []OrderItem {
	var items []OrderItem
	for _, it := range o.Items {
		if it.VendorID == vendorID {
			items = append(items, it)
		}
	}
	return items
}

// refreshStatus recomputes the order status from its items.
func (o *Order) refreshStatus() {
	o.Status = fulfillment.DeriveOrderStatus(o.Status, o.ItemStatuses())
}

// Repository persists whole order documents.
type Repository interface {
	// CreateOrder stores a new order. It returns ErrDuplicateCode when the code is taken.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	// UpdateOrder replaces the stored order if its version still equals
	// o.Version, then increments o.Version. Otherwise it returns ErrVersionConflict.
	UpdateOrder(ctx context.Context, o *Order) error
	// ListOrders returns every order, newest first.
	ListOrders(ctx context.Context) ([]*Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]*Order, error)
	ListOrdersByVendor(ctx context.Context, vendorID string) ([]*Order, error)
}
