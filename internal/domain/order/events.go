package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced            = "OrderPlaced"
	EventOrderItemStatusChanged = "OrderItemStatusChanged"
	EventOrderCancelled         = "OrderCancelled"
	EventOrderDelivered         = "OrderDelivered"
	EventOrderAddressChanged    = "OrderAddressChanged"
)

type OrderPlaced struct {
	OrderID     string          `json:"order_id"`
	Code        string          `json:"code"`
	CustomerID  string          `json:"customer_id"`
	VendorIDs   []string        `json:"vendor_ids"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PlacedAt    time.Time       `json:"placed_at"`
}

type OrderItemStatusChanged struct {
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id"`
	VendorID    string    `json:"vendor_id"`
	ItemStatus  string    `json:"item_status"`
	OrderStatus string    `json:"order_status"`
	ChangedAt   time.Time `json:"changed_at"`
}

type OrderCancelled struct {
	OrderID     string    `json:"order_id"`
	Note        string    `json:"note"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type OrderDelivered struct {
	OrderID     string    `json:"order_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type OrderAddressChanged struct {
	OrderID         string    `json:"order_id"`
	ShippingAddress Address   `json:"shipping_address"`
	ChangedAt       time.Time `json:"changed_at"`
}

func (OrderPlaced) EventType() string            { return EventOrderPlaced }
func (OrderItemStatusChanged) EventType() string { return EventOrderItemStatusChanged }
func (OrderCancelled) EventType() string         { return EventOrderCancelled }
func (OrderDelivered) EventType() string         { return EventOrderDelivered }
func (OrderAddressChanged) EventType() string    { return EventOrderAddressChanged }
