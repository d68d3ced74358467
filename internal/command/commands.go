package command

import "github.com/example/ec-fulfillment/internal/domain/order"

// Order Commands
type PlaceOrder struct {
	CustomerID      string              `json:"-"`
	ShippingAddress order.Address       `json:"shipping_address"`
	Items           []order.LineRequest `json:"items"`
}

type UpdateItemStatus struct {
	OrderID   string `json:"-"`
	ProductID string `json:"-"`
	VendorID  string `json:"-"`
	Status    string `json:"status"`
}

type DeliverOrder struct {
	OrderID string `json:"-"`
}

// UpdateShippingAddress is a staff correction of where an order ships.
type UpdateShippingAddress struct {
	OrderID         string        `json:"-"`
	ShippingAddress order.Address `json:"shipping_address"`
}

type CancelOrder struct {
	OrderID string `json:"-"`
	Note    string `json:"note"`
}

// Inventory Commands
type RestockProduct struct {
	VendorID  string `json:"-"`
	ProductID string `json:"-"`
	Quantity  int    `json:"quantity"`
}

// Notification Commands
type MarkNotificationRead struct {
	NotificationID string `json:"-"`
}
