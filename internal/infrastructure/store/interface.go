package store

import (
	"time"

	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/domain/order"
	"github.com/example/ec-fulfillment/internal/domain/product"
	"github.com/example/ec-fulfillment/internal/domain/vendor"
)

// Stores bundles the repositories one backend provides.
type Stores struct {
	Products      product.Repository
	Orders        order.Repository
	Notifications notification.Repository
	Vendors       vendor.Directory
}

var now = func() time.Time { return time.Now().UTC() }

var (
	_ product.Repository      = (*MemoryProductStore)(nil)
	_ product.Repository      = (*PostgresProductStore)(nil)
	_ product.Repository      = (*DynamoProductStore)(nil)
	_ order.Repository        = (*MemoryOrderStore)(nil)
	_ order.Repository        = (*PostgresOrderStore)(nil)
	_ notification.Repository = (*MemoryNotificationStore)(nil)
	_ notification.Repository = (*PostgresNotificationStore)(nil)
	_ vendor.Directory        = (*MemoryVendorDirectory)(nil)
	_ vendor.Directory        = (*PostgresVendorDirectory)(nil)
)

// NewMemoryStores returns empty in-memory repositories.
func NewMemoryStores() (Stores, *MemoryProductStore, *MemoryVendorDirectory) {
	products := NewMemoryProductStore()
	vendors := NewMemoryVendorDirectory()
	return Stores{
		Products:      products,
		Orders:        NewMemoryOrderStore(),
		Notifications: NewMemoryNotificationStore(),
		Vendors:       vendors,
	}, products, vendors
}
