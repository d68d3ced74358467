package product

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound    = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrProductUnavailable = apperr.Validation("product is not available")
)

// Product is the catalog entry an order line is snapshotted from.
// Stock is only changed through the inventory ledger.
type Product struct {
	ID             string          `json:"id"`
	Code           string          `json:"code"`
	VendorID       string          `json:"vendor_id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	ImageURL       string          `json:"image_url,omitempty"`
	Stock          int             `json:"stock"`
	StockThreshold int             `json:"stock_threshold"`
	IsActive       bool            `json:"is_active"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsLowOnStock reports whether stock has reached the alert threshold.
func (p *Product) IsLowOnStock() bool {
	return p.Stock <= p.StockThreshold
}

// Repository is the persistence collaborator for products.
type Repository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context) ([]*Product, error)
	// CompareAndSwapStock sets stock to next only if it still equals expected.
	// It reports false, without error, when another writer got there first.
	CompareAndSwapStock(ctx context.Context, id string, expected, next int) (bool, error)
	// IncrementStock atomically adds delta and returns the new stock.
	IncrementStock(ctx context.Context, id string, delta int) (int, error)
}
