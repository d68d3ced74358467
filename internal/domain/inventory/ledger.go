package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/domain/product"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/example/ec-fulfillment/internal/domain/inventory")

const DefaultMaxCASRetries = 32

var (
	ErrInsufficientStock = apperr.ErrInsufficientStock
	ErrInvalidQuantity   = apperr.Validation("quantity must be positive")
	ErrNotProductOwner   = fmt.Errorf("%w: product belongs to another vendor", apperr.ErrForbidden)
	ErrStockContention   = fmt.Errorf("stock update kept losing to concurrent writers: %w", apperr.ErrConflict)
)

const msgLowStock = "Low stock alert: product '%s' has %d left (threshold %d)."

type Notifier interface {
	Notify(ctx context.Context, userID, message, relatedProductID string) (*notification.Notification, error)
}

// Service is the inventory ledger. It is the only writer of product stock.
type Service struct {
	products      product.Repository
	notifier      Notifier
	logger        *zap.Logger
	maxCASRetries int
	alertStaff    bool
}

type Option func(*Service)

func WithMaxCASRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCASRetries = n
		}
	}
}

// WithStaffAlerts also broadcasts low stock alerts to staff.
func WithStaffAlerts(enabled bool) Option {
	return func(s *Service) { s.alertStaff = enabled }
}

func NewService(products product.Repository, notifier Notifier, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		products:      products,
		notifier:      notifier,
		logger:        logger.Named("inventory"),
		maxCASRetries: DefaultMaxCASRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReduceStock takes qty units from a product. The read and the conditional
// write form a compare-and-swap, retried while other writers win the race.
func (s *Service) ReduceStock(ctx context.Context, productID string, qty int) (int, error) {
	ctx, span := tracer.Start(ctx, "inventory.reduce_stock", trace.WithAttributes(
		attribute.String("product.id", productID),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	for attempt := 1; attempt <= s.maxCASRetries; attempt++ {
		p, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return 0, err
		}
		if p.Stock < qty {
			return 0, fmt.Errorf("%w: product %s has %d, requested %d", ErrInsufficientStock, productID, p.Stock, qty)
		}

		next := p.Stock - qty
		swapped, err := s.products.CompareAndSwapStock(ctx, productID, p.Stock, next)
		if err != nil {
			return 0, fmt.Errorf("reduce stock for %s: %w", productID, err)
		}
		if swapped {
			span.SetAttributes(attribute.Int("attempts", attempt))
			s.logger.Debug("Stock reduced",
				zap.String("product_id", productID),
				zap.Int("quantity", qty),
				zap.Int("stock", next),
			)
			return next, nil
		}

		if err := ctx.Err(); err != nil {
			return 0, err
		}
	}

	s.logger.Warn("Stock reduction gave up under contention",
		zap.String("product_id", productID),
		zap.Int("attempts", s.maxCASRetries),
	)
	return 0, ErrStockContention
}

// IncreaseStock returns qty units to a product.
func (s *Service) IncreaseStock(ctx context.Context, productID string, qty int) (int, error) {
	ctx, span := tracer.Start(ctx, "inventory.increase_stock", trace.WithAttributes(
		attribute.String("product.id", productID),
		attribute.Int("quantity", qty),
	))
	defer span.End()

	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	stock, err := s.products.IncrementStock(ctx, productID, qty)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Stock increased",
		zap.String("product_id", productID),
		zap.Int("quantity", qty),
		zap.Int("stock", stock),
	)
	return stock, nil
}

// CheckAvailability verifies, without changing anything, that every product
// currently holds the requested quantity.
func (s *Service) CheckAvailability(ctx context.Context, lines map[string]int) error {
	for productID, qty := range lines {
		if qty <= 0 {
			return ErrInvalidQuantity
		}
		p, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if p.Stock < qty {
			return fmt.Errorf("%w: product %s has %d, requested %d", ErrInsufficientStock, productID, p.Stock, qty)
		}
	}
	return nil
}

// Restock adds stock on behalf of the product's vendor.
func (s *Service) Restock(ctx context.Context, vendorID, productID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p.VendorID != vendorID {
		return 0, ErrNotProductOwner
	}

	stock, err := s.IncreaseStock(ctx, productID, qty)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Product restocked",
		zap.String("product_id", productID),
		zap.String("vendor_id", vendorID),
		zap.Int("stock", stock),
	)

	if err := s.CheckLowStock(ctx, productID); err != nil {
		s.logger.Error("Low stock check failed", zap.String("product_id", productID), zap.Error(err))
	}
	return stock, nil
}

// CheckLowStock notifies the product's vendor when stock is at or below the
// threshold. Repeated alerts are suppressed while the last one is unread.
func (s *Service) CheckLowStock(ctx context.Context, productID string) error {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	return s.alertIfLow(ctx, p)
}

func (s *Service) alertIfLow(ctx context.Context, p *product.Product) error {
	if !p.IsLowOnStock() {
		return nil
	}

	msg := fmt.Sprintf(msgLowStock, p.Name, p.Stock, p.StockThreshold)
	n, err := s.notifier.Notify(ctx, p.VendorID, msg, p.ID)
	if err != nil {
		return fmt.Errorf("notify vendor %s: %w", p.VendorID, err)
	}
	if n != nil {
		s.logger.Info("Low stock alert sent",
			zap.String("product_id", p.ID),
			zap.String("vendor_id", p.VendorID),
			zap.Int("stock", p.Stock),
		)
	}

	if s.alertStaff {
		if _, err := s.notifier.Notify(ctx, "", msg, p.ID); err != nil {
			return fmt.Errorf("notify staff: %w", err)
		}
	}
	return nil
}

// SweepResult summarises one low stock sweep.
type SweepResult struct {
	Checked int
	Low     int
	Failed  int
}

// SweepLowStock applies the low stock check to every product. A failure on
// one product is logged and the sweep moves on.
func (s *Service) SweepLowStock(ctx context.Context) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "inventory.sweep_low_stock")
	defer span.End()

	var res SweepResult
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return res, fmt.Errorf("list products: %w", err)
	}

	var errs []error
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		if p.IsLowOnStock() {
			res.Low++
		}
		if err := s.alertIfLow(ctx, p); err != nil {
			res.Failed++
			errs = append(errs, err)
			s.logger.Error("Low stock check failed", zap.String("product_id", p.ID), zap.Error(err))
		}
	}

	span.SetAttributes(
		attribute.Int("products.checked", res.Checked),
		attribute.Int("products.low", res.Low),
	)
	if len(errs) == len(products) && len(errs) > 0 {
		return res, fmt.Errorf("every low stock check failed: %w", errors.Join(errs...))
	}
	return res, nil
}
