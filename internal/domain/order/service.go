package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/example/ec-fulfillment/internal/domain/fulfillment"
	"github.com/example/ec-fulfillment/internal/domain/notification"
	"github.com/example/ec-fulfillment/internal/domain/product"
	"github.com/example/ec-fulfillment/internal/domain/vendor"
	"github.com/example/ec-fulfillment/internal/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/example/ec-fulfillment/internal/domain/order")

const (
	defaultMaxUpdateRetries = 5
	maxCodeAttempts         = 3
)

const (
	msgNewOrder        = "You have received a new order %s."
	msgItemStatus      = "The %s product in your order %s has been marked as %s."
	msgFullyDelivered  = "Your order %s has been fully delivered."
	msgDelivered       = "Your order %s has been delivered."
	msgCancelled       = "Your order %s has been cancelled. Note: %s"
	msgVendorCancelled = "Order %s was cancelled: %d x %s returned to stock."
	msgAddressChanged  = "The shipping address of your order %s has been updated."
	msgVendorNoRestock = "Order %s was cancelled: %d x %s could not be returned to stock, please restock manually."
)

// StockLedger is the inventory surface the lifecycle manager depends on.
type StockLedger interface {
	CheckAvailability(ctx context.Context, lines map[string]int) error
	ReduceStock(ctx context.Context, productID string, qty int) (int, error)
	IncreaseStock(ctx context.Context, productID string, qty int) (int, error)
	CheckLowStock(ctx context.Context, productID string) error
}

type Notifier interface {
	Notify(ctx context.Context, userID, message, relatedProductID string) (*notification.Notification, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// LineRequest asks for quantity units of one product.
type LineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

type CreateOrderInput struct {
	CustomerID      string        `json:"customer_id" validate:"required"`
	ShippingAddress Address       `json:"shipping_address"`
	Items           []LineRequest `json:"items" validate:"min=1,unique=ProductID,dive"`
}

// Service is the order lifecycle manager.
type Service struct {
	orders    Repository
	products  product.Repository
	ledger    StockLedger
	notifier  Notifier
	vendors   vendor.Directory
	publisher Publisher
	logger    *zap.Logger

	now              func() time.Time
	newCode          func(time.Time) string
	maxUpdateRetries int
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMaxUpdateRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUpdateRetries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithCodeGenerator(gen func(time.Time) string) Option {
	return func(s *Service) { s.newCode = gen }
}

func NewService(
	orders Repository,
	products product.Repository,
	ledger StockLedger,
	notifier Notifier,
	vendors vendor.Directory,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		orders:           orders,
		products:         products,
		ledger:           ledger,
		notifier:         notifier,
		vendors:          vendors,
		logger:           logger.Named("order"),
		now:              time.Now,
		newCode:          GenerateCode,
		maxUpdateRetries: defaultMaxUpdateRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================
// Create
// ============================================

// CreateOrder reserves stock for every line and persists a Pending order.
// Stock already taken is given back if a later line or the save fails.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (_ *Order, err error) {
	ctx, span := tracer.Start(ctx, "order.create", trace.WithAttributes(
		attribute.String("customer.id", in.CustomerID),
		attribute.Int("order.lines", len(in.Items)),
	))
	defer func() { endSpan(span, err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	items, err := s.snapshotItems(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	lines := make(map[string]int, len(items))
	for _, it := range items {
		lines[it.ProductID] = it.Quantity
	}
	if err := s.ledger.CheckAvailability(ctx, lines); err != nil {
		return nil, err
	}

	if err := s.reduceAll(ctx, items); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	o := &Order{
		ID:              uuid.New().String(),
		CustomerID:      in.CustomerID,
		Status:          fulfillment.OrderPending,
		TotalAmount:     Total(items),
		ShippingAddress: in.ShippingAddress,
		Items:           items,
		Messages:        []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	if err := s.insert(ctx, o); err != nil {
		s.restoreStock(ctx, items)
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("code", o.Code),
		zap.String("customer_id", o.CustomerID),
		zap.String("total", o.TotalAmount.String()),
	)

	for _, vendorID := range o.VendorIDs() {
		s.notify(ctx, vendorID, fmt.Sprintf(msgNewOrder, o.Code))
	}
	for _, it := range o.Items {
		if err := s.ledger.CheckLowStock(ctx, it.ProductID); err != nil {
			s.logger.Error("Low stock check failed",
				zap.String("product_id", it.ProductID),
				zap.Error(err),
			)
		}
	}
	s.publish(ctx, o.ID, OrderPlaced{
		OrderID:     o.ID,
		Code:        o.Code,
		CustomerID:  o.CustomerID,
		VendorIDs:   o.VendorIDs(),
		TotalAmount: o.TotalAmount,
		PlacedAt:    o.CreatedAt,
	})

	return o, nil
}

// snapshotItems copies product and vendor details into new order lines.
func (s *Service) snapshotItems(ctx context.Context, lines []LineRequest) ([]OrderItem, error) {
	vendorNames := make(map[string]string)
	items := make([]OrderItem, 0, len(lines))

	for _, line := range lines {
		p, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if !p.IsActive {
			return nil, fmt.Errorf("product %s: %w", p.ID, product.ErrProductUnavailable)
		}

		name, ok := vendorNames[p.VendorID]
		if !ok {
			name, err = vendor.DisplayName(ctx, s.vendors, p.VendorID)
			if err != nil {
				return nil, fmt.Errorf("resolve vendor %s: %w", p.VendorID, err)
			}
			vendorNames[p.VendorID] = name
		}

		items = append(items, OrderItem{
			ProductID:         p.ID,
			ProductCode:       p.Code,
			ProductName:       p.Name,
			ProductPrice:      p.Price,
			ImageURL:          p.ImageURL,
			VendorID:          p.VendorID,
			VendorName:        name,
			Quantity:          line.Quantity,
			FulfillmentStatus: fulfillment.ItemPending,
		})
	}
	return items, nil
}

// reduceAll takes stock for every line. On failure the lines already reduced
// are restored before returning.
func (s *Service) reduceAll(ctx context.Context, items []OrderItem) error {
	for i, it := range items {
		if _, err := s.ledger.ReduceStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.restoreStock(ctx, items[:i])
			return fmt.Errorf("reserve stock for product %s: %w", it.ProductID, err)
		}
	}
	return nil
}

func (s *Service) restoreStock(ctx context.Context, items []OrderItem) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range items {
		if _, err := s.ledger.IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger.Error("Failed to restore stock",
				zap.String("product_id", it.ProductID),
				zap.Int("quantity", it.Quantity),
				zap.Error(err),
			)
			continue
		}
		s.logger.Warn("Restored stock after failed order",
			zap.String("product_id", it.ProductID),
			zap.Int("quantity", it.Quantity),
		)
	}
}

func (s *Service) insert(ctx context.Context, o *Order) error {
	for attempt := 1; ; attempt++ {
		o.Code = s.newCode(o.CreatedAt)
		err := s.orders.CreateOrder(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateCode) {
			return fmt.Errorf("save order: %w", err)
		}
		if attempt == maxCodeAttempts {
			return fmt.Errorf("allocate order code: %w", apperr.ErrConflict)
		}
		s.logger.Debug("Order code collision, regenerating", zap.String("code", o.Code))
	}
}

// ============================================
// Fulfillment updates
// ============================================

// UpdateOrderItemStatus moves one line forward on behalf of its vendor and
// recomputes the order status.
func (s *Service) UpdateOrderItemStatus(ctx context.Context, orderID, productID, vendorID string, status fulfillment.ItemStatus) (_ *Order, err error) {
	ctx, span := tracer.Start(ctx, "order.update_item_status", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("product.id", productID),
		attribute.String("item.status", string(status)),
	))
	defer func() { endSpan(span, err) }()

	if orderID == "" || productID == "" || vendorID == "" {
		return nil, apperr.Validation("order id, product id and vendor id are required")
	}
	if _, err := fulfillment.ParseItemStatus(string(status)); err != nil {
		return nil, err
	}

	var item OrderItem
	o, _, err := s.mutate(ctx, orderID, func(o *Order) (bool, error) {
		idx, ok := o.FindItem(productID)
		if !ok {
			return false, ErrOrderItemNotFound
		}
		if o.Items[idx].VendorID != vendorID {
			return false, ErrNotItemVendor
		}
		next, err := fulfillment.Transition(o.Items[idx].FulfillmentStatus, status, fulfillment.TriggerVendor)
		if err != nil {
			return false, err
		}
		o.Items[idx].FulfillmentStatus = next
		o.refreshStatus()
		item = o.Items[idx]
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order item status updated",
		zap.String("order_id", o.ID),
		zap.String("product_id", productID),
		zap.String("vendor_id", vendorID),
		zap.String("item_status", string(item.FulfillmentStatus)),
		zap.String("order_status", string(o.Status)),
	)

	if o.Status == fulfillment.OrderFulfilled {
		s.notify(ctx, o.CustomerID, fmt.Sprintf(msgFullyDelivered, o.Code))
	} else {
		s.notify(ctx, o.CustomerID, fmt.Sprintf(msgItemStatus, item.ProductName, o.Code, strings.ToLower(string(item.FulfillmentStatus))))
	}
	s.publish(ctx, o.ID, OrderItemStatusChanged{
		OrderID:     o.ID,
		ProductID:   productID,
		VendorID:    vendorID,
		ItemStatus:  string(item.FulfillmentStatus),
		OrderStatus: string(o.Status),
		ChangedAt:   o.UpdatedAt,
	})

	return o, nil
}

// MarkOrderDelivered delivers every line at once. A fulfilled order is
// returned unchanged.
func (s *Service) MarkOrderDelivered(ctx context.Context, orderID string) (_ *Order, err error) {
	ctx, span := tracer.Start(ctx, "order.mark_delivered", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	if orderID == "" {
		return nil, apperr.Validation("order id is required")
	}

	o, changed, err := s.mutate(ctx, orderID, func(o *Order) (bool, error) {
		switch o.Status {
		case fulfillment.OrderCancelled:
			return false, ErrOrderCancelled
		case fulfillment.OrderFulfilled:
			return false, nil
		}
		for i := range o.Items {
			if o.Items[i].FulfillmentStatus == fulfillment.ItemDelivered {
				continue
			}
			next, err := fulfillment.Transition(o.Items[i].FulfillmentStatus, fulfillment.ItemDelivered, fulfillment.TriggerAdminDeliver)
			if err != nil {
				return false, err
			}
			o.Items[i].FulfillmentStatus = next
		}
		o.refreshStatus()
		return true, nil
	})
	if err != nil || !changed {
		return o, err
	}

	s.logger.Info("Order marked delivered", zap.String("order_id", o.ID))
	s.notify(ctx, o.CustomerID, fmt.Sprintf(msgDelivered, o.Code))
	s.publish(ctx, o.ID, OrderDelivered{OrderID: o.ID, DeliveredAt: o.UpdatedAt})

	return o, nil
}

// ============================================
// Address
// ============================================

// UpdateShippingAddress replaces the shipping address while every line is
// still Pending. Items, total and status are left as they are.
func (s *Service) UpdateShippingAddress(ctx context.Context, orderID string, addr Address) (_ *Order, err error) {
	ctx, span := tracer.Start(ctx, "order.update_address", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	if orderID == "" {
		return nil, apperr.Validation("order id is required")
	}
	if err := validation.Struct(addr); err != nil {
		return nil, err
	}

	o, changed, err := s.mutate(ctx, orderID, func(o *Order) (bool, error) {
		if o.Status == fulfillment.OrderCancelled {
			return false, ErrOrderCancelled
		}
		for _, it := range o.Items {
			if it.FulfillmentStatus != fulfillment.ItemPending {
				return false, ErrAddressLocked
			}
		}
		if o.ShippingAddress == addr {
			return false, nil
		}
		o.ShippingAddress = addr
		return true, nil
	})
	if err != nil || !changed {
		return o, err
	}

	s.logger.Info("Order shipping address updated", zap.String("order_id", o.ID))
	s.notify(ctx, o.CustomerID, fmt.Sprintf(msgAddressChanged, o.Code))
	s.publish(ctx, o.ID, OrderAddressChanged{OrderID: o.ID, ShippingAddress: addr, ChangedAt: o.UpdatedAt})

	return o, nil
}

// ============================================
// Cancellation
// ============================================

// CancelOrder cancels every open line, returns their stock and records note.
// Cancelling a cancelled order is a no-op, so stock is never returned twice.
// If some stock cannot be returned the cancelled order is still returned,
// together with the error.
func (s *Service) CancelOrder(ctx context.Context, orderID, note string) (_ *Order, err error) {
	ctx, span := tracer.Start(ctx, "order.cancel", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() { endSpan(span, err) }()

	note = strings.TrimSpace(note)
	if orderID == "" {
		return nil, apperr.Validation("order id is required")
	}
	if note == "" {
		return nil, apperr.Validation("cancellation note is required")
	}

	var cancelled []OrderItem
	o, changed, err := s.mutate(ctx, orderID, func(o *Order) (bool, error) {
		cancelled = cancelled[:0]
		if o.Status == fulfillment.OrderCancelled {
			return false, nil
		}
		for _, it := range o.Items {
			if it.FulfillmentStatus == fulfillment.ItemDelivered {
				return false, ErrOrderHasDeliveredItems
			}
		}
		for i := range o.Items {
			if o.Items[i].FulfillmentStatus == fulfillment.ItemCancelled {
				continue
			}
			next, err := fulfillment.Transition(o.Items[i].FulfillmentStatus, fulfillment.ItemCancelled, fulfillment.TriggerCancellation)
			if err != nil {
				return false, err
			}
			o.Items[i].FulfillmentStatus = next
			cancelled = append(cancelled, o.Items[i])
		}
		o.Status = fulfillment.OrderCancelled
		o.Messages = append(o.Messages, note)
		return true, nil
	})
	if err != nil || !changed {
		return o, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", o.ID),
		zap.Int("items", len(cancelled)),
	)

	var restoreErrs []error
	for _, it := range cancelled {
		if _, err := s.ledger.IncreaseStock(context.WithoutCancel(ctx), it.ProductID, it.Quantity); err != nil {
			s.logger.Error("Failed to return stock for cancelled item",
				zap.String("order_id", o.ID),
				zap.String("product_id", it.ProductID),
				zap.Error(err),
			)
			restoreErrs = append(restoreErrs, fmt.Errorf("product %s: %w", it.ProductID, err))
			s.notify(ctx, it.VendorID, fmt.Sprintf(msgVendorNoRestock, o.Code, it.Quantity, it.ProductName))
			continue
		}
		s.notify(ctx, it.VendorID, fmt.Sprintf(msgVendorCancelled, o.Code, it.Quantity, it.ProductName))
	}
	s.notify(ctx, o.CustomerID, fmt.Sprintf(msgCancelled, o.Code, note))
	s.publish(ctx, o.ID, OrderCancelled{OrderID: o.ID, Note: note, CancelledAt: o.UpdatedAt})

	if len(restoreErrs) > 0 {
		return o, fmt.Errorf("order %s cancelled but stock was not fully returned: %w", o.ID, errors.Join(restoreErrs...))
	}
	return o, nil
}

// ============================================
// Helpers
// ============================================

// mutate loads the order, applies fn and saves it under the version check,
// reloading and reapplying on conflict. fn reports false to skip the save.
func (s *Service) mutate(ctx context.Context, orderID string, fn func(*Order) (bool, error)) (*Order, bool, error) {
	for attempt := 1; attempt <= s.maxUpdateRetries; attempt++ {
		o, err := s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return nil, false, err
		}

		changed, err := fn(o)
		if err != nil {
			return nil, false, err
		}
		if !changed {
			return o, false, nil
		}

		o.UpdatedAt = s.now().UTC()
		err = s.orders.UpdateOrder(ctx, o)
		if err == nil {
			return o, true, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, false, fmt.Errorf("save order %s: %w", orderID, err)
		}

		s.logger.Debug("Order version conflict, retrying",
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt),
		)
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("save order %s after %d attempts: %w", orderID, s.maxUpdateRetries, ErrVersionConflict)
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	if _, err := s.notifier.Notify(ctx, userID, message, ""); err != nil {
		s.logger.Error("Failed to send notification",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (s *Service) publish(ctx context.Context, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("order_id", key),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
