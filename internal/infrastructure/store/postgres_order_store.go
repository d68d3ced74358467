package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ec-fulfillment/internal/domain/fulfillment"
	"github.com/example/ec-fulfillment/internal/domain/order"
	"github.com/lib/pq"
)

const orderColumns = `id, code, customer_id, status, total_amount, shipping_address, items, messages, created_at, updated_at, version`

const pqUniqueViolation = "23505"

// PostgresOrderStore keeps each order as one row with its lines in a JSONB
// document. Updates are guarded by the version column.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) CreateOrder(ctx context.Context, o *order.Order) error {
	address, items, messages, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (id, code, customer_id, status, total_amount, shipping_address, items, messages, vendor_ids, created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.Code, o.CustomerID, string(o.Status), o.TotalAmount,
		address, items, messages, pq.Array(o.VendorIDs()),
		o.CreatedAt, o.UpdatedAt, o.Version,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == "orders_code_key" {
		return order.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresOrderStore) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (s *PostgresOrderStore) UpdateOrder(ctx context.Context, o *order.Order) error {
	address, items, messages, err := marshalOrderDocs(o)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $3, items = $4, messages = $5, updated_at = $6, shipping_address = $7, version = version + 1
		 WHERE id = $1 AND version = $2`,
		o.ID, o.Version, string(o.Status), items, messages, o.UpdatedAt, address,
	)
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check order %s: %w", o.ID, err)
		}
		if !exists {
			return order.ErrOrderNotFound
		}
		return order.ErrVersionConflict
	}

	o.Version++
	return nil
}

func (s *PostgresOrderStore) ListOrders(ctx context.Context) ([]*order.Order, error) {
	return s.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC, id DESC`)
}

func (s *PostgresOrderStore) ListOrdersByCustomer(ctx context.Context, customerID string) ([]*order.Order, error) {
	return s.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`,
		customerID)
}

func (s *PostgresOrderStore) ListOrdersByVendor(ctx context.Context, vendorID string) ([]*order.Order, error) {
	return s.list(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE $1 = ANY(vendor_ids) ORDER BY created_at DESC, id DESC`,
		vendorID)
}

func (s *PostgresOrderStore) list(ctx context.Context, query string, args ...any) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func marshalOrderDocs(o *order.Order) (address, items, messages []byte, err error) {
	if address, err = json.Marshal(o.ShippingAddress); err != nil {
		return nil, nil, nil, err
	}
	if items, err = json.Marshal(o.Items); err != nil {
		return nil, nil, nil, err
	}
	msgs := o.Messages
	if msgs == nil {
		msgs = []string{}
	}
	if messages, err = json.Marshal(msgs); err != nil {
		return nil, nil, nil, err
	}
	return address, items, messages, nil
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o                        order.Order
		status                   string
		address, items, messages []byte
	)
	err := row.Scan(
		&o.ID, &o.Code, &o.CustomerID, &status, &o.TotalAmount,
		&address, &items, &messages, &o.CreatedAt, &o.UpdatedAt, &o.Version,
	)
	if err != nil {
		return nil, err
	}
	o.Status = fulfillment.OrderStatus(status)

	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(messages, &o.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return &o, nil
}
