package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-fulfillment/internal/domain/product"
)

const productColumns = `id, code, vendor_id, name, price, image_url, stock, stock_threshold, is_active, updated_at`

// PostgresProductStore implements product.Repository. Stock changes are single
// conditional UPDATE statements, so no row locks are held across calls.
type PostgresProductStore struct {
	db *sql.DB
}

func NewPostgresProductStore(db *sql.DB) *PostgresProductStore {
	return &PostgresProductStore{db: db}
}

func (s *PostgresProductStore) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, product.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresProductStore) ListProducts(ctx context.Context) ([]*product.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresProductStore) CompareAndSwapStock(ctx context.Context, id string, expected, next int) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET stock = $3, updated_at = NOW() WHERE id = $1 AND stock = $2`,
		id, expected, next,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresProductStore) IncrementStock(ctx context.Context, id string, delta int) (int, error) {
	var stock int
	err := s.db.QueryRowContext(ctx,
		`UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1 RETURNING stock`,
		id, delta,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, product.ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment stock for %s: %w", id, err)
	}
	return stock, nil
}

func scanProduct(row rowScanner) (*product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Code, &p.VendorID, &p.Name, &p.Price, &p.ImageURL,
		&p.Stock, &p.StockThreshold, &p.IsActive, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
