package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-fulfillment/internal/domain/vendor"
)

type PostgresVendorDirectory struct {
	db *sql.DB
}

func NewPostgresVendorDirectory(db *sql.DB) *PostgresVendorDirectory {
	return &PostgresVendorDirectory{db: db}
}

func (d *PostgresVendorDirectory) GetVendor(ctx context.Context, id string) (*vendor.Vendor, error) {
	var v vendor.Vendor
	err := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, business_name, rating FROM vendors WHERE id = $1`, id,
	).Scan(&v.ID, &v.UserID, &v.BusinessName, &v.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, vendor.ErrVendorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get vendor %s: %w", id, err)
	}
	return &v, nil
}
