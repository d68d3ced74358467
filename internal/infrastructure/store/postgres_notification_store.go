package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-fulfillment/internal/domain/notification"
)

const notificationColumns = `id, user_id, message, is_read, related_product_id, created_at`

type PostgresNotificationStore struct {
	db *sql.DB
}

func NewPostgresNotificationStore(db *sql.DB) *PostgresNotificationStore {
	return &PostgresNotificationStore{db: db}
}

// InsertUnlessUnread relies on the partial unique index over unread
// (user_id, related_product_id) rows; a conflicting insert affects no rows.
func (s *PostgresNotificationStore) InsertUnlessUnread(ctx context.Context, n *notification.Notification) (bool, error) {
	related := sql.NullString{String: n.RelatedProductID, Valid: n.RelatedProductID != ""}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, message, is_read, related_product_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, related_product_id) WHERE NOT is_read AND related_product_id IS NOT NULL
		 DO NOTHING`,
		n.ID, n.UserID, n.Message, n.IsRead, related, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *PostgresNotificationStore) ListByUser(ctx context.Context, userID string) ([]*notification.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	result := make([]*notification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *PostgresNotificationStore) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 RETURNING `+notificationColumns, id)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notification.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return n, nil
}

func scanNotification(row rowScanner) (*notification.Notification, error) {
	var (
		n       notification.Notification
		related sql.NullString
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.IsRead, &related, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.RelatedProductID = related.String
	return &n, nil
}
