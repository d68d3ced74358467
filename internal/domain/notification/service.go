package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrNotificationNotFound = fmt.Errorf("notification %w", apperr.ErrNotFound)

// Notification is a message for one user, or for all staff when UserID is empty.
type Notification struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id,omitempty"`
	Message          string    `json:"message"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
	RelatedProductID string    `json:"related_product_id,omitempty"`
}

// IsBroadcast reports whether the notification targets staff roles.
func (n *Notification) IsBroadcast() bool {
	return n.UserID == ""
}

type Repository interface {
	// InsertUnlessUnread stores n. When n has a RelatedProductID the insert is
	// skipped, and false returned, if an unread notification already exists for
	// the same (UserID, RelatedProductID). Check and insert are atomic.
	InsertUnlessUnread(ctx context.Context, n *Notification) (bool, error)
	// ListByUser returns notifications newest first. An empty userID lists broadcasts.
	ListByUser(ctx context.Context, userID string) ([]*Notification, error)
	MarkRead(ctx context.Context, id string) (*Notification, error)
}

// Publisher forwards created notifications to downstream delivery.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the dispatcher. publisher may be nil.
func NewService(repo Repository, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Named("notification"),
		now:       time.Now,
	}
}

// Notify creates a notification for userID (empty for a staff broadcast).
// With a relatedProductID, nothing is created while an unread notification for
// the same user and product exists; in that case Notify returns nil, nil.
func (s *Service) Notify(ctx context.Context, userID, message, relatedProductID string) (*Notification, error) {
	if message == "" {
		return nil, apperr.Validation("notification message is required")
	}

	n := &Notification{
		ID:               uuid.New().String(),
		UserID:           userID,
		Message:          message,
		CreatedAt:        s.now().UTC(),
		RelatedProductID: relatedProductID,
	}

	inserted, err := s.repo.InsertUnlessUnread(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	if !inserted {
		s.logger.Debug("Notification suppressed, unread one exists",
			zap.String("user_id", userID),
			zap.String("product_id", relatedProductID),
		)
		return nil, nil
	}

	s.publish(ctx, n)
	return n, nil
}

func (s *Service) publish(ctx context.Context, n *Notification) {
	if s.publisher == nil {
		return
	}
	event := NotificationCreated{
		NotificationID:   n.ID,
		UserID:           n.UserID,
		Message:          n.Message,
		RelatedProductID: n.RelatedProductID,
		CreatedAt:        n.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, n.ID, event); err != nil {
		s.logger.Error("Failed to publish notification",
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Notification, error) {
	if userID == "" {
		return nil, apperr.Validation("user id is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListBroadcast(ctx context.Context) ([]*Notification, error) {
	return s.repo.ListByUser(ctx, "")
}

// MarkRead flags a notification as read. Marking twice is harmless.
func (s *Service) MarkRead(ctx context.Context, id string) (*Notification, error) {
	if id == "" {
		return nil, apperr.Validation("notification id is required")
	}
	return s.repo.MarkRead(ctx, id)
}
