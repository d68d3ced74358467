package store

import (
	"context"
	"sort"
	"sync"

	"github.com/example/ec-fulfillment/internal/domain/notification"
)

type MemoryNotificationStore struct {
	mu    sync.RWMutex
	items map[string]notification.Notification
}

func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{items: make(map[string]notification.Notification)}
}

func (s *MemoryNotificationStore) InsertUnlessUnread(_ context.Context, n *notification.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.RelatedProductID != "" {
		for _, existing := range s.items {
			if !existing.IsRead && existing.UserID == n.UserID && existing.RelatedProductID == n.RelatedProductID {
				return false, nil
			}
		}
	}
	s.items[n.ID] = *n
	return true, nil
}

func (s *MemoryNotificationStore) ListByUser(_ context.Context, userID string) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*notification.Notification, 0)
	for _, n := range s.items {
		if n.UserID == userID {
			n := n
			result = append(result, &n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryNotificationStore) MarkRead(_ context.Context, id string) (*notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return nil, notification.ErrNotificationNotFound
	}
	n.IsRead = true
	s.items[id] = n
	return &n, nil
}
