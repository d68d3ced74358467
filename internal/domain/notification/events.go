package notification

import "time"

const EventNotificationCreated = "NotificationCreated"

type NotificationCreated struct {
	NotificationID   string    `json:"notification_id"`
	UserID           string    `json:"user_id,omitempty"`
	Message          string    `json:"message"`
	RelatedProductID string    `json:"related_product_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (NotificationCreated) EventType() string { return EventNotificationCreated }
