package types

import "time"

// NotificationCategory tags why a notification was created
type NotificationCategory string

const (
	CategoryUpdate      NotificationCategory = "update"
	CategoryEmergency   NotificationCategory = "emergency"
	CategoryResponse    NotificationCategory = "response"
	CategoryAppointment NotificationCategory = "appointment"
)

// Valid reports whether c is a known category
func (c NotificationCategory) Valid() bool {
	switch c {
	case CategoryUpdate, CategoryEmergency, CategoryResponse, CategoryAppointment:
		return true
	}
	return false
}

// Notification is one entry in a recipient's notification stream.
// Only IsRead changes after creation.
type Notification struct {
	ID          string               `json:"id" db:"id"`
	RecipientID string               `json:"recipient" db:"recipient_id"`
	Message     string               `json:"message" db:"message"`
	Category    NotificationCategory `json:"type" db:"category"`
	IsRead      bool                 `json:"isRead" db:"is_read"`
	CreatedAt   time.Time            `json:"createdAt" db:"created_at"`
}
