package types

import "time"

// Message is a direct message between two users. Messages are immutable.
type Message struct {
	ID         string    `json:"id" db:"id"`
	SenderID   string    `json:"sender" db:"sender_id"`
	ReceiverID string    `json:"receiver" db:"receiver_id"`
	Content    string    `json:"content" db:"content"`
	Timestamp  time.Time `json:"timestamp" db:"sent_at"`
}
