package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is one direct message between two users. Rows are immutable after
// insert and reference users by id only; usernames are resolved at read time.
type Message struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SenderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID uuid.UUID `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Content    string    `gorm:"not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// SendMessageRequest carries a new message. The receiver may be named by id
// or by username; exactly one is required.
type SendMessageRequest struct {
	Content    string `json:"content" form:"content" conform:"trim"`
	ReceiverID string `json:"receiver_id" form:"receiver_id"`
	Receiver   string `json:"receiver" form:"receiver" conform:"trim"`
}

// MessageView is a Message enriched with usernames for display.
type MessageView struct {
	ID         uuid.UUID `json:"id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
	Sender     string    `json:"sender"`
	Receiver   string    `json:"receiver"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}
