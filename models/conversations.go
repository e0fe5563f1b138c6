package models

import (
	"time"
)

// ConversationSummary is a derived projection, recomputed on every request
// and never stored: one counterpart plus the latest message exchanged with
// them. LastMessageAt is nil when no latest message could be resolved.
type ConversationSummary struct {
	Counterpart     User       `json:"counterpart"`
	LastMessageBody string     `json:"last_message"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
}
