package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one message in a user's conversation history.
// Turns are append-only and strictly ordered per user by Seq.
type ConversationTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:128;not null;index" json:"user_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Seq       int64     `gorm:"not null" json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}
