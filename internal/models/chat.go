package models

import "time"

// ConversationType distinguishes direct pair chats from named groups.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Chat is a conversation between two or more users.
type Chat struct {
	ID               int64            `db:"id" json:"id"`
	ConversationType ConversationType `db:"conversation_type" json:"conversation_type"`
	ConversationName string           `db:"conversation_name" json:"conversation_name,omitempty"`
	Participants     []int64          `json:"participants"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// ChatSummary is the per-user listing view of a chat, carrying the derived
// last message when one exists.
type ChatSummary struct {
	Chat
	LastMessage *Message `json:"last_message,omitempty"`
}
