package models

import "time"

// Message is an entry in a chat's append-only log.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	ChatID    int64     `db:"chat_id" json:"chat_id"`
	SenderID  int64     `db:"sender_id" json:"sender_id"`
	Content   string    `db:"content" json:"content"`
	ReadBy    []int64   `json:"read_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReadByUser reports whether the user already appears in the read set.
func (m Message) ReadByUser(userID int64) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
