package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"linkup-service/internal/models"
)

var ErrEmptyMessage = errors.New("message content is empty")

// MessageRepository defines interactions with a chat's append-only message
// log and its read receipts.
type MessageRepository interface {
	AppendMessage(ctx context.Context, chatID, senderID int64, content string) (models.Message, error)
	GetMessagesMarkingRead(ctx context.Context, chatID, requesterID int64) ([]models.Message, error)
	MarkRead(ctx context.Context, chatID, userID int64, uptoMessageID int64) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// requireParticipant verifies the chat exists and the user belongs to it.
func requireParticipant(ctx context.Context, tx *sqlx.Tx, chatID, userID int64) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chats WHERE id=$1)`, chatID); err != nil {
		return err
	}
	if !exists {
		return ErrChatNotFound
	}
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID); err != nil {
		return err
	}
	if !exists {
		return ErrNotParticipant
	}
	return nil
}

// AppendMessage stores a message, seeds its read set with the sender and
// bumps the chat's last-activity time, all in one transaction so the derived
// last message is never observably out of sync with the log.
func (r *MessageRepo) AppendMessage(ctx context.Context, chatID, senderID int64, content string) (models.Message, error) {
	if content == "" {
		return models.Message{}, ErrEmptyMessage
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = requireParticipant(ctx, tx, chatID, senderID); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, content) VALUES ($1, $2, $3)
         RETURNING id, chat_id, sender_id, content, created_at`,
		chatID, senderID, content).StructScan(&msg); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id) VALUES ($1, $2)`, msg.ID, senderID); err != nil {
		return models.Message{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE chats SET updated_at=$1 WHERE id=$2`, msg.CreatedAt, chatID); err != nil {
		return models.Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Message{}, err
	}

	msg.ReadBy = []int64{senderID}
	return msg, nil
}

// GetMessagesMarkingRead returns the chat's messages oldest first and, in
// the same transaction, records the requester as having read every one of
// them (fetch-and-acknowledge).
func (r *MessageRepo) GetMessagesMarkingRead(ctx context.Context, chatID, requesterID int64) ([]models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = requireParticipant(ctx, tx, chatID, requesterID); err != nil {
		return nil, err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id)
         SELECT id, $2 FROM messages WHERE chat_id=$1
         ON CONFLICT DO NOTHING`, chatID, requesterID); err != nil {
		return nil, err
	}

	msgs, err := selectMessagesWithReads(ctx, tx, chatID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead records the user as having read the chat's messages up to and
// including uptoMessageID, or all of them when uptoMessageID is zero.
// Re-marking already-read messages is a no-op.
func (r *MessageRepo) MarkRead(ctx context.Context, chatID, userID, uptoMessageID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = requireParticipant(ctx, tx, chatID, userID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id)
         SELECT id, $2 FROM messages WHERE chat_id=$1 AND ($3 = 0 OR id <= $3)
         ON CONFLICT DO NOTHING`, chatID, userID, uptoMessageID); err != nil {
		return err
	}

	return tx.Commit()
}

func selectMessagesWithReads(ctx context.Context, tx *sqlx.Tx, chatID int64) ([]models.Message, error) {
	rows, err := tx.QueryxContext(ctx,
		`SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at,
                COALESCE(array_agg(r.user_id ORDER BY r.user_id) FILTER (WHERE r.user_id IS NOT NULL), '{}') AS read_by
         FROM messages m
         LEFT JOIN message_reads r ON r.message_id = m.id
         WHERE m.chat_id=$1
         GROUP BY m.id
         ORDER BY m.created_at ASC, m.id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var (
			msg       models.Message
			readBy    pq.Int64Array
			createdAt time.Time
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.Content, &createdAt, &readBy); err != nil {
			return nil, err
		}
		msg.CreatedAt = createdAt
		msg.ReadBy = readBy
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
