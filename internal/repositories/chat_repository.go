package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"linkup-service/internal/models"
)

var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("not a chat participant")
	ErrSelfChat       = errors.New("cannot create chat with self")
)

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateOrGetDirectChat(ctx context.Context, userA, userB int64) (models.Chat, error)
	CreateGroupChat(ctx context.Context, participants []int64, name string) (models.Chat, error)
	GetChat(ctx context.Context, chatID int64) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
	ListChatsFor(ctx context.Context, userID int64) ([]models.ChatSummary, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// directKey canonicalizes an unordered user pair. The unique index on this
// column is what makes direct-chat dedup atomic.
func directKey(userA, userB int64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}

const chatColumns = `id, conversation_type, COALESCE(conversation_name, '') AS conversation_name, created_at, updated_at`

// CreateOrGetDirectChat returns the direct chat for the pair, creating it if
// none exists yet. Calling it twice, in either argument order, yields the
// same chat.
func (r *ChatRepo) CreateOrGetDirectChat(ctx context.Context, userA, userB int64) (models.Chat, error) {
	if userA == userB {
		return models.Chat{}, ErrSelfChat
	}
	key := directKey(userA, userB)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	err = tx.QueryRowxContext(ctx, `INSERT INTO chats (conversation_type, direct_key) VALUES ($1, $2)
        ON CONFLICT (direct_key) DO NOTHING
        RETURNING `+chatColumns, models.ConversationDirect, key).StructScan(&chat)
	if errors.Is(err, sql.ErrNoRows) {
		// lost the race or the chat already existed; fetch it
		err = tx.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE direct_key=$1`, key)
	}
	if err != nil {
		return models.Chat{}, err
	}

	for _, userID := range []int64{userA, userB} {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			chat.ID, userID); err != nil {
			return models.Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}

	if userA > userB {
		userA, userB = userB, userA
	}
	chat.Participants = []int64{userA, userB}
	return chat, nil
}

// CreateGroupChat creates a named group chat with the given members. The
// caller validates the participant set and name.
func (r *ChatRepo) CreateGroupChat(ctx context.Context, participants []int64, name string) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO chats (conversation_type, conversation_name) VALUES ($1, $2) RETURNING `+chatColumns,
		models.ConversationGroup, name).StructScan(&chat); err != nil {
		return models.Chat{}, err
	}

	seen := make(map[int64]struct{}, len(participants))
	for _, userID := range participants {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2)`, chat.ID, userID); err != nil {
			return models.Chat{}, err
		}
		chat.Participants = append(chat.Participants, userID)
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetChat fetches a chat with its participants.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int64) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}

	if err := r.db.SelectContext(ctx, &chat.Participants,
		`SELECT user_id FROM chat_participants WHERE chat_id=$1 ORDER BY user_id`, chatID); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// IsParticipant checks whether a user belongs to the chat.
func (r *ChatRepo) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id=$1 AND user_id=$2)`, chatID, userID)
	return exists, err
}

// ListChatsFor returns the user's chats ordered by last activity, each with
// its participants and derived last message.
func (r *ChatRepo) ListChatsFor(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	var chats []models.Chat
	err := r.db.SelectContext(ctx, &chats, `SELECT c.id, c.conversation_type,
        COALESCE(c.conversation_name, '') AS conversation_name, c.created_at, c.updated_at
        FROM chats c
        INNER JOIN chat_participants cp ON cp.chat_id = c.id
        WHERE cp.user_id=$1
        ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(chats))
	byID := make(map[int64]*models.ChatSummary, len(chats))
	summaries := make([]models.ChatSummary, len(chats))
	for i, chat := range chats {
		summaries[i] = models.ChatSummary{Chat: chat}
		byID[chat.ID] = &summaries[i]
		ids = append(ids, chat.ID)
	}

	rows, err := r.db.QueryxContext(ctx,
		`SELECT chat_id, user_id FROM chat_participants WHERE chat_id = ANY($1) ORDER BY user_id`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var chatID, memberID int64
		if err := rows.Scan(&chatID, &memberID); err != nil {
			return nil, err
		}
		if summary, ok := byID[chatID]; ok {
			summary.Participants = append(summary.Participants, memberID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var lastMessages []models.Message
	if err := r.db.SelectContext(ctx, &lastMessages,
		`SELECT DISTINCT ON (chat_id) id, chat_id, sender_id, content, created_at
         FROM messages WHERE chat_id = ANY($1)
         ORDER BY chat_id, created_at DESC, id DESC`, pq.Array(ids)); err != nil {
		return nil, err
	}
	for i := range lastMessages {
		if summary, ok := byID[lastMessages[i].ChatID]; ok {
			summary.LastMessage = &lastMessages[i]
		}
	}

	return summaries, nil
}
