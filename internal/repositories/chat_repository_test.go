package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkup-service/internal/models"
)

func TestDirectKeyOrderInsensitive(t *testing.T) {
	assert.Equal(t, "2:7", directKey(7, 2))
	assert.Equal(t, "2:7", directKey(2, 7))
	assert.Equal(t, "5:5", directKey(5, 5))
}

func chatRows(id int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "conversation_type", "conversation_name", "created_at", "updated_at"}).
		AddRow(id, "direct", "", now, now)
}

func TestCreateOrGetDirectChatSelf(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewChatRepo(db)

	_, err := repo.CreateOrGetDirectChat(context.Background(), 3, 3)
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestCreateOrGetDirectChatCreates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO chats \(conversation_type, direct_key\)`).
		WithArgs(models.ConversationDirect, "1:2").
		WillReturnRows(chatRows(5))
	mock.ExpectExec(`INSERT INTO chat_participants`).
		WithArgs(int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO chat_participants`).
		WithArgs(int64(5), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	chat, err := repo.CreateOrGetDirectChat(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), chat.ID)
	assert.Equal(t, []int64{1, 2}, chat.Participants)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrGetDirectChatReturnsExisting(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectBegin()
	// ON CONFLICT DO NOTHING yields no row, then the existing chat is read
	mock.ExpectQuery(`INSERT INTO chats \(conversation_type, direct_key\)`).
		WithArgs(models.ConversationDirect, "1:2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_type", "conversation_name", "created_at", "updated_at"}))
	mock.ExpectQuery(`SELECT .+ FROM chats WHERE direct_key=\$1`).
		WithArgs("1:2").
		WillReturnRows(chatRows(9))
	mock.ExpectExec(`INSERT INTO chat_participants`).
		WithArgs(int64(9), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO chat_participants`).
		WithArgs(int64(9), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	chat, err := repo.CreateOrGetDirectChat(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), chat.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsParticipant(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM chat_participants WHERE chat_id=\$1 AND user_id=\$2\)`).
		WithArgs(int64(4), int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsParticipant(context.Background(), 4, 8)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetChatNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db)

	mock.ExpectQuery(`SELECT .+ FROM chats WHERE id=\$1`).
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_type", "conversation_name", "created_at", "updated_at"}))

	_, err := repo.GetChat(context.Background(), 77)
	assert.ErrorIs(t, err, ErrChatNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
