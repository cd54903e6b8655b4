package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linkup-service/internal/mocks"
	"linkup-service/internal/models"
	"linkup-service/internal/repositories"
)

func setupChatRouter(chatRepo *mocks.ChatRepositoryMock, messageRepo *mocks.MessageRepositoryMock, userID int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewChatHandler(chatRepo, messageRepo, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	r.POST("/chats", handler.CreateChat)
	r.GET("/chats", handler.ListChats)
	r.GET("/chats/:chat_id/messages", handler.GetChatMessages)
	r.POST("/chats/:chat_id/messages", handler.PostChatMessage)
	r.POST("/chats/:chat_id/read", handler.MarkRead)
	return r
}

func TestCreateChatDirectDeduplicates(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(chatRepo, new(mocks.MessageRepositoryMock), 1)

	existing := models.Chat{ID: 7, ConversationType: models.ConversationDirect, Participants: []int64{1, 2}}
	chatRepo.On("CreateOrGetDirectChat", mock.Anything, int64(2), int64(1)).Return(existing, nil).Once()

	body := bytes.NewBufferString(`{"participants":[2],"conversation_type":"direct"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.Chat
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(7), got.ID)
	chatRepo.AssertExpectations(t)
}

func TestCreateChatDirectWithSelfOnly(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(chatRepo, new(mocks.MessageRepositoryMock), 1)

	// caller plus themselves dedupes to one participant
	body := bytes.NewBufferString(`{"participants":[1],"conversation_type":"direct"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	chatRepo.AssertNotCalled(t, "CreateOrGetDirectChat", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateChatDirectTooManyParticipants(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(chatRepo, new(mocks.MessageRepositoryMock), 1)

	body := bytes.NewBufferString(`{"participants":[2,3],"conversation_type":"direct"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateChatGroup(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(chatRepo, new(mocks.MessageRepositoryMock), 1)

	created := models.Chat{ID: 9, ConversationType: models.ConversationGroup, ConversationName: "weekend crew"}
	chatRepo.On("CreateGroupChat", mock.Anything, []int64{2, 3, 1}, "weekend crew").Return(created, nil).Once()

	body := bytes.NewBufferString(`{"participants":[2,3],"conversation_type":"group","conversation_name":"weekend crew"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	chatRepo.AssertExpectations(t)
}

func TestCreateChatGroupRequiresName(t *testing.T) {
	router := setupChatRouter(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), 1)

	body := bytes.NewBufferString(`{"participants":[2,3],"conversation_type":"group"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateChatInvalidType(t *testing.T) {
	router := setupChatRouter(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), 1)

	body := bytes.NewBufferString(`{"participants":[2],"conversation_type":"broadcast"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListChatsEmpty(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(chatRepo, new(mocks.MessageRepositoryMock), 1)

	chatRepo.On("ListChatsFor", mock.Anything, int64(1)).Return([]models.ChatSummary(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"chats":[]}`, rec.Body.String())
	chatRepo.AssertExpectations(t)
}

func TestGetChatMessagesMarksRead(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(new(mocks.ChatRepositoryMock), messageRepo, 2)

	msgs := []models.Message{
		{ID: 1, ChatID: 5, SenderID: 1, Content: "hi", ReadBy: []int64{1, 2}, CreatedAt: time.Now()},
	}
	messageRepo.On("GetMessagesMarkingRead", mock.Anything, int64(5), int64(2)).Return(msgs, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, []int64{1, 2}, resp.Messages[0].ReadBy)
	messageRepo.AssertExpectations(t)
}

func TestGetChatMessagesNotParticipant(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(new(mocks.ChatRepositoryMock), messageRepo, 9)

	messageRepo.On("GetMessagesMarkingRead", mock.Anything, int64(5), int64(9)).
		Return([]models.Message(nil), repositories.ErrNotParticipant).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestPostChatMessage(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(new(mocks.ChatRepositoryMock), messageRepo, 2)

	msg := models.Message{ID: 3, ChatID: 5, SenderID: 2, Content: "see you there", ReadBy: []int64{2}}
	messageRepo.On("AppendMessage", mock.Anything, int64(5), int64(2), "see you there").Return(msg, nil).Once()

	body := bytes.NewBufferString(`{"content":"see you there"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []int64{2}, got.ReadBy)
	messageRepo.AssertExpectations(t)
}

func TestPostChatMessageOutsiderSeesNotFound(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(new(mocks.ChatRepositoryMock), messageRepo, 9)

	messageRepo.On("AppendMessage", mock.Anything, int64(5), int64(9), "hello").
		Return(models.Message{}, repositories.ErrNotParticipant).Once()

	body := bytes.NewBufferString(`{"content":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat not found")
	messageRepo.AssertExpectations(t)
}

func TestPostChatMessageEmptyContent(t *testing.T) {
	router := setupChatRouter(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), 2)

	body := bytes.NewBufferString(`{"content":""}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/5/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkReadWithoutBody(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(new(mocks.ChatRepositoryMock), messageRepo, 2)

	messageRepo.On("MarkRead", mock.Anything, int64(5), int64(2), int64(0)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/5/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkReadUptoMessage(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupChatRouter(new(mocks.ChatRepositoryMock), messageRepo, 2)

	messageRepo.On("MarkRead", mock.Anything, int64(5), int64(2), int64(40)).Return(nil).Once()

	body := bytes.NewBufferString(`{"upto_message_id":40}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/5/read", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkReadInvalidChatID(t *testing.T) {
	router := setupChatRouter(new(mocks.ChatRepositoryMock), new(mocks.MessageRepositoryMock), 2)

	req := httptest.NewRequest(http.MethodPost, "/chats/abc/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
