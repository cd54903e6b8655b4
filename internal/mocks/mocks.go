package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"linkup-service/internal/graph"
	"linkup-service/internal/models"
	"linkup-service/internal/repositories"
)

type PostRepositoryMock struct {
	mock.Mock
}

func (m *PostRepositoryMock) CreatePost(ctx context.Context, post models.Post) (models.Post, error) {
	args := m.Called(ctx, post)
	var created models.Post
	if val := args.Get(0); val != nil {
		created = val.(models.Post)
	}
	return created, args.Error(1)
}

func (m *PostRepositoryMock) GetPost(ctx context.Context, postID int64) (models.Post, error) {
	args := m.Called(ctx, postID)
	var post models.Post
	if val := args.Get(0); val != nil {
		post = val.(models.Post)
	}
	return post, args.Error(1)
}

func (m *PostRepositoryMock) ListActive(ctx context.Context, filter repositories.PostFilter, now time.Time, limit int) ([]models.Post, error) {
	args := m.Called(ctx, filter, now, limit)
	var posts []models.Post
	if val := args.Get(0); val != nil {
		posts = val.([]models.Post)
	}
	return posts, args.Error(1)
}

func (m *PostRepositoryMock) ListActiveByIDs(ctx context.Context, ids []int64, filter repositories.PostFilter, now time.Time, limit int) ([]models.Post, error) {
	args := m.Called(ctx, ids, filter, now, limit)
	var posts []models.Post
	if val := args.Get(0); val != nil {
		posts = val.([]models.Post)
	}
	return posts, args.Error(1)
}

func (m *PostRepositoryMock) ActiveLocations(ctx context.Context, now time.Time) ([]repositories.PostLocation, error) {
	args := m.Called(ctx, now)
	var locations []repositories.PostLocation
	if val := args.Get(0); val != nil {
		locations = val.([]repositories.PostLocation)
	}
	return locations, args.Error(1)
}

func (m *PostRepositoryMock) SubmitReply(ctx context.Context, postID, userID int64, now time.Time) error {
	args := m.Called(ctx, postID, userID, now)
	return args.Error(0)
}

func (m *PostRepositoryMock) ResolveReply(ctx context.Context, postID, authorID, targetUserID int64, status models.ReplyStatus) error {
	args := m.Called(ctx, postID, authorID, targetUserID, status)
	return args.Error(0)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateOrGetDirectChat(ctx context.Context, userA, userB int64) (models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) CreateGroupChat(ctx context.Context, participants []int64, name string) (models.Chat, error) {
	args := m.Called(ctx, participants, name)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int64) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepositoryMock) ListChatsFor(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, chatID, senderID int64, content string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessagesMarkingRead(ctx context.Context, chatID, requesterID int64) ([]models.Message, error) {
	args := m.Called(ctx, chatID, requesterID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, chatID, userID, uptoMessageID int64) error {
	args := m.Called(ctx, chatID, userID, uptoMessageID)
	return args.Error(0)
}

type ConnectionGraphMock struct {
	mock.Mock
}

func (m *ConnectionGraphMock) DegreeBetween(ctx context.Context, userA, userB int64) (graph.Degree, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(graph.Degree), args.Error(1)
}

var _ repositories.PostRepository = (*PostRepositoryMock)(nil)
var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ graph.ConnectionGraph = (*ConnectionGraphMock)(nil)
