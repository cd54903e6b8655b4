package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkup-service/internal/models"
	"linkup-service/internal/observability"
	"linkup-service/internal/repositories"
	"linkup-service/internal/telemetry"
)

// ChatHandler manages conversation endpoints.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		audit:       audit,
	}
}

// CreateChat handles POST /chats. Direct chats are deduplicated per user
// pair and return the existing conversation; group chats need a name and at
// least two distinct participants.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID := c.GetInt64("userID")

	var req struct {
		Participants     []int64                 `json:"participants" binding:"required"`
		ConversationType models.ConversationType `json:"conversation_type" binding:"required"`
		ConversationName string                  `json:"conversation_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the caller is always a participant
	participants := make([]int64, 0, len(req.Participants)+1)
	seen := map[int64]struct{}{}
	for _, id := range append(req.Participants, userID) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}

	switch req.ConversationType {
	case models.ConversationDirect:
		if len(participants) != 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "direct chats must have exactly 2 participants"})
			return
		}
		chat, err := h.chatRepo.CreateOrGetDirectChat(c.Request.Context(), participants[0], participants[1])
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": messageForError(err)})
			return
		}
		c.JSON(http.StatusOK, chat)

	case models.ConversationGroup:
		if req.ConversationName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group chats require a name"})
			return
		}
		if len(participants) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group chats need at least 2 distinct participants"})
			return
		}
		chat, err := h.chatRepo.CreateGroupChat(c.Request.Context(), participants, req.ConversationName)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
			return
		}
		h.audit.Emit(c.Request.Context(), "INFO",
			fmt.Sprintf("group chat created id=%d", chat.ID),
			requestIDFromContext(c), userIDFromContext(c))
		c.JSON(http.StatusCreated, chat)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation type"})
	}
}

// ListChats returns the caller's chats, most recently active first.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt64("userID")

	chats, err := h.chatRepo.ListChatsFor(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	if chats == nil {
		chats = []models.ChatSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChatMessages handles GET /chats/:chat_id/messages. Fetching is also
// acknowledgment: every returned message is marked read by the requester.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	userID := c.GetInt64("userID")
	msgs, err := h.messageRepo.GetMessagesMarkingRead(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": messageForError(err)})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage handles POST /chats/:chat_id/messages.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt64("userID")
	msg, err := h.messageRepo.AppendMessage(c.Request.Context(), chatID, userID, req.Content)
	if err != nil {
		// a sender outside the chat learns nothing about its existence
		if errors.Is(err, repositories.ErrNotParticipant) {
			c.JSON(http.StatusNotFound, gin.H{"error": repositories.ErrChatNotFound.Error()})
			return
		}
		c.JSON(statusForError(err), gin.H{"error": messageForError(err)})
		return
	}

	observability.IncMessageSent()
	c.JSON(http.StatusCreated, msg)
}

// MarkRead handles POST /chats/:chat_id/read. With an upto_message_id it
// acknowledges messages up to and including that id, otherwise all of them.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	chatID, ok := parseChatID(c)
	if !ok {
		return
	}

	var req struct {
		UptoMessageID int64 `json:"upto_message_id"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	userID := c.GetInt64("userID")
	if err := h.messageRepo.MarkRead(c.Request.Context(), chatID, userID, req.UptoMessageID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": messageForError(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "messages marked as read"})
}

func parseChatID(c *gin.Context) (int64, bool) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}
