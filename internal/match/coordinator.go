package match

import (
	"context"
	"fmt"
	"log"

	"linkup-service/internal/models"
	"linkup-service/internal/observability"
	"linkup-service/internal/repositories"
	"linkup-service/internal/telemetry"
)

// Coordinator links an accepted post reply to an ongoing conversation: once
// the author accepts a replier, both parties get a direct chat. The chat
// lookup is idempotent, so the coordinator may be retried safely.
type Coordinator struct {
	chats repositories.ChatRepository
	audit *telemetry.AuditEmitter
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(chats repositories.ChatRepository, audit *telemetry.AuditEmitter) *Coordinator {
	return &Coordinator{chats: chats, audit: audit}
}

// EnsureConversation guarantees a direct chat exists between the post author
// and the accepted replier and returns it.
func (c *Coordinator) EnsureConversation(ctx context.Context, postID, authorID, accepteeID int64, requestID string) (models.Chat, error) {
	chat, err := c.chats.CreateOrGetDirectChat(ctx, authorID, accepteeID)
	if err != nil {
		return models.Chat{}, fmt.Errorf("ensure match conversation: %w", err)
	}

	observability.IncMatch()
	c.audit.Emit(ctx, "INFO",
		fmt.Sprintf("match established post=%d chat=%d", postID, chat.ID),
		requestID, &authorID)
	log.Printf("match established post=%d author=%d acceptee=%d chat=%d", postID, authorID, accepteeID, chat.ID)
	return chat, nil
}
