package repository

import (
	"context"

	"github.com/reelchat/reelchat/internal/domain/entity"
)

// ConversationRepository persists conversations and their ordered messages.
//
// Lookups of unknown conversations fail with a NOT_FOUND AppError; any
// persistence failure surfaces as STORAGE_UNAVAILABLE.
type ConversationRepository interface {
	// Create 创建空会话
	Create(ctx context.Context) (*entity.Conversation, error)

	// FindByID 根据ID查找会话
	FindByID(ctx context.Context, id string) (*entity.Conversation, error)

	// FindLatest returns the most recently created conversation.
	FindLatest(ctx context.Context) (*entity.Conversation, error)

	// List returns summaries ordered by creation time, newest first.
	List(ctx context.Context) ([]entity.ConversationSummary, error)

	// AppendMessage writes a message timestamped strictly after every
	// earlier message of the same conversation.
	AppendMessage(ctx context.Context, conversationID string, role entity.Role, content string) (*entity.Message, error)

	// ListMessages returns the transcript in ascending creation order.
	ListMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)

	// Delete removes the conversation and all of its messages atomically.
	Delete(ctx context.Context, id string) error
}
