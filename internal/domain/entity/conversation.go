package entity

import (
	"strings"
	"time"
)

const (
	// DefaultTitle is shown for conversations without a user message.
	DefaultTitle = "New Chat"

	titleMaxRunes  = 50
	titleKeepRunes = 47
	titleEllipsis  = "..."
)

// Conversation owns an ordered transcript of messages.
type Conversation struct {
	id        string
	createdAt time.Time
}

// ReconstructConversation 重建会话（用于从持久化层恢复）
func ReconstructConversation(id string, createdAt time.Time) *Conversation {
	return &Conversation{id: id, createdAt: createdAt}
}

func (c *Conversation) ID() string           { return c.id }
func (c *Conversation) CreatedAt() time.Time { return c.createdAt }

// ConversationSummary is the sidebar view of a conversation.
type ConversationSummary struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	MessageCount int64
}

// NewConversationSummary derives the title from the first user message.
// firstUserContent is empty when the conversation has no user message.
func NewConversationSummary(c *Conversation, firstUserContent string, messageCount int64) ConversationSummary {
	return ConversationSummary{
		ID:           c.ID(),
		Title:        DeriveTitle(firstUserContent),
		CreatedAt:    c.CreatedAt(),
		MessageCount: messageCount,
	}
}

// DeriveTitle turns the first user message into a sidebar title.
// Content longer than 50 characters is cut to 47 plus an ellipsis.
func DeriveTitle(firstUserContent string) string {
	content := strings.TrimSpace(firstUserContent)
	if content == "" {
		return DefaultTitle
	}
	runes := []rune(content)
	if len(runes) > titleMaxRunes {
		return string(runes[:titleKeepRunes]) + titleEllipsis
	}
	return content
}
