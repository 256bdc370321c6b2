package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/entity"
	"github.com/reelchat/reelchat/internal/domain/service"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// TimeFormat is RFC 3339 in UTC with millisecond precision.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Public error messages.
const (
	ErrFetchConversations = "Failed to fetch conversations"
	ErrCreateConversation = "Failed to create conversation"
	ErrFetchConversation  = "Failed to fetch conversation"
	ErrDeleteConversation = "Failed to delete conversation"
	ErrProcessMessage     = "Failed to process message"
	ErrInvalidBody        = "Invalid request body"
)

// MessageDTO is the wire shape of a stored message.
type MessageDTO struct {
	ID             string `json:"id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
	CreatedAt      string `json:"createdAt"`
}

// ConversationSummaryDTO is one entry of the conversation list.
type ConversationSummaryDTO struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CreatedAt    string `json:"createdAt"`
	MessageCount int64  `json:"messageCount"`
}

// ConversationDTO is a conversation with its transcript.
type ConversationDTO struct {
	ID        string       `json:"id"`
	CreatedAt string       `json:"createdAt"`
	Messages  []MessageDTO `json:"messages"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

func toMessageDTOs(msgs []*entity.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{
			ID:             m.ID(),
			Role:           string(m.Role()),
			Content:        m.Content(),
			ConversationID: m.ConversationID(),
			CreatedAt:      formatTime(m.CreatedAt()),
		})
	}
	return out
}

func toSummaryDTO(s entity.ConversationSummary) ConversationSummaryDTO {
	return ConversationSummaryDTO{
		ID:           s.ID,
		Title:        s.Title,
		CreatedAt:    formatTime(s.CreatedAt),
		MessageCount: s.MessageCount,
	}
}

// respondError writes {error} with the status derived from the error code.
// Storage and internal failures are logged and hidden behind fallback.
func respondError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	status := domainErrors.HTTPStatus(err)
	if status >= 500 {
		logger.Error(fallback,
			zap.String("trace_id", service.TraceIDFromContext(c.Request.Context())),
			zap.String("code", string(domainErrors.CodeOf(err))),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": domainErrors.PublicMessage(err, fallback)})
}
