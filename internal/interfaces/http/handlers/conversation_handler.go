package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
)

// ConversationHandler serves /api/conversations.
type ConversationHandler struct {
	conversations *usecase.ConversationUseCase
	logger        *zap.Logger
}

func NewConversationHandler(uc *usecase.ConversationUseCase, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversations: uc,
		logger:        logger,
	}
}

// List GET /api/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	summaries, err := h.conversations.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, ErrFetchConversations)
		return
	}

	out := make([]ConversationSummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSummaryDTO(s))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": out})
}

// Create POST /api/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	summary, err := h.conversations.Create(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, ErrCreateConversation)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": toSummaryDTO(summary)})
}

// Get GET /api/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	detail, err := h.conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, ErrFetchConversation)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": ConversationDTO{
		ID:        detail.ID,
		CreatedAt: formatTime(detail.CreatedAt),
		Messages:  toMessageDTOs(detail.Messages),
	}})
}

// Delete DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err, ErrDeleteConversation)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
