package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
)

// ChatHandler serves /api/chat.
type ChatHandler struct {
	processMessageUseCase *usecase.ProcessMessageUseCase
	logger                *zap.Logger
}

func NewChatHandler(uc *usecase.ProcessMessageUseCase, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		processMessageUseCase: uc,
		logger:                logger,
	}
}

type SendMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// SendMessage POST /api/chat
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidBody})
		return
	}

	transcript, err := h.processMessageUseCase.Execute(c.Request.Context(), usecase.SendMessageInput{
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		respondError(c, h.logger, err, ErrProcessMessage)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": toMessageDTOs(transcript)})
}

// GetMessages GET /api/chat
func (h *ChatHandler) GetMessages(c *gin.Context) {
	transcript, err := h.processMessageUseCase.GetTranscript(c.Request.Context(), c.Query("conversationId"))
	if err != nil {
		respondError(c, h.logger, err, ErrFetchConversation)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": toMessageDTOs(transcript)})
}
