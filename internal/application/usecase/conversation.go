package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/entity"
	"github.com/reelchat/reelchat/internal/domain/repository"
	"github.com/reelchat/reelchat/internal/domain/service"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// ConversationDetail is a conversation with its transcript.
type ConversationDetail struct {
	ID        string
	CreatedAt time.Time
	Messages  []*entity.Message
}

// ConversationUseCase 会话管理
type ConversationUseCase struct {
	repo   repository.ConversationRepository
	logger *zap.Logger
}

// NewConversationUseCase creates the conversation management use-case.
func NewConversationUseCase(repo repository.ConversationRepository, logger *zap.Logger) *ConversationUseCase {
	return &ConversationUseCase{
		repo:   repo,
		logger: logger.With(zap.String("component", "conversations")),
	}
}

// Create 创建空会话
func (uc *ConversationUseCase) Create(ctx context.Context) (entity.ConversationSummary, error) {
	conv, err := uc.repo.Create(ctx)
	if err != nil {
		uc.logger.Error("Failed to create conversation",
			zap.String("trace_id", service.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		return entity.ConversationSummary{}, err
	}
	uc.logger.Info("Conversation created", zap.String("conversation_id", conv.ID()))
	return entity.NewConversationSummary(conv, "", 0), nil
}

// List returns summaries, newest first.
func (uc *ConversationUseCase) List(ctx context.Context) ([]entity.ConversationSummary, error) {
	summaries, err := uc.repo.List(ctx)
	if err != nil {
		uc.logger.Error("Failed to list conversations",
			zap.String("trace_id", service.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		return nil, err
	}
	return summaries, nil
}

// Get 获取会话及其消息
func (uc *ConversationUseCase) Get(ctx context.Context, id string) (*ConversationDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domainErrors.NewInvalidInputError(ErrConversationIDRequired)
	}

	conv, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	msgs, err := uc.repo.ListMessages(ctx, id)
	if err != nil {
		uc.logger.Error("Failed to load transcript",
			zap.String("conversation_id", id),
			zap.String("trace_id", service.TraceIDFromContext(ctx)),
			zap.Error(err),
		)
		return nil, err
	}
	return &ConversationDetail{ID: conv.ID(), CreatedAt: conv.CreatedAt(), Messages: msgs}, nil
}

// Delete 删除会话及其全部消息
func (uc *ConversationUseCase) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domainErrors.NewInvalidInputError(ErrConversationIDRequired)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		if !domainErrors.IsNotFound(err) {
			uc.logger.Error("Failed to delete conversation",
				zap.String("conversation_id", id),
				zap.String("trace_id", service.TraceIDFromContext(ctx)),
				zap.Error(err),
			)
		}
		return err
	}
	uc.logger.Info("Conversation deleted", zap.String("conversation_id", id))
	return nil
}
