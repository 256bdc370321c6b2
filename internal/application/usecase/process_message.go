package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/entity"
	"github.com/reelchat/reelchat/internal/domain/repository"
	"github.com/reelchat/reelchat/internal/domain/service"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// DefaultFallbackReply is stored as the agent's answer when the agent fails.
const DefaultFallbackReply = "Sorry, I could not fetch a response right now."

// Validation messages returned to clients.
const (
	ErrMessageRequired        = "Message is required"
	ErrConversationIDRequired = "Conversation ID is required"
)

// Agent outcomes reported to the observer.
const (
	AgentOutcomeOK       = "ok"
	AgentOutcomeFallback = "fallback"
)

// Agent produces a reply for a transcript window.
type Agent interface {
	Run(ctx context.Context, history []service.LLMMessage) (*service.AgentResult, error)
}

// AgentObserver is told how every turn ended (metrics).
type AgentObserver interface {
	RecordAgentRun(outcome string, steps int)
}

// ProcessMessageConfig 消息处理配置
type ProcessMessageConfig struct {
	// SingleConversation lets clients omit the conversation id; the latest
	// conversation is used, created on first use.
	SingleConversation bool
	// HistoryLimit is the number of recent messages handed to the agent;
	// 0 passes only the latest user message.
	HistoryLimit  int
	FallbackReply string
}

// SendMessageInput is one user turn.
type SendMessageInput struct {
	Message        string
	ConversationID string
}

// ProcessMessageUseCase orchestrates one chat turn: store the user message,
// ask the agent, store its reply (or the apology) and return the transcript.
type ProcessMessageUseCase struct {
	repo     repository.ConversationRepository
	agent    Agent
	observer AgentObserver
	config   ProcessMessageConfig
	logger   *zap.Logger

	// serializes get-or-create of the single conversation
	singleMu sync.Mutex
}

// NewProcessMessageUseCase creates the orchestrator. observer may be nil.
func NewProcessMessageUseCase(
	repo repository.ConversationRepository,
	agent Agent,
	observer AgentObserver,
	config ProcessMessageConfig,
	logger *zap.Logger,
) *ProcessMessageUseCase {
	if config.FallbackReply == "" {
		config.FallbackReply = DefaultFallbackReply
	}
	if config.HistoryLimit < 0 {
		config.HistoryLimit = 0
	}
	return &ProcessMessageUseCase{
		repo:     repo,
		agent:    agent,
		observer: observer,
		config:   config,
		logger:   logger.With(zap.String("component", "process-message")),
	}
}

// Execute runs one turn and returns the full ordered transcript.
//
// Nothing is written when validation fails. Once the user message is stored
// it stays stored even if a later step fails.
func (uc *ProcessMessageUseCase) Execute(ctx context.Context, in SendMessageInput) ([]*entity.Message, error) {
	ctx, traceID := service.EnsureTraceID(ctx)
	log := uc.logger.With(zap.String("trace_id", traceID))

	if strings.TrimSpace(in.Message) == "" {
		return nil, domainErrors.NewInvalidInputError(ErrMessageRequired).WithTrace(traceID)
	}
	convID := strings.TrimSpace(in.ConversationID)
	if convID == "" && !uc.config.SingleConversation {
		return nil, domainErrors.NewInvalidInputError(ErrConversationIDRequired).WithTrace(traceID)
	}

	// 1. Resolve conversation
	conv, err := uc.resolveConversation(ctx, convID)
	if err != nil {
		return nil, withTrace(err, traceID)
	}

	// 2. Save user message
	if _, err := uc.repo.AppendMessage(ctx, conv.ID(), entity.RoleUser, in.Message); err != nil {
		log.Error("Failed to save user message", zap.String("conversation_id", conv.ID()), zap.Error(err))
		return nil, withTrace(err, traceID)
	}

	// 3. Ask the agent
	reply := uc.askAgent(ctx, conv.ID(), log)

	// 4. Save agent reply
	if _, err := uc.repo.AppendMessage(ctx, conv.ID(), entity.RoleAgent, reply); err != nil {
		log.Error("Failed to save agent message", zap.String("conversation_id", conv.ID()), zap.Error(err))
		return nil, withTrace(err, traceID)
	}

	transcript, err := uc.repo.ListMessages(ctx, conv.ID())
	if err != nil {
		return nil, withTrace(err, traceID)
	}

	log.Info("Message processed",
		zap.String("conversation_id", conv.ID()),
		zap.Int("transcript_len", len(transcript)),
	)
	return transcript, nil
}

// GetTranscript returns a conversation's messages. In single-conversation
// mode an empty id means the latest conversation, or an empty transcript
// when none exists yet.
func (uc *ProcessMessageUseCase) GetTranscript(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	traceID := service.TraceIDFromContext(ctx)
	convID := strings.TrimSpace(conversationID)

	if convID == "" {
		if !uc.config.SingleConversation {
			return nil, domainErrors.NewInvalidInputError(ErrConversationIDRequired).WithTrace(traceID)
		}
		latest, err := uc.repo.FindLatest(ctx)
		if domainErrors.IsNotFound(err) {
			return []*entity.Message{}, nil
		}
		if err != nil {
			return nil, withTrace(err, traceID)
		}
		convID = latest.ID()
	}

	msgs, err := uc.repo.ListMessages(ctx, convID)
	if err != nil {
		return nil, withTrace(err, traceID)
	}
	return msgs, nil
}

func (uc *ProcessMessageUseCase) resolveConversation(ctx context.Context, convID string) (*entity.Conversation, error) {
	if convID != "" {
		return uc.repo.FindByID(ctx, convID)
	}

	uc.singleMu.Lock()
	defer uc.singleMu.Unlock()

	conv, err := uc.repo.FindLatest(ctx)
	if err == nil {
		return conv, nil
	}
	if !domainErrors.IsNotFound(err) {
		return nil, err
	}

	conv, err = uc.repo.Create(ctx)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("Created single conversation", zap.String("conversation_id", conv.ID()))
	return conv, nil
}

// askAgent never fails: any agent error or empty answer becomes the
// fallback reply.
func (uc *ProcessMessageUseCase) askAgent(ctx context.Context, convID string, log *zap.Logger) string {
	transcript, err := uc.repo.ListMessages(ctx, convID)
	if err != nil {
		log.Error("Failed to load history", zap.String("conversation_id", convID), zap.Error(err))
		uc.record(AgentOutcomeFallback, 0)
		return uc.config.FallbackReply
	}

	history := service.BuildHistory(transcript, uc.config.HistoryLimit)
	result, err := uc.agent.Run(ctx, history)
	if err != nil {
		log.Warn("Agent failed, replying with fallback",
			zap.String("conversation_id", convID),
			zap.Error(err),
		)
		uc.record(AgentOutcomeFallback, 0)
		return uc.config.FallbackReply
	}

	reply := strings.TrimSpace(result.FinalContent)
	if reply == "" {
		log.Warn("Agent returned empty answer, replying with fallback", zap.String("conversation_id", convID))
		uc.record(AgentOutcomeFallback, result.Steps)
		return uc.config.FallbackReply
	}

	uc.record(AgentOutcomeOK, result.Steps)
	log.Debug("Agent answered",
		zap.Int("steps", result.Steps),
		zap.Strings("tools", result.ToolsUsed),
		zap.String("model", result.ModelUsed),
		zap.Int("tokens", result.TokensUsed),
	)
	return reply
}

func (uc *ProcessMessageUseCase) record(outcome string, steps int) {
	if uc.observer != nil {
		uc.observer.RecordAgentRun(outcome, steps)
	}
}

// withTrace stamps the trace id on an AppError without changing its code.
func withTrace(err error, traceID string) error {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return appErr.WithTrace(traceID)
	}
	return domainErrors.NewInternalErrorWithCause("unexpected error", err).WithTrace(traceID)
}
