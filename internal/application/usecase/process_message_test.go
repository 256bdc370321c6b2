package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/domain/entity"
	"github.com/reelchat/reelchat/internal/domain/service"
	"github.com/reelchat/reelchat/internal/infrastructure/persistence"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// MockAgent 模拟推荐代理
type MockAgent struct {
	mu       sync.Mutex
	reply    string
	err      error
	steps    int
	received [][]service.LLMMessage
}

func (m *MockAgent) Run(ctx context.Context, history []service.LLMMessage) (*service.AgentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, history)
	if m.err != nil {
		return nil, m.err
	}
	return &service.AgentResult{FinalContent: m.reply, Steps: m.steps}, nil
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) RecordAgentRun(outcome string, steps int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newProcessMessage(agent usecase.Agent, cfg usecase.ProcessMessageConfig) (*usecase.ProcessMessageUseCase, *persistence.MemoryConversationRepository, *outcomeRecorder) {
	repo := persistence.NewMemoryConversationRepository()
	rec := &outcomeRecorder{}
	return usecase.NewProcessMessageUseCase(repo, agent, rec, cfg, zap.NewNop()), repo, rec
}

func TestProcessMessage_Execute_Success(t *testing.T) {
	agent := &MockAgent{reply: "🎬 Try Heat (1995)", steps: 2}
	uc, repo, rec := newProcessMessage(agent, usecase.ProcessMessageConfig{HistoryLimit: 20})
	ctx := context.Background()

	conv, err := repo.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	transcript, err := uc.Execute(ctx, usecase.SendMessageInput{Message: "  a heist movie  ", ConversationID: conv.ID()})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(transcript) != 2 {
		t.Fatalf("transcript len = %d", len(transcript))
	}
	if transcript[0].Role() != entity.RoleUser || transcript[0].Content() != "  a heist movie  " {
		t.Errorf("user message = %s %q", transcript[0].Role(), transcript[0].Content())
	}
	if transcript[1].Role() != entity.RoleAgent || transcript[1].Content() != "🎬 Try Heat (1995)" {
		t.Errorf("agent message = %s %q", transcript[1].Role(), transcript[1].Content())
	}
	if !transcript[1].CreatedAt().After(transcript[0].CreatedAt()) {
		t.Error("agent reply must be timestamped after the user message")
	}

	hist := agent.received[0]
	if len(hist) != 1 || hist[0].Role != "user" || hist[0].Content != "  a heist movie  " {
		t.Errorf("agent history = %+v", hist)
	}
	if len(rec.outcomes) != 1 || rec.outcomes[0] != usecase.AgentOutcomeOK {
		t.Errorf("outcomes = %v", rec.outcomes)
	}
}

func TestProcessMessage_Execute_PassesHistoryWindow(t *testing.T) {
	agent := &MockAgent{reply: "ok"}
	uc, repo, _ := newProcessMessage(agent, usecase.ProcessMessageConfig{HistoryLimit: 3})
	ctx := context.Background()
	conv, _ := repo.Create(ctx)

	for _, msg := range []string{"one", "two", "three"} {
		if _, err := uc.Execute(ctx, usecase.SendMessageInput{Message: msg, ConversationID: conv.ID()}); err != nil {
			t.Fatal(err)
		}
	}

	last := agent.received[2]
	if len(last) != 3 {
		t.Fatalf("history len = %d, want 3", len(last))
	}
	if last[0].Content != "two" || last[1].Role != "assistant" || last[2].Content != "three" {
		t.Errorf("history = %+v", last)
	}
}

func TestProcessMessage_Execute_Validation(t *testing.T) {
	uc, repo, _ := newProcessMessage(&MockAgent{reply: "x"}, usecase.ProcessMessageConfig{})
	ctx := context.Background()

	tests := []struct {
		name    string
		in      usecase.SendMessageInput
		wantMsg string
	}{
		{"blank message", usecase.SendMessageInput{Message: "   ", ConversationID: "c"}, usecase.ErrMessageRequired},
		{"missing conversation", usecase.SendMessageInput{Message: "hi"}, usecase.ErrConversationIDRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(ctx, tt.in)
			if !domainErrors.IsInvalidInput(err) {
				t.Fatalf("Execute() error = %v, want invalid input", err)
			}
			if got := domainErrors.PublicMessage(err, ""); got != tt.wantMsg {
				t.Errorf("message = %q, want %q", got, tt.wantMsg)
			}
		})
	}

	summaries, _ := repo.List(ctx)
	if len(summaries) != 0 {
		t.Error("validation failure must not write anything")
	}
}

func TestProcessMessage_Execute_UnknownConversation(t *testing.T) {
	uc, _, _ := newProcessMessage(&MockAgent{reply: "x"}, usecase.ProcessMessageConfig{})
	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{Message: "hi", ConversationID: "nope"})
	if !domainErrors.IsNotFound(err) {
		t.Fatalf("Execute() error = %v, want not found", err)
	}
}

func TestProcessMessage_Execute_AgentFailureFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		agent *MockAgent
	}{
		{"agent error", &MockAgent{err: errors.New("llm down")}},
		{"empty answer", &MockAgent{reply: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, repo, rec := newProcessMessage(tt.agent, usecase.ProcessMessageConfig{})
			ctx := context.Background()
			conv, _ := repo.Create(ctx)

			transcript, err := uc.Execute(ctx, usecase.SendMessageInput{Message: "hi", ConversationID: conv.ID()})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got := transcript[len(transcript)-1].Content(); got != usecase.DefaultFallbackReply {
				t.Errorf("reply = %q, want fallback", got)
			}
			if rec.outcomes[0] != usecase.AgentOutcomeFallback {
				t.Errorf("outcome = %s", rec.outcomes[0])
			}
		})
	}
}

func TestProcessMessage_SingleConversationMode(t *testing.T) {
	uc, repo, _ := newProcessMessage(&MockAgent{reply: "ok"}, usecase.ProcessMessageConfig{SingleConversation: true, HistoryLimit: 20})
	ctx := context.Background()

	empty, err := uc.GetTranscript(ctx, "")
	if err != nil || len(empty) != 0 {
		t.Fatalf("GetTranscript() before first message = %v, %v", empty, err)
	}

	if _, err := uc.Execute(ctx, usecase.SendMessageInput{Message: "first"}); err != nil {
		t.Fatal(err)
	}
	transcript, err := uc.Execute(ctx, usecase.SendMessageInput{Message: "second"})
	if err != nil {
		t.Fatal(err)
	}
	if len(transcript) != 4 {
		t.Errorf("single mode should reuse one conversation, transcript len = %d", len(transcript))
	}

	summaries, _ := repo.List(ctx)
	if len(summaries) != 1 {
		t.Errorf("conversations = %d, want 1", len(summaries))
	}

	got, err := uc.GetTranscript(ctx, "")
	if err != nil || len(got) != 4 {
		t.Errorf("GetTranscript() = %d messages, %v", len(got), err)
	}
}

func TestProcessMessage_GetTranscript_MultiMode(t *testing.T) {
	uc, repo, _ := newProcessMessage(&MockAgent{reply: "ok"}, usecase.ProcessMessageConfig{})
	ctx := context.Background()

	if _, err := uc.GetTranscript(ctx, ""); !domainErrors.IsInvalidInput(err) {
		t.Errorf("missing id error = %v", err)
	}
	if _, err := uc.GetTranscript(ctx, "missing"); !domainErrors.IsNotFound(err) {
		t.Errorf("unknown id error = %v", err)
	}

	conv, _ := repo.Create(ctx)
	msgs, err := uc.GetTranscript(ctx, conv.ID())
	if err != nil || len(msgs) != 0 {
		t.Errorf("GetTranscript() = %v, %v", msgs, err)
	}
}

func TestProcessMessage_ErrorsCarryTraceID(t *testing.T) {
	uc, _, _ := newProcessMessage(&MockAgent{reply: "x"}, usecase.ProcessMessageConfig{})
	ctx := service.WithTraceID(context.Background(), "trace-42")

	_, err := uc.Execute(ctx, usecase.SendMessageInput{Message: "hi", ConversationID: "nope"})
	var appErr *domainErrors.AppError
	if !errors.As(err, &appErr) || appErr.TraceID != "trace-42" {
		t.Fatalf("error = %#v", err)
	}
}
