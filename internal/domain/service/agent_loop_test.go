package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/entity"
	domaintool "github.com/reelchat/reelchat/internal/domain/tool"
)

// scriptedLLM replays canned responses and records every request.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []*LLMResponse
	err       error
	requests  []*LLMRequest
}

func (s *scriptedLLM) Generate(ctx context.Context, req *LLMRequest) (*LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *req
	cp.Messages = append([]LLMMessage(nil), req.Messages...)
	s.requests = append(s.requests, &cp)

	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &LLMResponse{Content: "fallback answer", ModelUsed: "test-model"}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type fakeTools struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
	delay time.Duration
}

func (f *fakeTools) Execute(ctx context.Context, name string, args map[string]interface{}) (*domaintool.Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if f.fail[name] {
		return &domaintool.Result{Output: `{"movies":[]}`, Success: false, Error: "catalog unavailable"}, nil
	}
	return &domaintool.Result{Output: `{"movies":[{"title":"` + name + `"}]}`, Success: true}, nil
}

func (f *fakeTools) GetDefinitions() []domaintool.Definition {
	return []domaintool.Definition{{Name: "trending_movies"}, {Name: "search_movies"}}
}

func toolCall(id, name string) entity.ToolCallInfo {
	return entity.ToolCallInfo{ID: id, Name: name, Arguments: map[string]interface{}{}}
}

func userHistory(text string) []LLMMessage {
	return []LLMMessage{{Role: "user", Content: text}}
}

func TestAgentLoopAnswersWithoutTools(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{{Content: "  Hi there 🎬  ", ModelUsed: "gpt-4o-mini", TokensUsed: 12}}}
	loop := NewAgentLoop(llm, &fakeTools{}, StaticInstructions("You are a movie assistant."), DefaultAgentLoopConfig(), zap.NewNop())

	res, err := loop.Run(context.Background(), userHistory("hello"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.FinalContent != "Hi there 🎬" {
		t.Errorf("FinalContent = %q", res.FinalContent)
	}
	if res.Steps != 1 || res.TokensUsed != 12 || res.ModelUsed != "gpt-4o-mini" {
		t.Errorf("result = %+v", res)
	}

	req := llm.requests[0]
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "You are a movie assistant." {
		t.Errorf("first message should be the system prompt: %+v", req.Messages[0])
	}
	if len(req.Tools) != 2 {
		t.Errorf("tools not offered: %d", len(req.Tools))
	}
}

func TestAgentLoopExecutesToolCalls(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{
		{ToolCalls: []entity.ToolCallInfo{toolCall("c1", "trending_movies"), toolCall("c2", "search_movies")}, TokensUsed: 5},
		{Content: "Here are some picks", TokensUsed: 7},
	}}
	tools := &fakeTools{fail: map[string]bool{"search_movies": true}}
	loop := NewAgentLoop(llm, tools, nil, DefaultAgentLoopConfig(), zap.NewNop())

	res, err := loop.Run(context.Background(), userHistory("trending?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Steps != 2 || res.TokensUsed != 12 {
		t.Errorf("result = %+v", res)
	}
	if strings.Join(res.ToolsUsed, ",") != "search_movies,trending_movies" {
		t.Errorf("ToolsUsed = %v", res.ToolsUsed)
	}

	second := llm.requests[1].Messages
	// user, assistant(tool_calls), tool, tool
	if len(second) != 4 {
		t.Fatalf("second request has %d messages", len(second))
	}
	if second[1].Role != "assistant" || len(second[1].ToolCalls) != 2 {
		t.Errorf("assistant tool-call message = %+v", second[1])
	}
	if second[2].ToolCallID != "c1" || second[3].ToolCallID != "c2" {
		t.Errorf("tool results out of order: %s, %s", second[2].ToolCallID, second[3].ToolCallID)
	}
	if second[3].Content != `{"movies":[]}` {
		t.Errorf("failed lookup should forward the empty shape, got %q", second[3].Content)
	}
}

func TestAgentLoopStopsAtMaxSteps(t *testing.T) {
	loopingCall := &LLMResponse{ToolCalls: []entity.ToolCallInfo{toolCall("c", "trending_movies")}}
	llm := &scriptedLLM{responses: []*LLMResponse{loopingCall, loopingCall, loopingCall, {Content: "final"}}}

	cfg := DefaultAgentLoopConfig()
	cfg.MaxSteps = 3
	loop := NewAgentLoop(llm, &fakeTools{}, nil, cfg, zap.NewNop())

	res, err := loop.Run(context.Background(), userHistory("go"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.FinalContent != "final" {
		t.Errorf("FinalContent = %q", res.FinalContent)
	}
	if len(llm.requests) != 4 {
		t.Fatalf("LLM called %d times, want 4", len(llm.requests))
	}
	if llm.requests[3].Tools != nil {
		t.Error("final call after max steps must not offer tools")
	}
}

func TestAgentLoopPropagatesLLMError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("provider down")}
	loop := NewAgentLoop(llm, &fakeTools{}, nil, DefaultAgentLoopConfig(), zap.NewNop())

	_, err := loop.Run(context.Background(), userHistory("hi"))
	if err == nil || !strings.Contains(err.Error(), "provider down") {
		t.Fatalf("Run() error = %v", err)
	}
	if len(llm.requests) != 1 {
		t.Errorf("LLM called %d times, failures must not be retried", len(llm.requests))
	}
}

func TestAgentLoopEmptyAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{{Content: "   "}}}
	loop := NewAgentLoop(llm, &fakeTools{}, nil, DefaultAgentLoopConfig(), zap.NewNop())

	_, err := loop.Run(context.Background(), userHistory("hi"))
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Run() error = %v, want ErrEmptyResponse", err)
	}
}

func TestAgentLoopToolTimeout(t *testing.T) {
	llm := &scriptedLLM{responses: []*LLMResponse{
		{ToolCalls: []entity.ToolCallInfo{toolCall("slow", "trending_movies")}},
		{Content: "done"},
	}}
	cfg := DefaultAgentLoopConfig()
	cfg.ToolTimeout = 10 * time.Millisecond
	loop := NewAgentLoop(llm, &fakeTools{delay: time.Second}, nil, cfg, zap.NewNop())

	if _, err := loop.Run(context.Background(), userHistory("hi")); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	toolMsg := llm.requests[1].Messages[2]
	if !strings.HasPrefix(toolMsg.Content, "[TOOL_FAILED] trending_movies") {
		t.Errorf("timed out tool output = %q", toolMsg.Content)
	}
}

func TestTruncateOutput(t *testing.T) {
	if got := truncateOutput("short", 10); got != "short" {
		t.Errorf("truncateOutput() = %q", got)
	}
	got := truncateOutput(strings.Repeat("x", 20), 5)
	if !strings.HasPrefix(got, "xxxxx\n") || !strings.Contains(got, "truncated 15 chars") {
		t.Errorf("truncateOutput() = %q", got)
	}

	// 4 characters, 12 bytes
	if got := truncateOutput("アメリカ", 4); got != "アメリカ" {
		t.Errorf("truncateOutput() under the character limit = %q", got)
	}
	got = truncateOutput("Amélie 🎬 Pâques", 8)
	if !utf8.ValidString(got) || !strings.HasPrefix(got, "Amélie 🎬\n") || !strings.Contains(got, "truncated 7 chars") {
		t.Errorf("truncateOutput() split a character: %q", got)
	}
}
