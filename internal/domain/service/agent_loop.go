package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/entity"
	domaintool "github.com/reelchat/reelchat/internal/domain/tool"
)

// ErrEmptyResponse is returned when the model produced no final text.
var ErrEmptyResponse = errors.New("agent produced an empty response")

// AgentLoopConfig holds configuration for the agent's tool-calling loop
type AgentLoopConfig struct {
	Model            string        // LLM model identifier (e.g. "gpt-4o-mini")
	Temperature      float64       // LLM temperature
	MaxTokens        int           // Completion token cap (0 = provider default)
	MaxSteps         int           // Tool-calling rounds before a forced text answer (default: 5)
	MaxParallelTools int           // Max concurrent tool executions per step (default: 4)
	MaxOutputChars   int           // Maximum characters per tool output before truncation (default: 16000)
	Timeout          time.Duration // Whole-run deadline (0 = inherit the caller's)
	ToolTimeout      time.Duration // Per-tool execution timeout (default 15s)
}

// DefaultAgentLoopConfig returns production-ready defaults.
func DefaultAgentLoopConfig() AgentLoopConfig {
	return AgentLoopConfig{
		Model:            "gpt-4o-mini",
		Temperature:      0.7,
		MaxSteps:         5,
		MaxParallelTools: 4,
		MaxOutputChars:   16000,
		Timeout:          2 * time.Minute,
		ToolTimeout:      15 * time.Second,
	}
}

// LLMClient is the interface the agent loop uses to communicate with language models.
// It decouples the loop from specific LLM provider implementations.
type LLMClient interface {
	// Generate sends a prompt with tool definitions and history, returning a full response.
	Generate(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// LLMRequest is the request sent to the language model
type LLMRequest struct {
	Messages    []LLMMessage            `json:"messages"`
	Tools       []domaintool.Definition `json:"tools,omitempty"`
	Model       string                  `json:"model"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature float64                 `json:"temperature"`
}

// LLMMessage represents a single message in the conversation
type LLMMessage struct {
	Role       string                `json:"role"` // "system", "user", "assistant", "tool"
	Content    string                `json:"content"`
	ToolCalls  []entity.ToolCallInfo `json:"tool_calls,omitempty"`
	ToolCallID string                `json:"tool_call_id,omitempty"`
	Name       string                `json:"name,omitempty"`
}

// LLMResponse is the response from the language model
type LLMResponse struct {
	Content    string                `json:"content"`
	ToolCalls  []entity.ToolCallInfo `json:"tool_calls,omitempty"`
	ModelUsed  string                `json:"model_used"`
	TokensUsed int                   `json:"tokens_used"`
}

// ToolExecutor is the interface for executing tools within the agent loop
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) (*domaintool.Result, error)
	GetDefinitions() []domaintool.Definition
}

// InstructionSource supplies the system prompt. Implementations may reload it
// at runtime; the loop reads it once per run.
type InstructionSource interface {
	Instructions() string
}

// StaticInstructions is an InstructionSource with a fixed prompt.
type StaticInstructions string

// Instructions implements InstructionSource.
func (s StaticInstructions) Instructions() string { return string(s) }

// AgentResult is the final result of the agent loop
type AgentResult struct {
	FinalContent string
	Steps        int
	TokensUsed   int
	ModelUsed    string
	ToolsUsed    []string
}

// AgentLoop runs the recommendation agent: the model is called with the
// catalog tools until it answers in plain text or MaxSteps is reached.
// It has no persistence side effects and never retries a failed LLM call.
type AgentLoop struct {
	llm          LLMClient
	tools        ToolExecutor
	instructions InstructionSource
	config       AgentLoopConfig
	logger       *zap.Logger
}

// NewAgentLoop creates a new agent loop
func NewAgentLoop(llm LLMClient, tools ToolExecutor, instructions InstructionSource, config AgentLoopConfig, logger *zap.Logger) *AgentLoop {
	defaults := DefaultAgentLoopConfig()
	if config.Model == "" {
		config.Model = defaults.Model
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = defaults.MaxSteps
	}
	if config.MaxParallelTools <= 0 {
		config.MaxParallelTools = defaults.MaxParallelTools
	}
	if config.MaxOutputChars <= 0 {
		config.MaxOutputChars = defaults.MaxOutputChars
	}
	if config.ToolTimeout <= 0 {
		config.ToolTimeout = defaults.ToolTimeout
	}
	if instructions == nil {
		instructions = StaticInstructions("")
	}

	return &AgentLoop{
		llm:          llm,
		tools:        tools,
		instructions: instructions,
		config:       config,
		logger:       logger.With(zap.String("component", "agent")),
	}
}

// Run executes the loop over the given transcript window. history must end
// with the user's latest message.
func (a *AgentLoop) Run(ctx context.Context, history []LLMMessage) (*AgentResult, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	log := a.logger.With(zap.String("trace_id", TraceIDFromContext(ctx)))
	runStart := time.Now()

	messages := make([]LLMMessage, 0, len(history)+1)
	if prompt := a.instructions.Instructions(); prompt != "" {
		messages = append(messages, LLMMessage{Role: "system", Content: prompt})
	}
	messages = append(messages, history...)

	toolDefs := a.tools.GetDefinitions()
	toolsUsed := make(map[string]bool)
	result := &AgentResult{}

	finish := func(resp *LLMResponse) (*AgentResult, error) {
		result.FinalContent = strings.TrimSpace(resp.Content)
		result.ModelUsed = resp.ModelUsed
		for name := range toolsUsed {
			result.ToolsUsed = append(result.ToolsUsed, name)
		}
		sort.Strings(result.ToolsUsed)
		log.Info("Agent run completed",
			zap.Int("steps", result.Steps),
			zap.Int("tokens", result.TokensUsed),
			zap.Strings("tools", result.ToolsUsed),
			zap.Duration("duration", time.Since(runStart)),
		)
		if result.FinalContent == "" {
			return result, ErrEmptyResponse
		}
		return result, nil
	}

	for step := 1; step <= a.config.MaxSteps; step++ {
		result.Steps = step

		resp, err := a.llm.Generate(ctx, &LLMRequest{
			Messages:    messages,
			Tools:       toolDefs,
			Model:       a.config.Model,
			MaxTokens:   a.config.MaxTokens,
			Temperature: a.config.Temperature,
		})
		if err != nil {
			log.Warn("LLM call failed", zap.Int("step", step), zap.Error(err))
			return result, fmt.Errorf("llm call at step %d: %w", step, err)
		}
		result.TokensUsed += resp.TokensUsed

		if len(resp.ToolCalls) == 0 {
			return finish(resp)
		}

		log.Debug("Model requested tools",
			zap.Int("step", step),
			zap.Int("count", len(resp.ToolCalls)),
		)

		messages = append(messages, LLMMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, r := range a.executeTools(ctx, resp.ToolCalls, log) {
			toolsUsed[r.call.Name] = true
			messages = append(messages, LLMMessage{
				Role:       "tool",
				Content:    r.output,
				ToolCallID: r.call.ID,
				Name:       r.call.Name,
			})
		}
	}

	// 达到步数上限: 不带工具再调用一次, 强制文本回答
	log.Info("Max steps reached, requesting final answer", zap.Int("max_steps", a.config.MaxSteps))
	resp, err := a.llm.Generate(ctx, &LLMRequest{
		Messages:    messages,
		Model:       a.config.Model,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	})
	if err != nil {
		return result, fmt.Errorf("final llm call: %w", err)
	}
	result.TokensUsed += resp.TokensUsed
	return finish(resp)
}

type toolExecResult struct {
	call    entity.ToolCallInfo
	output  string
	success bool
}

// executeTools runs the calls in parallel and returns results in call order.
func (a *AgentLoop) executeTools(ctx context.Context, calls []entity.ToolCallInfo, log *zap.Logger) []toolExecResult {
	results := make([]toolExecResult, len(calls))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.config.MaxParallelTools)

	for i, tc := range calls {
		wg.Add(1)
		go func(idx int, call entity.ToolCallInfo) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = toolExecResult{call: call, output: "context cancelled"}
				return
			}

			toolCtx, cancel := context.WithTimeout(ctx, a.config.ToolTimeout)
			defer cancel()

			start := time.Now()
			toolResult, err := a.tools.Execute(toolCtx, call.Name, call.Arguments)

			var output string
			success := false
			switch {
			case err != nil:
				output = fmt.Sprintf("[TOOL_FAILED] %s\n[ERROR] %v", call.Name, err)
				log.Warn("Tool execution failed",
					zap.String("tool", call.Name),
					zap.Duration("duration", time.Since(start)),
					zap.Error(err),
				)
			case !toolResult.Success:
				// 失败的目录查询仍然返回空结果形状, 模型可据此回答
				output = toolResult.Output
				if output == "" {
					output = fmt.Sprintf("[TOOL_FAILED] %s\n[ERROR] %s", call.Name, toolResult.Error)
				}
			default:
				output = toolResult.Output
				success = true
			}

			results[idx] = toolExecResult{
				call:    call,
				output:  truncateOutput(output, a.config.MaxOutputChars),
				success: success,
			}
		}(i, tc)
	}

	wg.Wait()
	return results
}

// truncateOutput caps tool output at limit characters so a single result
// cannot flood the context. It never splits a multi-byte character.
func truncateOutput(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + fmt.Sprintf("\n... [truncated %d chars]", len(runes)-limit)
}
