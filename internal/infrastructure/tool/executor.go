package tool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/service"
	domaintool "github.com/reelchat/reelchat/internal/domain/tool"
)

// Tool call outcomes reported to the recorder.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeUnknown = "unknown"
)

// UnknownToolLabel replaces model-supplied names of unregistered tools in
// metrics, keeping the label set bounded.
const UnknownToolLabel = "unknown"

// CallRecorder 记录工具调用结果 (metrics)
type CallRecorder interface {
	RecordToolCall(tool, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordToolCall(string, string, time.Duration) {}

// Executor 工具执行器 - 实现 service.ToolExecutor
type Executor struct {
	registry domaintool.Registry
	recorder CallRecorder
	logger   *zap.Logger
}

// NewExecutor 创建工具执行器. recorder may be nil.
func NewExecutor(registry domaintool.Registry, recorder CallRecorder, logger *zap.Logger) *Executor {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Executor{
		registry: registry,
		recorder: recorder,
		logger:   logger,
	}
}

var _ service.ToolExecutor = (*Executor)(nil)

// Execute 执行工具调用
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}) (*domaintool.Result, error) {
	startTime := time.Now()
	traceID := service.TraceIDFromContext(ctx)

	tool, exists := e.registry.Get(name)
	if !exists {
		e.logger.Warn("Tool not found",
			zap.String("tool", name),
			zap.String("trace_id", traceID),
		)
		e.recorder.RecordToolCall(UnknownToolLabel, OutcomeUnknown, time.Since(startTime))
		return &domaintool.Result{
			Output:  fmt.Sprintf("Tool '%s' not found", name),
			Success: false,
			Error:   "tool not found: " + name,
		}, nil
	}

	e.logger.Debug("Executing tool",
		zap.String("tool", name),
		zap.String("trace_id", traceID),
		zap.Any("args", args),
	)

	result, err := tool.Execute(ctx, args)
	duration := time.Since(startTime)

	if err != nil {
		e.logger.Error("Tool execution error",
			zap.String("tool", name),
			zap.String("trace_id", traceID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		e.recorder.RecordToolCall(name, OutcomeFailed, duration)
		return nil, err
	}

	outcome := OutcomeOK
	if !result.Success {
		outcome = OutcomeFailed
	}
	e.recorder.RecordToolCall(name, outcome, duration)

	e.logger.Info("Tool execution completed",
		zap.String("tool", name),
		zap.String("trace_id", traceID),
		zap.Duration("duration", duration),
		zap.Bool("success", result.Success),
	)
	return result, nil
}

// GetDefinitions 获取所有工具定义
func (e *Executor) GetDefinitions() []domaintool.Definition {
	return e.registry.List()
}
