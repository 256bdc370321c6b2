package prompt

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/domain/service"
)

// Engine holds the current system instructions. With a file configured the
// file is the source of truth and can be hot-reloaded; otherwise the engine
// always serves DefaultInstructions.
type Engine struct {
	mu           sync.RWMutex
	instructions string
	path         string
	logger       *zap.Logger
}

var _ service.InstructionSource = (*Engine)(nil)

// NewEngine creates an engine for path (may be empty). A file that cannot be
// loaded is logged and the default persona is served until it can.
func NewEngine(path string, logger *zap.Logger) *Engine {
	e := &Engine{
		instructions: DefaultInstructions,
		logger:       logger.With(zap.String("component", "prompt")),
	}
	if path != "" {
		e.path = filepath.Clean(path)
		if err := e.Reload(); err != nil {
			e.logger.Warn("Instructions file not loaded, using defaults",
				zap.String("path", e.path),
				zap.Error(err),
			)
		}
	}
	return e
}

// Instructions implements service.InstructionSource.
func (e *Engine) Instructions() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.instructions
}

// Path returns the watched file, or "" when none is configured.
func (e *Engine) Path() string { return e.path }

// Reload re-reads the instructions file. On error the previous
// instructions stay in effect.
func (e *Engine) Reload() error {
	if e.path == "" {
		return nil
	}
	f, err := ParseInstructionsFile(e.path)
	if err != nil {
		return err
	}

	text := f.Compose(DefaultInstructions)
	e.mu.Lock()
	e.instructions = text
	e.mu.Unlock()

	e.logger.Info("Instructions loaded",
		zap.String("path", e.path),
		zap.String("mode", f.Mode),
		zap.Int("chars", len(text)),
	)
	return nil
}

// StartWatching 启动热加载监视. The parent directory is watched so that
// editors which replace the file via rename are picked up. Returns
// immediately; the watch loop stops when ctx is done.
func (e *Engine) StartWatching(ctx context.Context) error {
	if e.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(e.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch instructions dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				e.handleWatchEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				e.logger.Error("Watcher error", zap.Error(err))
			}
		}
	}()

	e.logger.Info("Instructions hot-reload watching started", zap.String("path", e.path))
	return nil
}

// handleWatchEvent 处理文件变更事件
func (e *Engine) handleWatchEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != e.path {
		return
	}

	switch {
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		if err := e.Reload(); err != nil {
			e.logger.Warn("Instructions reload failed, keeping previous",
				zap.String("path", e.path),
				zap.Error(err),
			)
		}
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		e.logger.Info("Instructions file removed, keeping previous", zap.String("path", e.path))
	}
}
