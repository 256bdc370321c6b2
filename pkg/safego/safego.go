// Package safego runs background work without letting a panic take the
// process down.
package safego

import (
	"context"

	"go.uber.org/zap"
)

// Go launches fn in a goroutine with panic recovery. A panic is logged with
// its stack and the goroutine exits.
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer recoverPanic(logger, name)
		fn()
	}()
}

// GoContext is Go for work bound to ctx. fn is skipped when ctx is already
// done. The returned channel closes when fn returns or panics.
func GoContext(ctx context.Context, logger *zap.Logger, name string, fn func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer recoverPanic(logger, name)
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	}()
	return done
}

func recoverPanic(logger *zap.Logger, name string) {
	if r := recover(); r != nil {
		logger.Error("Goroutine panicked",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}
