package async

import (
	"context"

	"github.com/engram-lab/engram/pkg/utils/errutil"
	"github.com/engram-lab/engram/pkg/utils/logging"
)

// Dispatcher schedules deferred work such as embedding fills and entity
// extraction. Implementations must not propagate handler failures to the
// caller; deferred work is best-effort and isolated.
type Dispatcher func(ctx context.Context, handler func(ctx context.Context) error)

// Dispatch executes a handler function asynchronously in a new goroutine.
// It creates a background context (so the work survives the request) but
// preserves the logger, and handles errors and panics.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	// Detach from the request context but keep the logger
	bgCtx := context.Background()
	if logger := logging.From(ctx); logger != nil {
		bgCtx = logging.With(bgCtx, logger)
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logging.From(bgCtx).Error("panic in async handler", "panic", r)
			}
		}()

		_ = errutil.Handle(bgCtx, handler(bgCtx), "async handler failed")
	}()
}

// Sync runs the handler inline with the same error isolation as Dispatch.
// Used in tests and one-shot CLI paths where deferred work must complete
// before exit.
func Sync(ctx context.Context, handler func(ctx context.Context) error) {
	_ = errutil.Handle(ctx, handler(ctx), "deferred handler failed")
}
