package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/otpreset/internal/pkg/stacktrace"
)

// safeHandle invokes handler and reports a panic as an ordinary handler error,
// which every driver treats as a failed delivery.
func safeHandle(ctx context.Context, driver string, handler Handler, msg Message) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		raw := debug.Stack()
		var stack any = string(raw)
		if own := stacktrace.InternalPaths(raw); len(own) > 0 {
			stack = own
		}
		slog.ErrorContext(ctx, "messaging handler panicked",
			"driver", driver, "topic", msg.Topic, "panic", rvr, "stack", stack)

		err = fmt.Errorf("messaging: %s handler panic: %v", driver, rvr)
	}()

	return handler(ctx, msg)
}
