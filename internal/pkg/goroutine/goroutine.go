// Package goroutine supervises long-running background work such as message consumers.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/otpreset/internal/pkg/stacktrace"
)

// ErrClosed is returned by Go once Wait has been called.
var ErrClosed = errors.New("goroutine: manager is closed")

// ErrLimitReached is returned by Go when every slot is busy.
var ErrLimitReached = errors.New("goroutine: concurrency limit reached")

// DefaultLimit is used when NewManager receives a non-positive limit.
const DefaultLimit = 64

// Manager runs named tasks with a concurrency ceiling and collects their errors.
// A panicking task is recovered and reported as an error.
type Manager struct {
	wg   sync.WaitGroup
	sema chan struct{}

	mu     sync.Mutex
	errs   []error
	closed bool
}

// NewManager creates a Manager that runs at most limit tasks at once.
func NewManager(limit int) *Manager {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Manager{sema: make(chan struct{}, limit)}
}

// Go starts fn in its own goroutine. It never blocks: when the manager is
// closed or saturated the task is rejected with an error.
func (m *Manager) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	select {
	case m.sema <- struct{}{}:
	default:
		slog.WarnContext(ctx, "goroutine limit reached", "task", name, "limit", cap(m.sema))
		return ErrLimitReached
	}

	m.wg.Go(func() {
		defer func() { <-m.sema }()

		if err := m.run(ctx, name, fn); err != nil {
			m.mu.Lock()
			m.errs = append(m.errs, err)
			m.mu.Unlock()
		}
	})

	return nil
}

func (m *Manager) run(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic in background task", "task", name, "panic", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic in background task", "task", name, "panic", rvr, "stack", string(stack))
		}
		err = fmt.Errorf("%s: panic: %v", name, rvr)
	}()

	if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Wait stops accepting tasks, blocks until running ones return, and joins their errors.
func (m *Manager) Wait() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	return errors.Join(m.errs...)
}
