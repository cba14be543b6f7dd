package goroutine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestManager_CollectsErrors(t *testing.T) {
	// Arrange
	m := NewManager(4)
	ctx := context.Background()

	// Act
	_ = m.Go(ctx, "ok", func(context.Context) error { return nil })
	_ = m.Go(ctx, "fails", func(context.Context) error { return errors.New("broker down") })
	_ = m.Go(ctx, "panics", func(context.Context) error { panic("nil map") })
	_ = m.Go(ctx, "canceled", func(context.Context) error { return context.Canceled })
	err := m.Wait()

	// Assert
	if err == nil {
		t.Fatal("expected joined error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "fails: broker down") || !strings.Contains(msg, "panics: panic: nil map") {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(msg, "canceled") {
		t.Fatalf("context cancellation must not be reported: %v", err)
	}
}

func TestManager_Limit(t *testing.T) {
	m := NewManager(1)
	ctx := context.Background()
	release := make(chan struct{})

	if err := m.Go(ctx, "first", func(context.Context) error { <-release; return nil }); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := m.Go(ctx, "second", func(context.Context) error { return nil }); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("second: got %v, want ErrLimitReached", err)
	}

	close(release)
	if err := m.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if err := m.Go(ctx, "late", func(context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("late: got %v, want ErrClosed", err)
	}
}
