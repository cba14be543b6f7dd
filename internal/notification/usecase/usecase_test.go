package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/mail"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
)

var errSMTP = errors.New("421 service not available")

type fakeMail struct {
	mu       sync.Mutex
	failures int
	sent     []mail.Message
	attempts int
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errSMTP
	}
	f.sent = append(f.sent, msg)
	return nil
}

// fakeGuard mimics the redis guard: completed keys are skipped and a failed
// run releases its key.
type fakeGuard struct {
	mu   sync.Mutex
	done map[string]bool
	busy map[string]bool
}

func (g *fakeGuard) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	g.mu.Lock()
	if g.done == nil {
		g.done, g.busy = map[string]bool{}, map[string]bool{}
	}
	if g.done[key] {
		g.mu.Unlock()
		return idempotency.ErrCompleted
	}
	if g.busy[key] {
		g.mu.Unlock()
		return idempotency.ErrInProgress
	}
	g.busy[key] = true
	g.mu.Unlock()

	err := fn(ctx)

	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, key)
	if err == nil {
		g.done[key] = true
	}
	return err
}

func newTestUsecase(t *testing.T, yaml string, m *fakeMail, g idempotency.Guard) *Usecase {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml), nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	uc, err := NewNotification(Dependency{
		RepoMail:   m,
		Guard:      g,
		Validator:  v,
		Config:     cfg,
		Instrument: instrument.NewNoop(),
	})
	if err != nil {
		t.Fatalf("NewNotification: %v", err)
	}
	return uc
}

const testYAML = `
app:
  name: Acme
  support_email: help@acme.test
modules:
  notification:
    retry:
      base_millis: 1
      max_retries: 2
`
