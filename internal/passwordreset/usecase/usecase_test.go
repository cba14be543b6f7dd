package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpreset/internal/passwordreset/entity"
	"github.com/shandysiswandi/otpreset/internal/pkg/clock"
	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/otp"
	"github.com/shandysiswandi/otpreset/internal/pkg/secretbox"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
)

// midWindow sits 300s into a 600s window.
var midWindow = time.Unix(1_700_000_700, 0).UTC()

var errBoom = errors.New("boom")

type fakeDirectory struct {
	users       map[string]*entity.User
	err         error
	calls       int
	hadDeadline bool
}

func (f *fakeDirectory) FindUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	f.calls++
	_, f.hadDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[email]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return u, nil
}

type fakeCredential struct {
	err     error
	updated map[string]string
}

func (f *fakeCredential) UpdatePassword(_ context.Context, userID, newPassword string) error {
	if f.err != nil {
		return f.err
	}
	if f.updated == nil {
		f.updated = map[string]string{}
	}
	f.updated[userID] = newPassword
	return nil
}

// fakeStore follows the conditional-write contract in memory.
type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]string
	getErr   error
	clearErr error
	onCreate func(userID string)
	writes   int
}

func (f *fakeStore) GetSecret(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.profiles[userID]
	if !ok {
		return "", goerror.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) CreateSecret(_ context.Context, userID, sealed string) error {
	if f.onCreate != nil {
		f.onCreate(userID)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	v, ok := f.profiles[userID]
	if !ok {
		return goerror.ErrNotFound
	}
	if v != "" {
		return goerror.ErrConflict
	}
	f.profiles[userID] = sealed
	return nil
}

func (f *fakeStore) ClearSecret(_ context.Context, userID, sealed string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.clearErr != nil {
		return false, f.clearErr
	}
	v := f.profiles[userID]
	if v == "" {
		return false, nil
	}
	if v != sealed {
		return false, goerror.ErrConflict
	}
	f.profiles[userID] = ""
	return true, nil
}

func (f *fakeStore) secret(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID]
}

type fakeNotifier struct {
	err  error
	sent []entity.ResetCode
}

func (f *fakeNotifier) SendResetCode(_ context.Context, rc entity.ResetCode) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, rc)
	return nil
}

func (f *fakeNotifier) last(t *testing.T) entity.ResetCode {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no reset code was delivered")
	}
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	uc         *Usecase
	directory  *fakeDirectory
	credential *fakeCredential
	store      *fakeStore
	notifier   *fakeNotifier
	sealer     *secretbox.AESGCM
	clock      *clock.Fixed
}

// newFixture wires u1 (with an empty profile) and u2 (no profile).
func newFixture(t *testing.T, yaml string) *fixture {
	t.Helper()

	if yaml == "" {
		yaml = "modules: {}"
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml), nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	sealer, err := secretbox.NewAESGCM([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}

	f := &fixture{
		directory: &fakeDirectory{users: map[string]*entity.User{
			"u1@example.com": {ID: "u1", Email: "u1@example.com"},
			"u2@example.com": {ID: "u2", Email: "u2@example.com"},
		}},
		credential: &fakeCredential{},
		store:      &fakeStore{profiles: map[string]string{"u1": ""}},
		notifier:   &fakeNotifier{},
		sealer:     sealer,
		clock:      clock.NewFixed(midWindow),
	}

	f.uc = New(Dependency{
		Directory:  f.directory,
		Credential: f.credential,
		Store:      f.store,
		Notifier:   f.notifier,
		Sealer:     sealer,
		Validator:  v,
		Config:     cfg,
		OTP:        otp.DefaultConfig(),
		Clock:      f.clock,
		Instrument: instrument.NewNoop(),
	})

	return f
}

func (f *fixture) scope(userID string) secretbox.Scope {
	return secretbox.Scope{Subject: userID, Purpose: secretbox.PurposeResetSecret}
}

// seedSecret stores a fresh sealed secret for userID and returns the plaintext.
func (f *fixture) seedSecret(t *testing.T, userID string) string {
	t.Helper()

	secret, err := otp.GenerateSecret(otp.DefaultConfig(), userID)
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	sealed, err := f.sealer.Seal(secret, f.scope(userID))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	f.store.profiles[userID] = sealed
	return secret
}

func (f *fixture) code(t *testing.T, secret string) string {
	t.Helper()

	code, err := otp.Derive(otp.DefaultConfig(), secret, f.clock.Now())
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	return code
}

func assertReason(t *testing.T, err error, want string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s, got nil error", want)
	}
	if got := goerror.ReasonOf(err); got != want {
		t.Fatalf("reason = %q, want %q (err: %v)", got, want, err)
	}
}

func assertStatus(t *testing.T, err error, want int) {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T", err)
	}
	if gerr.StatusCode() != want {
		t.Fatalf("status = %d, want %d", gerr.StatusCode(), want)
	}
}
