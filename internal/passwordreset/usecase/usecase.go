package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpreset/internal/passwordreset/entity"
	"github.com/shandysiswandi/otpreset/internal/pkg/clock"
	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/otp"
	"github.com/shandysiswandi/otpreset/internal/pkg/secretbox"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultCallTimeout = 5 * time.Second

type repoDirectory interface {
	// FindUserByEmail returns goerror.ErrNotFound when no user has the email.
	FindUserByEmail(ctx context.Context, email string) (*entity.User, error)
}

type repoCredential interface {
	UpdatePassword(ctx context.Context, userID, newPassword string) error
}

// repoSecret stores at most one sealed reset secret per user. Writes are conditional.
type repoSecret interface {
	// GetSecret returns "" when no reset is pending and goerror.ErrNotFound
	// when the user has no profile record.
	GetSecret(ctx context.Context, userID string) (string, error)
	// CreateSecret writes only when no secret is present, else goerror.ErrConflict.
	CreateSecret(ctx context.Context, userID, sealed string) error
	// ClearSecret removes the secret only when it still equals sealed. It reports
	// false with no error when nothing was stored, and goerror.ErrConflict when a
	// different secret replaced it.
	ClearSecret(ctx context.Context, userID, sealed string) (bool, error)
}

type notifier interface {
	SendResetCode(ctx context.Context, rc entity.ResetCode) error
}

type Usecase struct {
	directory  repoDirectory
	credential repoCredential
	store      repoSecret
	notifier   notifier
	sealer     secretbox.Sealer
	validator  validator.Validator
	cfg        config.Config
	otp        otp.Config
	clock      clock.Clocker
	ins        instrument.Instrumentation

	requests      metric.Int64Counter
	verifications metric.Int64Counter
}

type Dependency struct {
	Directory  repoDirectory
	Credential repoCredential
	Store      repoSecret
	Notifier   notifier
	Sealer     secretbox.Sealer
	Validator  validator.Validator
	Config     config.Config
	OTP        otp.Config
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		directory:  dep.Directory,
		credential: dep.Credential,
		store:      dep.Store,
		notifier:   dep.Notifier,
		sealer:     dep.Sealer,
		validator:  dep.Validator,
		cfg:        dep.Config,
		otp:        dep.OTP,
		clock:      dep.Clock,
		ins:        dep.Instrument,
	}

	meter := s.ins.Meter("passwordreset.usecase")

	var err error
	s.requests, err = meter.Int64Counter("passwordreset.otp.requests",
		metric.WithDescription("OTP issuance requests by outcome"))
	if err != nil {
		slog.Error("failed to create otp request counter", "error", err)
	}
	s.verifications, err = meter.Int64Counter("passwordreset.otp.verifications",
		metric.WithDescription("OTP verification requests by outcome"))
	if err != nil {
		slog.Error("failed to create otp verification counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("passwordreset.usecase").Start(ctx, name)
}

// callCtx bounds a single collaborator call. The timeout is re-read on every
// call so a config reload applies to the next request.
func (s *Usecase) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.GetSecond("modules.passwordreset.call_timeout_seconds")
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Usecase) scope(userID string) secretbox.Scope {
	return secretbox.Scope{Subject: userID, Purpose: secretbox.PurposeResetSecret}
}

func (s *Usecase) findUser(ctx context.Context, email string) (*entity.User, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.directory.FindUserByEmail(cctx, email)
}

func (s *Usecase) getSecret(ctx context.Context, userID string) (string, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.store.GetSecret(cctx, userID)
}

func (s *Usecase) createSecret(ctx context.Context, userID, sealed string) error {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.store.CreateSecret(cctx, userID, sealed)
}

func (s *Usecase) clearSecret(ctx context.Context, userID, sealed string) (bool, error) {
	cctx, cancel := s.callCtx(ctx)
	defer cancel()
	return s.store.ClearSecret(cctx, userID, sealed)
}

func outcome(err error, success string) string {
	if err == nil {
		return success
	}
	if reason := goerror.ReasonOf(err); reason != "" {
		return reason
	}
	return "UNKNOWN"
}

func record(ctx context.Context, c metric.Int64Counter, value string) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", value)))
}
