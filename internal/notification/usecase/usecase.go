package usecase

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/mail"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

//go:embed templates
var templateFS embed.FS

const (
	defaultSubject      = "Your password reset code"
	defaultRetryBase    = 200 * time.Millisecond
	defaultRetryCap     = 2 * time.Second
	defaultDedupeWindow = 24 * time.Hour
)

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Usecase struct {
	repoMail  repoMail
	guard     idempotency.Guard
	validator validator.Validator
	cfg       config.Config
	ins       instrument.Instrumentation

	resetHTML *htmltemplate.Template
	resetText *texttemplate.Template
}

type Dependency struct {
	RepoMail   repoMail
	// Guard dedupes broker deliveries. Nil runs every delivery.
	Guard      idempotency.Guard
	Validator  validator.Validator
	Config     config.Config
	Instrument instrument.Instrumentation
}

func NewNotification(dep Dependency) (*Usecase, error) {
	resetHTML, err := htmltemplate.ParseFS(templateFS, "templates/password_reset_code.html")
	if err != nil {
		return nil, fmt.Errorf("parse password reset html template: %w", err)
	}
	resetText, err := texttemplate.ParseFS(templateFS, "templates/password_reset_code.txt")
	if err != nil {
		return nil, fmt.Errorf("parse password reset text template: %w", err)
	}

	return &Usecase{
		repoMail:  dep.RepoMail,
		guard:     dep.Guard,
		validator: dep.Validator,
		cfg:       dep.Config,
		ins:       dep.Instrument,
		resetHTML: resetHTML.Option("missingkey=zero"),
		resetText: resetText.Option("missingkey=zero"),
	}, nil
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

type resetCodeData struct {
	AppName          string
	SupportEmail     string
	Email            string
	Code             string
	ExpiresInMinutes int
}

func (s *Usecase) renderResetCode(data resetCodeData) (html, text string, err error) {
	var hb, tb bytes.Buffer
	if err := s.resetHTML.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	if err := s.resetText.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return hb.String(), tb.String(), nil
}

func (s *Usecase) stringOr(key, fallback string) string {
	if v := s.cfg.GetString(key); v != "" {
		return v
	}
	return fallback
}
