package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/mail"
)

type SendPasswordResetCodeInput struct {
	UserID           string `validate:"required"`
	Email            string `validate:"required,email"`
	Code             string `validate:"required,numeric"`
	ExpiresInMinutes int    `validate:"gt=0"`
}

// SendPasswordResetCode renders the reset email and sends it, retrying transient
// failures with a capped exponential backoff.
func (s *Usecase) SendPasswordResetCode(ctx context.Context, in SendPasswordResetCodeInput) error {
	ctx, span := s.startSpan(ctx, "SendPasswordResetCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.WarnContext(ctx, "invalid password reset code notification", "user_id", in.UserID, "error", err)
		return goerror.NewInvalidInput(err)
	}

	html, text, err := s.renderResetCode(resetCodeData{
		AppName:          s.stringOr("app.name", "otpreset"),
		SupportEmail:     s.cfg.GetString("app.support_email"),
		Email:            in.Email,
		Code:             in.Code,
		ExpiresInMinutes: in.ExpiresInMinutes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to render password reset email", "user_id", in.UserID, "error", err)
		return goerror.NewServer(err)
	}

	msg := mail.Message{
		To:       []string{in.Email},
		Subject:  s.stringOr("modules.notification.password_reset_subject", defaultSubject),
		TextBody: text,
		HTMLBody: html,
	}

	attempt := 0
	err = retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		attempt++
		if err := s.repoMail.Send(ctx, msg); err != nil {
			slog.WarnContext(ctx, "password reset email attempt failed", "user_id", in.UserID, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send password reset email", "user_id", in.UserID, "attempts", attempt, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "password reset email sent", "user_id", in.UserID, "attempts", attempt)
	return nil
}

func (s *Usecase) backoff() retry.Backoff {
	base := time.Duration(s.cfg.GetInt("modules.notification.retry.base_millis")) * time.Millisecond
	if base <= 0 {
		base = defaultRetryBase
	}
	maxRetries := max(s.cfg.GetInt("modules.notification.retry.max_retries"), 0)

	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(defaultRetryCap, b)
	return retry.WithMaxRetries(uint64(maxRetries), b)
}
