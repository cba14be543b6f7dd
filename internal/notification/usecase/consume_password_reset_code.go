package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/idempotency"
)

type ConsumePasswordResetCodeInput struct {
	EventID          int64 `validate:"gt=0"`
	UserID           string
	Email            string
	Code             string
	ExpiresInMinutes int
}

// ConsumePasswordResetCode delivers a brokered reset code at most once per event.
// Invalid events are dropped. A nil return acknowledges the message.
func (s *Usecase) ConsumePasswordResetCode(ctx context.Context, in ConsumePasswordResetCodeInput) error {
	ctx, span := s.startSpan(ctx, "ConsumePasswordResetCode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "dropping password reset code event", "user_id", in.UserID, "error", err)
		return nil
	}

	send := func(ctx context.Context) error {
		return s.SendPasswordResetCode(ctx, SendPasswordResetCodeInput{
			UserID:           in.UserID,
			Email:            in.Email,
			Code:             in.Code,
			ExpiresInMinutes: in.ExpiresInMinutes,
		})
	}

	if s.guard == nil {
		return s.dropInvalid(ctx, in.EventID, send(ctx))
	}

	key := "notification:password_reset_code:" + strconv.FormatInt(in.EventID, 10)
	err := s.guard.Exec(ctx, key, send, idempotency.WithCompletedTTL(defaultDedupeWindow))
	if errors.Is(err, idempotency.ErrCompleted) {
		slog.InfoContext(ctx, "password reset code event already delivered", "event_id", in.EventID)
		return nil
	}

	return s.dropInvalid(ctx, in.EventID, err)
}

// dropInvalid acknowledges events that can never succeed so the broker stops
// redelivering them.
func (s *Usecase) dropInvalid(ctx context.Context, eventID int64, err error) error {
	if err == nil {
		return nil
	}
	if isInvalidInput(err) {
		slog.ErrorContext(ctx, "dropping undeliverable password reset code event", "event_id", eventID, "error", err)
		return nil
	}
	return err
}

func isInvalidInput(err error) bool {
	var gerr *goerror.Error
	return errors.As(err, &gerr) && gerr.Type() == goerror.TypeValidation
}
