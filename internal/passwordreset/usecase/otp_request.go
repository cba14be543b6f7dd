package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/otpreset/internal/passwordreset/entity"
	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/otp"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
)

var errSecretVanished = errors.New("reset secret disappeared after a concurrent create")

type OTPRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

type OTPRequestOutput struct {
	ExpiresInMinutes int
}

// OTPRequest derives the current code from the user's reset secret, creating
// the secret on first use, and hands it to the notifier. The code itself is
// never returned.
func (s *Usecase) OTPRequest(ctx context.Context, in OTPRequestInput) (_ *OTPRequestOutput, err error) {
	ctx, span := s.startSpan(ctx, "OTPRequest")
	defer span.End()
	defer func() { record(ctx, s.requests, outcome(err, "SENT")) }()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := s.validateOTPRequest(in); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset requested for unknown email", "email", in.Email)
		return nil, errUserNotFound()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find user by email", "email", in.Email, "error", err)
		return nil, errUpstream(err)
	}

	secret, err := s.resolveSecret(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	code, err := otp.Derive(s.otp, secret, now)
	if err != nil {
		slog.ErrorContext(ctx, "failed to derive otp", "user_id", user.ID, "error", err)
		return nil, errUpstream(err)
	}

	expires := int(otp.ValidFor(s.otp) / time.Minute)

	cctx, cancel := s.callCtx(ctx)
	err = s.notifier.SendResetCode(cctx, entity.ResetCode{
		UserID:           user.ID,
		Email:            user.Email,
		Code:             code,
		ExpiresInMinutes: expires,
	})
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to deliver reset code", "user_id", user.ID, "error", err)
		return nil, errDelivery(err)
	}

	slog.InfoContext(ctx, "password reset code issued", "user_id", user.ID, "window", otp.Window(s.otp, now))

	return &OTPRequestOutput{ExpiresInMinutes: expires}, nil
}

func (s *Usecase) validateOTPRequest(in OTPRequestInput) error {
	err := s.validator.Validate(in)
	if err == nil {
		return nil
	}

	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return errUpstream(err)
	}
	if ve.Tag("email") == "required" {
		return errMissingEmail()
	}
	return errInvalidEmail()
}

// resolveSecret returns the plaintext secret of the pending reset, provisioning
// one when none exists. A lost create race adopts the winner's secret.
func (s *Usecase) resolveSecret(ctx context.Context, userID string) (string, error) {
	sealed, err := s.getSecret(ctx, userID)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset requested for user without profile", "user_id", userID)
		return "", errProfileNotFound()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get reset secret", "user_id", userID, "error", err)
		return "", errUpstream(err)
	}

	if sealed == "" {
		sealed, err = s.provisionSecret(ctx, userID)
		if err != nil {
			return "", err
		}
	}

	secret, err := s.sealer.Open(sealed, s.scope(userID))
	if err != nil {
		slog.ErrorContext(ctx, "failed to open stored reset secret", "user_id", userID, "error", err)
		return "", errUpstream(err)
	}

	return secret, nil
}

func (s *Usecase) provisionSecret(ctx context.Context, userID string) (string, error) {
	secret, err := otp.GenerateSecret(s.otp, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate reset secret", "user_id", userID, "error", err)
		return "", errUpstream(err)
	}

	sealed, err := s.sealer.Seal(secret, s.scope(userID))
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal reset secret", "user_id", userID, "error", err)
		return "", errUpstream(err)
	}

	err = s.createSecret(ctx, userID, sealed)
	if err == nil {
		return sealed, nil
	}
	if errors.Is(err, goerror.ErrNotFound) {
		// Profile removed between read and write.
		return "", errProfileNotFound()
	}
	if !errors.Is(err, goerror.ErrConflict) {
		slog.ErrorContext(ctx, "failed to repo create reset secret", "user_id", userID, "error", err)
		return "", errUpstream(err)
	}

	slog.InfoContext(ctx, "concurrent reset secret create, adopting stored secret", "user_id", userID)

	winner, err := s.getSecret(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo re-read reset secret", "user_id", userID, "error", err)
		return "", errUpstream(err)
	}
	if winner == "" {
		slog.ErrorContext(ctx, "reset secret cleared during concurrent create", "user_id", userID)
		return "", errUpstream(errSecretVanished)
	}

	return winner, nil
}
