package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/otpreset/internal/pkg/goerror"
	"github.com/shandysiswandi/otpreset/internal/pkg/otp"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

type OTPVerifyInput struct {
	Email       string `json:"email" validate:"required"`
	OTP         string `json:"otp" validate:"required,otpcode"`
	NewPassword string `json:"newPassword" validate:"required,password"`
}

type OTPVerifyOutput struct{}

// OTPVerify checks the code against the pending reset secret, updates the
// password and invalidates the secret.
//
// With modules.passwordreset.claim_before_update the secret is cleared before
// the update so two requests holding the same code cannot both succeed.
func (s *Usecase) OTPVerify(ctx context.Context, in OTPVerifyInput) (_ *OTPVerifyOutput, err error) {
	ctx, span := s.startSpan(ctx, "OTPVerify")
	defer span.End()
	defer func() { record(ctx, s.verifications, outcome(err, "RESET")) }()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	if err := s.validateOTPVerify(in); err != nil {
		return nil, err
	}

	user, err := s.findUser(ctx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "password reset verify for unknown email", "email", in.Email)
		return nil, errUserNotFound()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo find user by email", "email", in.Email, "error", err)
		return nil, errInternal(err)
	}

	sealed, err := s.getSecret(ctx, user.ID)
	if errors.Is(err, goerror.ErrNotFound) || (err == nil && sealed == "") {
		slog.WarnContext(ctx, "password reset verify without pending reset", "user_id", user.ID)
		return nil, errNoPendingReset()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get reset secret", "user_id", user.ID, "error", err)
		return nil, errInternal(err)
	}

	if !s.codeMatches(ctx, user.ID, sealed, in.OTP) {
		return nil, errInvalidOTP()
	}

	claim := s.cfg.GetBool("modules.passwordreset.claim_before_update")
	if claim {
		if err := s.claimSecret(ctx, user.ID, sealed); err != nil {
			return nil, err
		}
	}

	cctx, cancel := s.callCtx(ctx)
	err = s.credential.UpdatePassword(cctx, user.ID, in.NewPassword)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to update password", "user_id", user.ID, "error", err)
		if claim {
			s.restoreSecret(ctx, user.ID, sealed)
		}
		return nil, errCredentialUpdate(err)
	}

	if !claim {
		s.invalidateSecret(ctx, user.ID, sealed)
	}

	slog.InfoContext(ctx, "password reset completed", "user_id", user.ID)

	return &OTPVerifyOutput{}, nil
}

func (s *Usecase) validateOTPVerify(in OTPVerifyInput) error {
	err := s.validator.Validate(in)
	if err == nil {
		if len(in.NewPassword) > maxPasswordBytes {
			return errWeakPassword()
		}
		return nil
	}

	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return errInternal(err)
	}

	switch {
	case ve.HasTag("required"):
		return errMissingFields()
	case ve.Tag("otp") != "":
		return errInvalidOTPFormat()
	default:
		return errWeakPassword()
	}
}

// codeMatches collapses unseal failures, engine faults and mismatches into one answer.
func (s *Usecase) codeMatches(ctx context.Context, userID, sealed, code string) bool {
	secret, err := s.sealer.Open(sealed, s.scope(userID))
	if err != nil {
		slog.ErrorContext(ctx, "failed to open stored reset secret", "user_id", userID, "error", err)
		return false
	}

	ok, err := otp.Matches(s.otp, secret, code, s.clock.Now())
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify otp", "user_id", userID, "error", err)
		return false
	}
	if !ok {
		slog.WarnContext(ctx, "otp mismatch", "user_id", userID)
	}

	return ok
}

// claimSecret clears the secret ahead of the update; only one caller can win.
func (s *Usecase) claimSecret(ctx context.Context, userID, sealed string) error {
	cleared, err := s.clearSecret(ctx, userID, sealed)
	if errors.Is(err, goerror.ErrConflict) || (err == nil && !cleared) {
		slog.WarnContext(ctx, "reset secret claimed by another request", "user_id", userID)
		return errInvalidOTP()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo claim reset secret", "user_id", userID, "error", err)
		return errInternal(err)
	}
	return nil
}

// restoreSecret puts a claimed secret back so the code stays usable for a retry.
func (s *Usecase) restoreSecret(ctx context.Context, userID, sealed string) {
	err := s.createSecret(context.WithoutCancel(ctx), userID, sealed)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "reset secret replaced before restore", "user_id", userID)
		return
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo restore reset secret", "user_id", userID, "error", err)
	}
}

// invalidateSecret is best effort: the password already changed.
func (s *Usecase) invalidateSecret(ctx context.Context, userID, sealed string) {
	cleared, err := s.clearSecret(context.WithoutCancel(ctx), userID, sealed)
	switch {
	case errors.Is(err, goerror.ErrConflict):
		slog.WarnContext(ctx, "reset secret replaced by a newer request, leaving it", "user_id", userID)
	case err != nil:
		slog.ErrorContext(ctx, "failed to repo clear reset secret after password update", "user_id", userID, "error", err)
	case !cleared:
		slog.WarnContext(ctx, "reset secret already cleared", "user_id", userID)
	}
}
