package usecase

import "github.com/shandysiswandi/otpreset/internal/pkg/goerror"

// Reasons are stable categories callers can branch on; messages may change.
const (
	ReasonMissingEmail           = "MISSING_EMAIL"
	ReasonInvalidEmail           = "INVALID_EMAIL"
	ReasonUserNotFound           = "USER_NOT_FOUND"
	ReasonProfileNotFound        = "PROFILE_NOT_FOUND"
	ReasonUpstreamError          = "UPSTREAM_ERROR"
	ReasonDeliveryFailed         = "DELIVERY_FAILED"
	ReasonMissingFields          = "MISSING_FIELDS"
	ReasonInvalidOTPFormat       = "INVALID_OTP_FORMAT"
	ReasonWeakPassword           = "WEAK_PASSWORD"
	ReasonNoPendingReset         = "NO_PENDING_RESET"
	ReasonInvalidOrExpiredOTP    = "INVALID_OR_EXPIRED_OTP"
	ReasonCredentialUpdateFailed = "CREDENTIAL_UPDATE_FAILED"
	ReasonInternalError          = "INTERNAL_ERROR"
)

func rejectInput(reason, msg string) error {
	return goerror.WithReason(goerror.NewBusiness(msg, goerror.CodeInvalidInput), reason)
}

func rejectNotFound(reason, msg string) error {
	return goerror.WithReason(goerror.NewBusiness(msg, goerror.CodeNotFound), reason)
}

func fault(reason string, err error, msg string) error {
	return goerror.WithReason(goerror.NewServerMsg(err, msg), reason)
}

func errMissingEmail() error { return rejectInput(ReasonMissingEmail, "Email is required") }
func errInvalidEmail() error { return rejectInput(ReasonInvalidEmail, "Invalid email format") }
func errUserNotFound() error { return rejectNotFound(ReasonUserNotFound, "User not found") }

func errProfileNotFound() error {
	return rejectNotFound(ReasonProfileNotFound, "User profile not found")
}

func errUpstream(err error) error {
	return fault(ReasonUpstreamError, err, "Failed to process password reset request")
}

func errDelivery(err error) error {
	return fault(ReasonDeliveryFailed, err, "Failed to send OTP email")
}

func errMissingFields() error {
	return rejectInput(ReasonMissingFields, "Email, OTP and new password are required")
}

func errInvalidOTPFormat() error { return rejectInput(ReasonInvalidOTPFormat, "OTP must be 6 digits") }

func errWeakPassword() error {
	return rejectInput(ReasonWeakPassword, "Password must be between 8 and 72 characters")
}

func errNoPendingReset() error {
	return rejectInput(ReasonNoPendingReset, "No pending password reset for this account")
}

// errInvalidOTP is shared by every code-check failure so callers cannot tell them apart.
func errInvalidOTP() error { return rejectInput(ReasonInvalidOrExpiredOTP, "Invalid or expired OTP") }

func errCredentialUpdate(err error) error {
	return fault(ReasonCredentialUpdateFailed, err, "Failed to update password")
}

func errInternal(err error) error {
	return fault(ReasonInternalError, err, "Failed to reset password")
}
