package inbound

import (
	"github.com/shandysiswandi/otpreset/internal/passwordreset/usecase"
	"github.com/shandysiswandi/otpreset/internal/pkg/router"
)

// HTTPEndpoint exposes the password reset flow over JSON.
type HTTPEndpoint struct {
	uc uc
}

// RequestOTP sends a reset code to the account's email.
func (h *HTTPEndpoint) RequestOTP(r *router.Request) (any, error) {
	var req RequestOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.OTPRequest(r.Context(), usecase.OTPRequestInput{
		Email: req.Email,
	})
	if err != nil {
		return nil, err
	}

	return RequestOTPResponse{ExpiresInMinutes: resp.ExpiresInMinutes}, nil
}

// VerifyOTP checks the code and sets the new password.
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if _, err := h.uc.OTPVerify(r.Context(), usecase.OTPVerifyInput{
		Email:       req.Email,
		OTP:         req.OTP,
		NewPassword: req.NewPassword,
	}); err != nil {
		return nil, err
	}

	return VerifyOTPResponse{}, nil
}
