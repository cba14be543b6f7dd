package inbound

import (
	"context"

	"github.com/shandysiswandi/otpreset/internal/passwordreset/usecase"
	"github.com/shandysiswandi/otpreset/internal/pkg/router"
)

type uc interface {
	OTPRequest(ctx context.Context, in usecase.OTPRequestInput) (*usecase.OTPRequestOutput, error)
	OTPVerify(ctx context.Context, in usecase.OTPVerifyInput) (*usecase.OTPVerifyOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/password-reset/request", end.RequestOTP)
	r.POST("/api/v1/password-reset/verify", end.VerifyOTP)
}
