package inbound

import (
	"context"

	"github.com/shandysiswandi/otpreset/internal/notification/usecase"
)

type uc interface {
	ConsumePasswordResetCode(ctx context.Context, in usecase.ConsumePasswordResetCodeInput) error
}
