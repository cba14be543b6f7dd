package notifier

import (
	"context"

	"github.com/shandysiswandi/otpreset/internal/notification/usecase"
	"github.com/shandysiswandi/otpreset/internal/passwordreset/entity"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
)

type sender interface {
	SendPasswordResetCode(ctx context.Context, in usecase.SendPasswordResetCodeInput) error
}

// Notifier delivers reset codes synchronously through the notification module,
// so a delivery failure fails the issuance request.
type Notifier struct {
	sender sender
	ins    instrument.Instrumentation
}

func NewNotifier(s sender, ins instrument.Instrumentation) *Notifier {
	return &Notifier{sender: s, ins: ins}
}

func (n *Notifier) SendResetCode(ctx context.Context, rc entity.ResetCode) error {
	ctx, span := n.ins.Tracer("passwordreset.outbound.notifier").Start(ctx, "SendResetCode")
	defer span.End()

	err := n.sender.SendPasswordResetCode(ctx, usecase.SendPasswordResetCodeInput{
		UserID:           rc.UserID,
		Email:            rc.Email,
		Code:             rc.Code,
		ExpiresInMinutes: rc.ExpiresInMinutes,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reset code delivery failed")
		return err
	}

	return nil
}
