package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/otpreset/internal/notification/usecase"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/messaging"
	"github.com/shandysiswandi/otpreset/internal/pkg/uid"
	"github.com/shandysiswandi/otpreset/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, msg messaging.Message) context.Context {
	if cid := msg.Header(keyOfCorrelationID); cid != "" {
		return instrument.SetCorrelationID(ctx, cid)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) PasswordResetCodeNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg)

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "PasswordResetCodeNotification")
	defer span.End()

	// the body carries the code, so only the envelope is logged
	slog.InfoContext(ctx, "consume: password reset code notification", "msg_id", msg.ID, "topic", msg.Topic)

	var payload event.PasswordResetCodeMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of password reset code notification", "msg_id", msg.ID, "error", err)
		return nil
	}

	if err := h.uc.ConsumePasswordResetCode(ctx, usecase.ConsumePasswordResetCodeInput{
		EventID:          payload.EventID,
		UserID:           payload.UserID,
		Email:            payload.Email,
		Code:             payload.Code,
		ExpiresInMinutes: payload.ExpiresInMinutes,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume password reset code", "msg_id", msg.ID, "event_id", payload.EventID, "error", err)
		return err
	}

	return nil
}
