package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shandysiswandi/otpreset/internal/passwordreset/entity"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/messaging"
	"github.com/shandysiswandi/otpreset/internal/pkg/uid"
	"github.com/shandysiswandi/otpreset/internal/shared/event"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

// MQ hands reset codes to the broker. Issuance succeeds once the broker
// accepted the event; the notification consumer delivers it.
type MQ struct {
	client messaging.Messaging
	uid    uid.NumberID
	ins    instrument.Instrumentation
}

func NewMQ(client messaging.Messaging, id uid.NumberID, ins instrument.Instrumentation) *MQ {
	return &MQ{client: client, uid: id, ins: ins}
}

func (m *MQ) SendResetCode(ctx context.Context, rc entity.ResetCode) error {
	ctx, span := m.ins.Tracer("passwordreset.outbound.mq").Start(ctx, "SendResetCode")
	defer span.End()

	msg := event.PasswordResetCodeMessage{
		EventID:          m.uid.Generate(),
		UserID:           rc.UserID,
		Email:            rc.Email,
		Code:             rc.Code,
		ExpiresInMinutes: rc.ExpiresInMinutes,
	}
	span.SetAttributes(attribute.Int64("event.id", msg.EventID))

	body, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode event")
		return fmt.Errorf("encode password reset code event: %w", err)
	}

	err = m.client.Publish(ctx, event.PasswordResetCodeDestination, messaging.OutgoingMessage{
		Key:     []byte(rc.UserID),
		Body:    body,
		Headers: map[string]string{keyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish event")
		return fmt.Errorf("publish password reset code event: %w", err)
	}

	slog.InfoContext(ctx, "password reset code event published", "user_id", rc.UserID, "event_id", msg.EventID)
	return nil
}
