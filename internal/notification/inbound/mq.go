package inbound

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/messaging"
	"github.com/shandysiswandi/otpreset/internal/pkg/uid"
	"github.com/shandysiswandi/otpreset/internal/shared/event"
)

const defaultConsumerConcurrency = 10

type consumer struct {
	name    string
	topic   string // destination where publisher sent message
	group   string // nsq channel, nats queue group, kafka consumer group
	handler messaging.Handler
}

// RegisterMQConsumer starts every consumer listed in modules.notification.consumer_names.
// It returns the names it started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) []string {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	consumers := []consumer{
		{
			name:    event.PasswordResetCodeConsumerNotification,
			topic:   event.PasswordResetCodeDestination,
			group:   event.PasswordResetCodeConsumerNotification,
			handler: mqHandler.PasswordResetCodeNotification,
		},
	}

	enabled := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")
	if concurrency < 1 {
		concurrency = defaultConsumerConcurrency
	}

	started := make([]string, 0, len(consumers))
	for _, c := range lo.Filter(consumers, func(c consumer, _ int) bool { return lo.Contains(enabled, c.name) }) {
		err := routine.Go(ctx, c.name, func(pCtx context.Context) error {
			slog.InfoContext(pCtx, "Running job for handling consumer", "consumer", c.name, "topic", c.topic)
			return messenger.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithGroup(c.group),
				messaging.WithConcurrency(concurrency),
			)
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to start consumer", "consumer", c.name, "error", err)
			continue
		}
		started = append(started, c.name)
	}

	return started
}
