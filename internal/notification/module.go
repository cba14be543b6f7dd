package notification

import (
	"context"

	"github.com/shandysiswandi/otpreset/internal/notification/inbound"
	"github.com/shandysiswandi/otpreset/internal/notification/outbound/email"
	"github.com/shandysiswandi/otpreset/internal/notification/usecase"
	"github.com/shandysiswandi/otpreset/internal/pkg/config"
	"github.com/shandysiswandi/otpreset/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpreset/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpreset/internal/pkg/instrument"
	"github.com/shandysiswandi/otpreset/internal/pkg/mail"
	"github.com/shandysiswandi/otpreset/internal/pkg/messaging"
	"github.com/shandysiswandi/otpreset/internal/pkg/uid"
	"github.com/shandysiswandi/otpreset/internal/pkg/validator"
)

type Dependency struct {
	// Ctx scopes the broker consumers. Nil skips them.
	Ctx         context.Context
	Messaging   messaging.Messaging
	Config      config.Config
	Instrument  instrument.Instrumentation
	UUID        uid.StringID
	Goroutine   *goroutine.Manager
	Validator   validator.Validator
	Mail        mail.Mail
	Idempotency idempotency.Guard
}

// New builds the notification usecase and starts its broker consumers. The
// usecase is returned so other modules can deliver mail in-process.
func New(dep Dependency) (*usecase.Usecase, error) {
	repoMail := email.New(dep.Mail, dep.Instrument)

	uc, err := usecase.NewNotification(usecase.Dependency{
		RepoMail:   repoMail,
		Guard:      dep.Idempotency,
		Validator:  dep.Validator,
		Config:     dep.Config,
		Instrument: dep.Instrument,
	})
	if err != nil {
		return nil, err
	}

	if dep.Ctx != nil && dep.Messaging != nil && dep.Goroutine != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return uc, nil
}
