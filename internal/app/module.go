package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpreset/internal/notification"
	"github.com/shandysiswandi/otpreset/internal/passwordreset"
)

func (a *App) initModules() {
	notif, err := notification.New(notification.Dependency{
		Ctx:         a.ctx,
		Messaging:   a.messaging,
		Config:      a.config,
		Instrument:  a.ins,
		UUID:        a.uuid,
		Goroutine:   a.goroutine,
		Validator:   a.validator,
		Mail:        a.mail,
		Idempotency: a.idemp,
	})
	if err != nil {
		slog.Error("failed to init module notification", "error", err)
		os.Exit(1)
	}

	dep := passwordreset.Dependency{
		DBConn:       a.dbConn,
		Messaging:    a.messaging,
		Notification: notif,
		Config:       a.config,
		Instrument:   a.ins,
		UID:          a.uid,
		Clock:        a.clock,
		Validator:    a.validator,
		Hash:         a.hash,
		Router:       a.router,
		Mongo:        a.mongoDB,
	}
	if a.cacheConn != nil {
		dep.Redis = a.cacheConn
	}

	if err := passwordreset.New(dep); err != nil {
		slog.Error("failed to init module passwordreset", "error", err)
		os.Exit(1)
	}
}
