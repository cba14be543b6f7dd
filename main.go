package main

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/otpreset/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		slog.Error("otpreset exited", "error", err)
		os.Exit(1)
	}
}
