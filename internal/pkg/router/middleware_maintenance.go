package router

import (
	"net/http"
	"slices"

	"github.com/shandysiswandi/otpreset/internal/pkg/config"
)

const maintenanceAll = "*"

// middlewareMaintenance answers 503 for routes listed in app.maintenance.endpoints,
// or for every route when the list holds "*". The list is read on each request
// so a config reload takes effect immediately.
func middlewareMaintenance(cfg config.Config) Middleware {
	if cfg == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			closed := cfg.GetArray("app.maintenance.endpoints")
			if slices.Contains(closed, maintenanceAll) || slices.Contains(closed, matchedRoutePath(r)) {
				writeJSON(w, errorResponse{Message: "Service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
