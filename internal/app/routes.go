package app

import (
	"net/http"
	"strings"

	"github.com/vancomm/maze-server/internal/handlers"
	"github.com/vancomm/maze-server/internal/middleware"
)

func (a *App) loadRoutes() {
	mz := handlers.NewMazeHandler(a.log, a.sessions, a.jwt, a.ws)
	records := handlers.NewRecordsHandler(a.log, a.records)

	a.router.HandleFunc("POST /maze", mz.Create)
	a.router.HandleFunc("GET /maze", mz.List)
	a.router.HandleFunc("GET /maze/{id}", mz.Fetch)
	a.router.HandleFunc("POST /maze/{id}/cancel", mz.Cancel)
	a.router.HandleFunc("GET /maze/{id}/connect", mz.Connect)

	a.router.HandleFunc("GET /records", records.List)
	a.router.HandleFunc("GET /status", handlers.StatusHandler(a.log, a.sessions, a.records != nil))
}

// Handler returns the router wrapped in middleware and mounted under the
// configured base path.
func (a *App) Handler() http.Handler {
	var h http.Handler = a.router
	if base := strings.TrimSuffix(a.basePath, "/"); base != "" {
		h = http.StripPrefix(base, h)
	}
	return middleware.Wrap(h,
		middleware.Bearer(a.log, a.jwt),
		middleware.Logging(a.log),
		middleware.Cors(),
	)
}
