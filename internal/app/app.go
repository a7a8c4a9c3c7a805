package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/maze-server/internal/config"
	"github.com/vancomm/maze-server/internal/handlers"
	"github.com/vancomm/maze-server/internal/session"
)

const shutdownTimeout = 15 * time.Second

type Options struct {
	Addr     string
	BasePath string
	Sessions *session.Manager
	JWT      *config.JWT
	WS       *config.WebSocket
	// Records may be nil when no database is configured.
	Records handlers.RecordLister
}

type App struct {
	log      logrus.FieldLogger
	router   *http.ServeMux
	addr     string
	basePath string
	sessions *session.Manager
	jwt      *config.JWT
	ws       *config.WebSocket
	records  handlers.RecordLister
}

func New(log logrus.FieldLogger, opts Options) *App {
	a := &App{
		log:      log,
		router:   http.NewServeMux(),
		addr:     opts.Addr,
		basePath: opts.BasePath,
		sessions: opts.Sessions,
		jwt:      opts.JWT,
		ws:       opts.WS,
		records:  opts.Records,
	}
	a.loadRoutes()
	return a
}

// Start serves HTTP and reaps sessions until ctx is done, then shuts the
// server down and stops every running session.
func (a *App) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:        a.addr,
		Handler:     a.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infof("ready to serve @ %s", a.addr)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return a.sessions.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// streams end once their sessions are cancelled
		sessionsErr := a.sessions.Shutdown(sCtx)
		return errors.Join(server.Shutdown(sCtx), sessionsErr)
	})
	return g.Wait()
}
