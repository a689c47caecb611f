package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/lostmyescape/opsconsole/internal/config"
)

type App struct {
	log *slog.Logger
	srv *http.Server
}

func New(log *slog.Logger, cfg config.HTTPServer, handler http.Handler) *App {
	return &App{
		log: log,
		srv: &http.Server{
			Addr:         cfg.Address,
			Handler:      handler,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

// Run serves until Stop is called.
func (a *App) Run() error {
	const op = "httpapp.Run"

	l, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("http server started", slog.String("addr", l.Addr().String()))

	if err := a.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (a *App) Stop(ctx context.Context) error {
	const op = "httpapp.Stop"

	a.log.Info("stopping http server", slog.String("addr", a.srv.Addr))

	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
