// Package app wires the coordinator's config, logger, registry, intake
// watcher, and HTTP server together and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/thesamsai/transcode-dispatch/internal/coordinator/config"
	"github.com/thesamsai/transcode-dispatch/internal/coordinator/httpapi"
	"github.com/thesamsai/transcode-dispatch/internal/coordinator/intake"
	"github.com/thesamsai/transcode-dispatch/internal/coordinator/registry"
	"github.com/thesamsai/transcode-dispatch/internal/platform/logger"
)

type App struct {
	Log    *logger.Logger
	Config *config.Config

	registry *registry.Registry
	server   *http.Server
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	reg := registry.New(cfg.Staleness)
	srv := httpapi.NewServer(cfg, log, reg)

	return &App{
		Log:      log,
		Config:   cfg,
		registry: reg,
		server:   srv,
	}, nil
}

// Run starts the intake watcher on its own goroutine and serves HTTP until
// ctx is canceled, then drains the listener within Config.ShutdownTimeout.
// A fatal intake watcher error (spec.md section 4.1) also ends the process,
// since the coordinator cannot meaningfully continue without intake.
func (a *App) Run(ctx context.Context) error {
	watcher, err := intake.NewFSNotifyWatcher()
	if err != nil {
		return fmt.Errorf("init intake watcher: %w", err)
	}

	intakeErrCh := make(chan error, 1)
	go func() {
		intakeErrCh <- intake.Run(a.Config.IntakeDir, a.registry, watcher, a.Log.With("component", "intake"))
	}()

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
		defer cancel()
		_ = watcher.Close()
		_ = a.server.Shutdown(shutdownCtx)
		return nil
	case err := <-serverErrCh:
		_ = watcher.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case err := <-intakeErrCh:
		a.Log.Fatal("intake watcher stopped", "error", err)
		return err
	}
}
