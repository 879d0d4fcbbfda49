package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/urbansims/microgreens/internal/infra/config"
	"github.com/urbansims/microgreens/internal/infra/seedcatalog"
)

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	seeds  *seedcatalog.Importer
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, seeds *seedcatalog.Importer) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, seeds: seeds}
}

// Run loads the seed catalog, starts the HTTP server and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.loadCatalog(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// loadCatalog imports the configured CSV, or installs the built-in seeds
// into an empty catalog.
func (a *App) loadCatalog(ctx context.Context) error {
	if a.seeds == nil {
		return nil
	}
	if path := strings.TrimSpace(a.cfg.Tracker.SeedCatalogPath); path != "" {
		_, err := a.seeds.ImportFile(ctx, path)
		return err
	}
	_, err := a.seeds.EnsureDefaults(ctx)
	return err
}
