// Package app wires configuration, logging, storage, the domain service and
// the HTTP server together and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"warbler/internal/config"
	"warbler/internal/logging"
	"warbler/internal/metrics"
	"warbler/internal/service"
	"warbler/internal/store"
	"warbler/internal/web"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger *logrus.Logger
	store  *store.Store
	server *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Level:        cfg.LogLevel,
		LogstashAddr: cfg.LogstashAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	st, err := store.Open(store.Options{
		DSN:      cfg.DSN(),
		Postgres: cfg.IsPostgres(),
		Debug:    cfg.SQLDebug,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("db migrate error: %w", err)
	}

	svc := service.New(st, logger, service.Options{
		BcryptCost:          cfg.BcryptCost,
		RequireMessageOwner: cfg.RequireMessageOwner,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler, err := web.NewRouter(web.Deps{
		Service:  svc,
		Logger:   logger,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Health:   st,
	}, web.Options{
		SecretKey:         cfg.SecretKey,
		SessionMaxAge:     cfg.SessionMaxAge,
		SecureCookies:     cfg.SecureCookies,
		CSRFEnabled:       cfg.CSRFEnabled,
		ProtectUserDelete: cfg.ProtectUserDelete,
		SlowRequest:       cfg.SlowRequest,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("router init error: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &App{config: cfg, logger: logger, store: st, server: server}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.WithField("signal", s.String()).Info("Shutdown signal received")
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives,
// then drains in-flight requests and closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(ctx, cancelFunc)

	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		_ = app.store.Close()
		return fmt.Errorf("listen %s: %w", app.server.Addr, err)
	}
	app.logger.WithField("addr", ln.Addr().String()).Info("Server starting")

	var (
		wg       sync.WaitGroup
		serveErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(shutdownCtx); err != nil {
		app.logger.WithError(err).Error("Graceful shutdown failed")
	}
	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.WithError(err).Error("Closing database failed")
	}
	app.logger.Info("Server stopped")

	return serveErr
}
