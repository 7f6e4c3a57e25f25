package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ComputeOracle/internal/domain/models"
	domrepo "ComputeOracle/internal/domain/repository"
	"ComputeOracle/internal/usecase"
	pkgch "ComputeOracle/pkg/clickhouse"
	"ComputeOracle/pkg/config"
	xhttp "ComputeOracle/pkg/http"
	applogger "ComputeOracle/pkg/logger"
	"ComputeOracle/pkg/queue"
	"ComputeOracle/pkg/store"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	store      *store.RedisStore
	chClient   *pkgch.Client
	httpServer *xhttp.Server
	queue      *queue.RedisQueue
	publisher  domrepo.EventPublisher
	orch       *usecase.Orchestrator
	replay     *usecase.ReplayEngine
}

// New creates a new App instance with all dependencies. chClient may be nil
// when the archive is disabled.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	st *store.RedisStore,
	chClient *pkgch.Client,
	httpServer *xhttp.Server,
	q *queue.RedisQueue,
	publisher domrepo.EventPublisher,
	orch *usecase.Orchestrator,
	replay *usecase.ReplayEngine,
) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		chClient:   chClient,
		httpServer: httpServer,
		queue:      q,
		publisher:  publisher,
		orch:       orch,
		replay:     replay,
	}
}

// Run starts the replay workers and the HTTP server and blocks until ctx is
// cancelled or the process is interrupted.
func (a *App) Run(ctx context.Context) error {
	if err := a.queue.Start(); err != nil {
		return fmt.Errorf("start queue: %w", err)
	}
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return errors.Join(err, a.Close())
	}
	a.logger.Info("compute oracle serving",
		applogger.String("env", a.cfg.Environment),
		applogger.String("target", a.orch.Target().String()),
		applogger.Int("replay_workers", a.cfg.Replay.Workers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	}
	return a.Close()
}

// RunCycle runs one live cycle without starting the server.
func (a *App) RunCycle(ctx context.Context, opts usecase.CycleOptions) (*models.CycleRecord, error) {
	return a.orch.RunCycle(ctx, opts)
}

// RunReplay runs a replay in the calling goroutine.
func (a *App) RunReplay(ctx context.Context, start, end time.Time) (*models.ReplayStatus, error) {
	return a.replay.Run(ctx, "", start, end)
}

// Close stops the server and workers, then releases every client.
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.queue != nil {
		if err := a.queue.Stop(ctx); err != nil {
			a.logger.Warn("queue stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("event publisher close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("redis close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
