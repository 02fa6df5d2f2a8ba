// Package app wires configuration, the grid, forcing, telemetry sinks and the
// API together and runs the simulation.
package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chrissnell/snowtiles/internal/forcing"
	"github.com/chrissnell/snowtiles/internal/managers"
	"github.com/chrissnell/snowtiles/internal/storage/timescaledb"
	"github.com/chrissnell/snowtiles/pkg/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// drainTimeout bounds how long shutdown waits for queued snapshots
const drainTimeout = 5 * time.Second

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
	runID          string
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &App{
		configProvider: configProvider,
		logger:         logger,
		runID:          uuid.NewString(),
	}
}

// RunID identifies this run in every published snapshot
func (a *App) RunID() string {
	return a.runID
}

// Run starts the application and blocks until the configured number of steps has
// run or a shutdown signal arrives
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	now := time.Now()
	timing, err := SimulationTiming(cfg.Simulation, now)
	if err != nil {
		return err
	}

	g, err := BuildGrid(cfg, a.logger)
	if err != nil {
		return err
	}
	rows, cols := g.Dims()
	a.logger.Infow("grid built", "run", a.runID, "rows", rows, "cols", cols,
		"melt_model", cfg.Simulation.MeltModel, "workers", cfg.Simulation.Workers)

	provider, err := forcing.New(ctx, cfg.Forcing, timing.Start, a.logger)
	if err != nil {
		return err
	}
	defer provider.Close()

	run := timescaledb.RunInfo{RunID: a.runID, StartedAt: now, Rows: rows, Cols: cols, Config: cfg}
	storageManager, err := managers.NewStorageManager(ctx, &wg, cfg.Storage, run, a.logger)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}

	cm, err := managers.NewControllerManager(ctx, &wg, cfg.Controllers, storageManager, a.logger)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}
	if err := cm.StartControllers(); err != nil {
		cancel()
		wg.Wait()
		return err
	}

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			a.logger.Info("shutdown signal received, initiating graceful shutdown...")
			cancel()
		case <-ctx.Done():
		}
	}()

	loop := &Loop{
		RunID:    a.runID,
		Grid:     g,
		Forcing:  provider,
		Sink:     storageManager,
		Start:    timing.Start,
		Step:     timing.Step,
		Steps:    cfg.Simulation.Steps,
		Interval: timing.Interval,
		Logger:   a.logger,
	}

	a.logger.Infof("simulation %s started at %s, step %s", a.runID, timing.Start.Format(time.RFC3339), timing.Step)
	loopErr := loop.Run(ctx)

	storageManager.Drain(drainTimeout)
	if dropped := storageManager.Dropped(); dropped > 0 {
		a.logger.Warnf("%d snapshot deliveries were dropped by full sink queues", dropped)
	}

	// With a finite run and an API, keep serving the final state until signalled.
	if loopErr == nil && ctx.Err() == nil && len(cfg.Controllers) > 0 {
		a.logger.Info("simulation finished; serving final state until shutdown")
		<-ctx.Done()
	}

	cancel()

	// Wait for all workers to terminate
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")

	return loopErr
}
