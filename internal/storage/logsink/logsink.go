// Package logsink is a telemetry sink that logs a grid summary every few ticks.
package logsink

import (
	"context"
	"sync"

	"github.com/chrissnell/snowtiles/internal/log"
	"github.com/chrissnell/snowtiles/internal/storage"
	"github.com/chrissnell/snowtiles/internal/types"
	"go.uber.org/zap"
)

// Storage logs every Nth snapshot
type Storage struct {
	every  int64
	logger *zap.SugaredLogger
	health *storage.HealthManager
}

// New returns a log sink. every < 1 logs every tick; a nil logger uses the
// process logger.
func New(every int, logger *zap.SugaredLogger, health *storage.HealthManager) *Storage {
	if every < 1 {
		every = 1
	}
	if logger == nil {
		logger = log.GetSugaredLogger()
	}
	return &Storage{every: int64(every), logger: logger, health: health}
}

// StartStorageEngine creates a goroutine loop to receive snapshots and log them
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.GridSnapshot {
	log.Info("starting log storage engine...")
	c := make(chan types.GridSnapshot, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		storage.ProcessSnapshots(ctx, c, s.StoreSnapshot, "log", s.health)
	}()
	return c
}

// StoreSnapshot logs the snapshot if its tick is due
func (s *Storage) StoreSnapshot(snap types.GridSnapshot) error {
	if !s.due(snap.Tick) {
		return nil
	}
	sum := snap.Summary
	s.logger.Infow("tick",
		"run", snap.RunID,
		"tick", snap.Tick,
		"sim_time", snap.SimTime,
		"air_temperature", snap.Forcing.AirTemperature,
		"precipitation", snap.Forcing.Precipitation,
		"snow_covered", sum.SnowCovered,
		"tiles", sum.Tiles,
		"mean_swe_mm", sum.SWE.Mean,
		"max_swe_mm", sum.SWE.Max,
		"mean_depth_mm", sum.SnowDepth.Mean,
		"melt_mm", sum.TotalMelt,
		"runoff_mm", sum.TotalRunoff,
	)
	return nil
}

func (s *Storage) due(tick int64) bool {
	return tick%s.every == 0
}
