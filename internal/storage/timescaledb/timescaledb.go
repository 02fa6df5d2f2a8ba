// Package timescaledb is a telemetry sink that writes tile states into a
// TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/snowtiles/internal/database"
	"github.com/chrissnell/snowtiles/internal/log"
	"github.com/chrissnell/snowtiles/internal/storage"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/jackc/pgtype"
	"gorm.io/gorm"
)

const batchSize = 500

// RunInfo describes the run whose snapshots this sink receives
type RunInfo struct {
	RunID     string
	StartedAt time.Time
	Rows      int
	Cols      int
	// Config is serialized into the run's jsonb config column.
	Config interface{}
}

// Storage holds the connection for a TimescaleDB sink
type Storage struct {
	TimescaleDBConn *gorm.DB
	health          *storage.HealthManager
}

// StartStorageEngine creates a goroutine loop to receive snapshots and send
// them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.GridSnapshot {
	log.Info("starting TimescaleDB storage engine...")
	c := make(chan types.GridSnapshot, 10)
	storage.StartHealthMonitor(ctx, t.health, "timescaledb", t, time.Minute)
	// Writes already dequeued finish even if ctx is cancelled mid-write.
	writeCtx := context.WithoutCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		storage.ProcessSnapshots(ctx, c, func(s types.GridSnapshot) error {
			return t.StoreSnapshot(writeCtx, s)
		}, "timescaledb", t.health)
	}()
	return c
}

// StoreSnapshot stores every tile of a snapshot
func (t *Storage) StoreSnapshot(ctx context.Context, s types.GridSnapshot) error {
	records := TileRecords(s)
	if len(records) == 0 {
		return nil
	}
	err := t.TimescaleDBConn.WithContext(ctx).CreateInBatches(records, batchSize).Error
	if err != nil {
		log.Error("could not store snapshot:", err)
		return err
	}
	return nil
}

// TileRecords flattens a snapshot into one row per tile
func TileRecords(s types.GridSnapshot) []database.TileStateRecord {
	records := make([]database.TileStateRecord, 0, len(s.Tiles))
	for _, tile := range s.Tiles {
		records = append(records, database.TileStateRecord{
			Time:               s.SimTime,
			RunID:              s.RunID,
			Tick:               s.Tick,
			Row:                tile.Row,
			Col:                tile.Col,
			Surface:            tile.Surface,
			SWE:                tile.SWE,
			SnowDepth:          tile.SnowDepth,
			SnowDensity:        tile.SnowDensity,
			SurfaceTemperature: tile.SurfaceTemperature,
			GroundTemperature:  tile.GroundTemperature,
			Melt:               tile.Melt,
			Runoff:             tile.Runoff,
		})
	}
	return records
}

// RunRecord converts run metadata into its table row
func RunRecord(run RunInfo) (database.SimulationRun, error) {
	r := database.SimulationRun{
		RunID:     run.RunID,
		StartedAt: run.StartedAt,
		Rows:      run.Rows,
		Cols:      run.Cols,
	}
	if run.Config == nil {
		r.Config = pgtype.JSONB{Status: pgtype.Null}
		return r, nil
	}
	if err := r.Config.Set(run.Config); err != nil {
		return r, fmt.Errorf("encoding run config: %w", err)
	}
	return r, nil
}

// CheckHealth pings the database and runs a trivial query
func (t *Storage) CheckHealth() *storage.Health {
	if t.TimescaleDBConn == nil {
		return storage.CreateHealth(storage.StatusUnhealthy, "No database connection", nil)
	}
	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return storage.CreateHealth(storage.StatusUnhealthy, "Failed to get underlying database connection", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return storage.CreateHealth(storage.StatusUnhealthy, "Database ping failed", err)
	}
	var result int
	if err := t.TimescaleDBConn.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return storage.CreateHealth(storage.StatusUnhealthy, "Database query test failed", err)
	}
	return storage.CreateHealth(storage.StatusHealthy, "TimescaleDB operational - ping: OK, query test: OK", nil)
}

// New sets up a new TimescaleDB sink and records the run
func New(ctx context.Context, connectionString string, run RunInfo, health *storage.HealthManager) (*Storage, error) {
	var err error
	t := Storage{health: health}

	t.TimescaleDBConn, err = database.CreateConnection(connectionString)
	if err != nil {
		return nil, err
	}

	steps := []struct {
		desc string
		sql  string
	}{
		{"creating TimescaleDB extension", createExtensionSQL},
		{"creating simulation_runs table", createRunsTableSQL},
		{"creating tile_states table", createTileStatesTableSQL},
		{"creating hypertable", createHypertableSQL},
		{"creating tile index", createTileIndexSQL},
		{"creating 1h surface view", createSurface1hViewSQL},
		{"adding 1h aggregation policy", addAggregationPolicy1hSQL},
	}
	for _, s := range steps {
		log.Infof("%s...", s.desc)
		if err := t.TimescaleDBConn.WithContext(ctx).Exec(s.sql).Error; err != nil {
			log.Warnf("warning: failed %s: %v", s.desc, err)
			return nil, fmt.Errorf("%s: %w", s.desc, err)
		}
	}

	r, err := RunRecord(run)
	if err != nil {
		return nil, err
	}
	if err := t.TimescaleDBConn.WithContext(ctx).Create(&r).Error; err != nil {
		return nil, fmt.Errorf("recording run %s: %w", run.RunID, err)
	}
	log.Infof("recorded simulation run %s", run.RunID)

	return &t, nil
}
