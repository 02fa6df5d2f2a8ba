// Package sqlite is a telemetry sink that writes every tile of every tick to a
// local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/snowtiles/internal/log"
	"github.com/chrissnell/snowtiles/internal/storage"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Schema is the sink's embedded table layout
var Schema = migrate.Schema{
	Name:  "sink",
	FS:    migrationsFS,
	Dir:   "migrations",
	Table: "sink_schema_migrations",
}

const insertTileSQL = `INSERT INTO tile_states
    (run_id, tick, sim_time, tile_row, tile_col, surface, swe, snow_depth, snow_density,
     surface_temperature, ground_temperature, melt, runoff)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertSummarySQL = `INSERT INTO grid_summaries
    (run_id, tick, sim_time, air_temperature, precipitation, shortwave, snow_covered,
     mean_swe, total_swe, mean_snow_depth, total_melt, total_runoff)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Storage writes snapshots into SQLite
type Storage struct {
	db     *sql.DB
	health *storage.HealthManager

	mu   sync.Mutex
	runs map[string]bool
}

// New opens (creating if needed) the database at path and brings its schema up to date
func New(path string, health *storage.HealthManager) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite sink %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Warnf("could not enable WAL on %s: %v", path, err)
	}

	m, err := migrate.New(context.Background(), db, Schema, log.GetSugaredLogger())
	if err == nil {
		_, err = m.Up(context.Background())
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating sqlite sink %s: %w", path, err)
	}

	return &Storage{db: db, health: health, runs: make(map[string]bool)}, nil
}

// StartStorageEngine creates a goroutine loop to receive snapshots and write them
// to SQLite
func (s *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.GridSnapshot {
	log.Info("starting SQLite storage engine...")
	c := make(chan types.GridSnapshot, 10)
	// Writes already dequeued finish even if ctx is cancelled mid-write.
	writeCtx := context.WithoutCancel(ctx)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer s.Close()
		storage.ProcessSnapshots(ctx, c, func(snap types.GridSnapshot) error {
			return s.StoreSnapshot(writeCtx, snap)
		}, "sqlite", s.health)
	}()
	return c
}

// StoreSnapshot writes one tick in a single transaction
func (s *Storage) StoreSnapshot(ctx context.Context, snap types.GridSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ensureRun(ctx, tx, snap); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, insertTileSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	simTime := snap.SimTime.UTC()
	for _, t := range snap.Tiles {
		_, err := stmt.ExecContext(ctx, snap.RunID, snap.Tick, simTime, t.Row, t.Col, t.Surface,
			t.SWE, t.SnowDepth, t.SnowDensity, t.SurfaceTemperature, t.GroundTemperature, t.Melt, t.Runoff)
		if err != nil {
			return fmt.Errorf("inserting tile (%d,%d): %w", t.Row, t.Col, err)
		}
	}

	sum := snap.Summary
	_, err = tx.ExecContext(ctx, insertSummarySQL, snap.RunID, snap.Tick, simTime,
		snap.Forcing.AirTemperature, snap.Forcing.Precipitation, snap.Forcing.Shortwave,
		sum.SnowCovered, sum.SWE.Mean, sum.SWE.Total, sum.SnowDepth.Mean, sum.TotalMelt, sum.TotalRunoff)
	if err != nil {
		return fmt.Errorf("inserting summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.mu.Lock()
	s.runs[snap.RunID] = true
	s.mu.Unlock()
	return nil
}

func (s *Storage) ensureRun(ctx context.Context, tx *sql.Tx, snap types.GridSnapshot) error {
	s.mu.Lock()
	known := s.runs[snap.RunID]
	s.mu.Unlock()
	if known {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO simulation_runs (run_id, started_at, grid_rows, grid_cols) VALUES (?, ?, ?, ?)",
		snap.RunID, time.Now().UTC(), snap.Rows, snap.Cols)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", snap.RunID, err)
	}
	return nil
}

// LatestTick returns the highest tick stored for a run
func (s *Storage) LatestTick(ctx context.Context, runID string) (int64, error) {
	var tick sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(tick) FROM grid_summaries WHERE run_id = ?", runID).Scan(&tick)
	if err != nil {
		return 0, err
	}
	if !tick.Valid {
		return 0, sql.ErrNoRows
	}
	return tick.Int64, nil
}

// Tiles reads back every tile of one tick in row-major order
func (s *Storage) Tiles(ctx context.Context, runID string, tick int64) ([]types.TileState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tile_row, tile_col, surface, swe, snow_depth, snow_density,
        surface_temperature, ground_temperature, melt, runoff
        FROM tile_states WHERE run_id = ? AND tick = ? ORDER BY tile_row, tile_col`, runID, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiles []types.TileState
	for rows.Next() {
		var t types.TileState
		if err := rows.Scan(&t.Row, &t.Col, &t.Surface, &t.SWE, &t.SnowDepth, &t.SnowDensity,
			&t.SurfaceTemperature, &t.GroundTemperature, &t.Melt, &t.Runoff); err != nil {
			return nil, err
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

// TileHistory returns the SWE of one tile at every stored tick, oldest first
func (s *Storage) TileHistory(ctx context.Context, runID string, row, col int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT swe FROM tile_states WHERE run_id = ? AND tile_row = ? AND tile_col = ? ORDER BY tick",
		runID, row, col)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var swe []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		swe = append(swe, v)
	}
	return swe, rows.Err()
}

// CheckHealth pings the database
func (s *Storage) CheckHealth() *storage.Health {
	if err := s.db.Ping(); err != nil {
		return storage.CreateHealth(storage.StatusUnhealthy, "ping failed", err)
	}
	return storage.CreateHealth(storage.StatusHealthy, "SQLite sink operational", nil)
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}
