package managers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chrissnell/snowtiles/internal/log"
	"github.com/chrissnell/snowtiles/internal/storage"
	"github.com/chrissnell/snowtiles/internal/storage/logsink"
	"github.com/chrissnell/snowtiles/internal/storage/msgpack"
	"github.com/chrissnell/snowtiles/internal/storage/sqlite"
	"github.com/chrissnell/snowtiles/internal/storage/timescaledb"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
	"go.uber.org/zap"
)

const distributorBuffer = 20

// StorageManager holds our active telemetry sinks
type StorageManager struct {
	Engines             []StorageEngine
	SnapshotDistributor chan types.GridSnapshot
	Health              *storage.HealthManager

	latest   atomic.Pointer[types.GridSnapshot]
	dropped  atomic.Int64
	inflight atomic.Int64
	logger   *zap.SugaredLogger
}

// StorageEngine holds a sink's interface as well as a channel for passing
// snapshots to it
type StorageEngine struct {
	Name   string
	Engine storage.StorageEngineInterface
	C      chan<- types.GridSnapshot
}

// NewStorageManager creates a StorageManager populated with every sink present in
// the storage configuration. run describes the simulation run for sinks that
// record run metadata.
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c config.StorageData, run timescaledb.RunInfo, logger *zap.SugaredLogger) (*StorageManager, error) {
	if logger == nil {
		logger = log.GetSugaredLogger()
	}
	s := &StorageManager{
		SnapshotDistributor: make(chan types.GridSnapshot, distributorBuffer),
		Health:              storage.NewHealthManager(),
		logger:              logger,
	}

	if c.SQLite != nil {
		engine, err := sqlite.New(c.SQLite.Path, s.Health)
		if err != nil {
			return s, fmt.Errorf("could not add SQLite storage backend: %w", err)
		}
		s.AddEngine(ctx, wg, "sqlite", engine)
	}

	if c.TimescaleDB != nil {
		engine, err := timescaledb.New(ctx, c.TimescaleDB.ConnectionString, run, s.Health)
		if err != nil {
			return s, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
		s.AddEngine(ctx, wg, "timescaledb", engine)
	}

	if c.Msgpack != nil {
		engine, err := msgpack.New(c.Msgpack.Path, s.Health)
		if err != nil {
			return s, fmt.Errorf("could not add msgpack storage backend: %w", err)
		}
		s.AddEngine(ctx, wg, "msgpack", engine)
	}

	if c.Log != nil {
		s.AddEngine(ctx, wg, "log", logsink.New(c.Log.Every, logger, s.Health))
	}

	wg.Add(1)
	go s.startSnapshotDistributor(ctx, wg)

	return s, nil
}

// AddEngine starts a sink and registers it with the distributor. Engines must be
// added before the distributor starts.
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, name string, engine storage.StorageEngineInterface) {
	se := StorageEngine{Name: name, Engine: engine}
	se.C = engine.StartStorageEngine(ctx, wg)
	s.Engines = append(s.Engines, se)
	s.logger.Infof("enabled %s telemetry sink", name)
}

// Publish records snap as the latest snapshot and queues it for the sinks. It
// never blocks; when the queue is full the snapshot is dropped for the sinks but
// still becomes the latest.
func (s *StorageManager) Publish(snap types.GridSnapshot) {
	s.latest.Store(&snap)

	s.inflight.Add(1)
	select {
	case s.SnapshotDistributor <- snap:
	default:
		s.inflight.Add(-1)
		s.drop("distributor", snap.Tick)
	}
}

// Latest returns the most recently published snapshot
func (s *StorageManager) Latest() (types.GridSnapshot, bool) {
	p := s.latest.Load()
	if p == nil {
		return types.GridSnapshot{}, false
	}
	return *p, true
}

// Dropped returns how many sink deliveries were skipped because a queue was full
func (s *StorageManager) Dropped() int64 {
	return s.dropped.Load()
}

// GetAllHealth reports the health of every sink
func (s *StorageManager) GetAllHealth() map[string]storage.Health {
	return s.Health.GetAllHealth()
}

func (s *StorageManager) drop(where string, tick int64) {
	n := s.dropped.Add(1)
	if n == 1 || n%100 == 0 {
		s.logger.Warnf("%s queue full, dropped snapshot for tick %d (%d dropped so far)", where, tick, n)
	}
}

// startSnapshotDistributor receives snapshots from the simulation loop and fans
// them out to the sinks
func (s *StorageManager) startSnapshotDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case snap := <-s.SnapshotDistributor:
			for _, e := range s.Engines {
				select {
				case e.C <- snap:
				default:
					s.drop(e.Name, snap.Tick)
				}
			}
			s.inflight.Add(-1)
		case <-ctx.Done():
			return
		}
	}
}

// Drain waits up to timeout for queued snapshots to reach the sinks
func (s *StorageManager) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		pending := int(s.inflight.Load())
		for _, e := range s.Engines {
			pending += len(e.C)
		}
		if pending == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.logger.Warn("timed out waiting for telemetry sinks to drain")
}
