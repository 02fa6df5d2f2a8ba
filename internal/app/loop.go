package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/snowtiles/internal/forcing"
	"github.com/chrissnell/snowtiles/internal/grid"
	"github.com/chrissnell/snowtiles/internal/types"
	"go.uber.org/zap"
)

// maxConsecutiveFailures is how many ticks in a row may fail before the loop gives up
const maxConsecutiveFailures = 10

// Publisher receives a snapshot after every successful tick. Publish must not block.
type Publisher interface {
	Publish(types.GridSnapshot)
}

// Loop drives a grid with fixed steps of simulated time
type Loop struct {
	RunID    string
	Grid     *grid.Grid
	Forcing  forcing.Provider
	Sink     Publisher
	Start    time.Time
	Step     time.Duration
	Steps    int           // zero runs until ctx is cancelled
	Interval time.Duration // wall-clock time between ticks; zero runs flat out
	Logger   *zap.SugaredLogger
}

// Run ticks until Steps ticks have run or ctx is cancelled. A tick whose forcing
// lookup or validation fails leaves the grid unchanged and is skipped; the loop
// fails after maxConsecutiveFailures of them in a row.
func (l *Loop) Run(ctx context.Context) error {
	if l.Grid == nil || !l.Grid.Built() {
		return &types.ConfigurationError{Field: "grid", Reason: "loop needs a built grid"}
	}
	if l.Step <= 0 {
		return &types.ConfigurationError{Field: "simulation.step", Reason: "must be positive"}
	}
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var ticker *time.Ticker
	if l.Interval > 0 {
		ticker = time.NewTicker(l.Interval)
		defer ticker.Stop()
	}

	dt := l.Step.Hours() / 24
	failures := 0

	for n := 0; l.Steps == 0 || n < l.Steps; n++ {
		if err := ctx.Err(); err != nil {
			return nil
		}

		stepStart := l.Start.Add(time.Duration(n) * l.Step)
		snap, err := l.tick(ctx, n, stepStart, dt)
		switch {
		case err == nil:
			failures = 0
			if l.Sink != nil {
				l.Sink.Publish(snap)
			}
		case errors.Is(err, context.Canceled):
			return nil
		default:
			failures++
			logger.Warnf("skipping step at %s: %v", stepStart.Format(time.RFC3339), err)
			if failures >= maxConsecutiveFailures {
				return fmt.Errorf("%d consecutive failed ticks, last: %w", failures, err)
			}
		}

		if ticker != nil && (l.Steps == 0 || n+1 < l.Steps) {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return nil
			}
		}
	}

	logger.Infof("completed %d steps", l.Steps)
	return nil
}

// tick advances the grid over [stepStart, stepStart+Step) using the forcing in
// effect at stepStart
func (l *Loop) tick(ctx context.Context, n int, stepStart time.Time, dt float64) (types.GridSnapshot, error) {
	f, err := l.Forcing.Forcing(ctx, stepStart)
	if err != nil {
		return types.GridSnapshot{}, fmt.Errorf("forcing: %w", err)
	}
	if err := l.Grid.Tick(dt, f); err != nil {
		return types.GridSnapshot{}, err
	}

	rows, cols := l.Grid.Dims()
	tiles := l.Grid.Snapshot()
	return types.GridSnapshot{
		RunID:   l.RunID,
		Tick:    l.Grid.Ticks(),
		SimTime: stepStart.Add(l.Step),
		Rows:    rows,
		Cols:    cols,
		Forcing: f,
		Tiles:   tiles,
		Summary: grid.Summarize(tiles),
	}, nil
}
