// Package grid owns a rectangular set of snow columns and advances them together.
package grid

import (
	"context"
	"fmt"

	"github.com/chrissnell/snowtiles/internal/snowpack"
	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ColumnFactory builds the column for one tile once its surface type is known.
type ColumnFactory func(row, col int, t surface.Type) (*snowpack.Column, error)

// DefaultFactory gives every tile the stock surface parameters for its type and the
// same column tunables and melt model.
func DefaultFactory(p snowpack.Params, model snowpack.MeltModel) ColumnFactory {
	return func(row, col int, t surface.Type) (*snowpack.Column, error) {
		return snowpack.NewColumn(surface.DefaultParams(t), p, model)
	}
}

// Options tunes how a grid runs its ticks.
type Options struct {
	// Workers > 1 plans columns concurrently. Columns share no mutable state, so
	// the result is identical to a serial tick.
	Workers int
	Logger  *zap.SugaredLogger
}

// Grid is a rows x cols set of columns stored row-major. A Grid starts Unbuilt;
// Build moves it to Built and Reset moves it back.
type Grid struct {
	rows, cols int
	columns    []*snowpack.Column
	built      bool
	ticks      int64
	elapsed    float64 // days
	last       []snowpack.Result

	opts   Options
	logger *zap.SugaredLogger
}

// New returns an Unbuilt grid.
func New(opts Options) *Grid {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Grid{opts: opts, logger: logger}
}

// Build allocates rows*cols columns, asking zones for each tile's surface type and
// factory for the column itself. It fails without side effects on bad dimensions,
// a tile with no surface, a factory error, or a grid that is already built.
func (g *Grid) Build(rows, cols int, zones surface.ZoneFunc, factory ColumnFactory) error {
	if g.built {
		return &types.ConfigurationError{Field: "grid", Reason: "already built; Reset before rebuilding"}
	}
	if rows <= 0 || cols <= 0 {
		return &types.ConfigurationError{Field: "grid.dimensions", Reason: fmt.Sprintf("rows and cols must be positive, got %dx%d", rows, cols)}
	}
	if zones == nil {
		return &types.ConfigurationError{Field: "grid.zones", Reason: "no zone assignment"}
	}
	if factory == nil {
		factory = DefaultFactory(snowpack.DefaultParams(), snowpack.DegreeDay{})
	}

	columns := make([]*snowpack.Column, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			t, ok := zones(r, c)
			if !ok || !t.Valid() {
				return &types.ConfigurationError{Field: "grid.zones", Reason: fmt.Sprintf("no surface type for tile (%d,%d)", r, c)}
			}
			col, err := factory(r, c, t)
			if err != nil {
				return fmt.Errorf("tile (%d,%d): %w", r, c, err)
			}
			columns[r*cols+c] = col
		}
	}

	g.rows, g.cols = rows, cols
	g.columns = columns
	g.last = make([]snowpack.Result, len(columns))
	g.ticks, g.elapsed = 0, 0
	g.built = true

	g.logger.Debugf("built %dx%d grid", rows, cols)
	return nil
}

// Reset discards every column and returns the grid to Unbuilt.
func (g *Grid) Reset() {
	g.rows, g.cols = 0, 0
	g.columns = nil
	g.last = nil
	g.ticks, g.elapsed = 0, 0
	g.built = false
}

// Built reports whether the grid holds columns.
func (g *Grid) Built() bool { return g.built }

// Dims returns the grid dimensions; zero when Unbuilt.
func (g *Grid) Dims() (rows, cols int) { return g.rows, g.cols }

// Ticks returns the number of completed ticks since Build.
func (g *Grid) Ticks() int64 { return g.ticks }

// Elapsed returns the simulated days since Build.
func (g *Grid) Elapsed() float64 { return g.elapsed }

// Tick advances every column by dt days under the same forcing. Either every
// column advances or, on error, none does.
func (g *Grid) Tick(dt float64, f types.Forcing) error {
	if !g.built {
		return errNotBuilt
	}
	if err := snowpack.ValidateStep(dt); err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}

	plans, err := g.plan(dt, f)
	if err != nil {
		return err
	}

	for i, c := range g.columns {
		c.Commit(plans[i])
		g.last[i] = plans[i].Result
	}
	g.ticks++
	g.elapsed += dt

	if g.logger.Desugar().Core().Enabled(zap.DebugLevel) {
		s := g.Summary()
		g.logger.Debugw("tick",
			"tick", g.ticks,
			"air_temperature", f.AirTemperature,
			"mean_swe_mm", s.SWE.Mean,
			"mean_depth_mm", s.SnowDepth.Mean,
			"snow_covered", s.SnowCovered,
		)
	}
	return nil
}

func (g *Grid) plan(dt float64, f types.Forcing) ([]snowpack.Plan, error) {
	plans := make([]snowpack.Plan, len(g.columns))

	if g.opts.Workers <= 1 {
		for i, c := range g.columns {
			p, err := c.Plan(dt, f)
			if err != nil {
				return nil, g.wrapTileError(i, err)
			}
			plans[i] = p
		}
		return plans, nil
	}

	eg, _ := errgroup.WithContext(context.Background())
	eg.SetLimit(g.opts.Workers)
	for i, c := range g.columns {
		eg.Go(func() error {
			p, err := c.Plan(dt, f)
			if err != nil {
				return g.wrapTileError(i, err)
			}
			plans[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (g *Grid) wrapTileError(i int, err error) error {
	return fmt.Errorf("tile (%d,%d): %w", i/g.cols, i%g.cols, err)
}

// Query returns a snapshot of the tile at (row, col).
func (g *Grid) Query(row, col int) (types.TileState, error) {
	if !g.built {
		return types.TileState{}, errNotBuilt
	}
	if row < 0 || col < 0 || row >= g.rows || col >= g.cols {
		return types.TileState{}, &types.OutOfRangeError{Row: row, Col: col, Rows: g.rows, Cols: g.cols}
	}
	return g.tileState(row*g.cols + col), nil
}

// Column exposes the column at (row, col) for callers that need its parameters.
func (g *Grid) Column(row, col int) (*snowpack.Column, error) {
	if !g.built {
		return nil, errNotBuilt
	}
	if row < 0 || col < 0 || row >= g.rows || col >= g.cols {
		return nil, &types.OutOfRangeError{Row: row, Col: col, Rows: g.rows, Cols: g.cols}
	}
	return g.columns[row*g.cols+col], nil
}

// Snapshot copies the state of every tile in row-major order.
func (g *Grid) Snapshot() []types.TileState {
	tiles := make([]types.TileState, len(g.columns))
	for i := range g.columns {
		tiles[i] = g.tileState(i)
	}
	return tiles
}

func (g *Grid) tileState(i int) types.TileState {
	c := g.columns[i]
	s := c.State()
	last := g.last[i]

	return types.TileState{
		Row:                i / g.cols,
		Col:                i % g.cols,
		Surface:            c.Surface().Type.String(),
		SWE:                s.SWE,
		SnowDepth:          s.SnowDepth,
		SnowDensity:        s.SnowDensity,
		SurfaceTemperature: s.SurfaceTemperature,
		GroundTemperature:  s.GroundTemperature,
		Melt:               last.Melt,
		Runoff:             last.Runoff,
	}
}

var errNotBuilt = &types.ConfigurationError{Field: "grid", Reason: "grid has not been built"}
