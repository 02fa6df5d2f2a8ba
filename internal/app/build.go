package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/snowtiles/internal/grid"
	"github.com/chrissnell/snowtiles/internal/snowpack"
	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
	"go.uber.org/zap"
)

// BuildGrid builds a grid from the grid, surfaces, column and simulation sections
// of a configuration.
func BuildGrid(c *config.ConfigData, logger *zap.SugaredLogger) (*grid.Grid, error) {
	zones, err := Zones(c.Grid)
	if err != nil {
		return nil, err
	}
	params, err := ColumnParams(c.Column)
	if err != nil {
		return nil, err
	}
	surfaces, err := SurfaceParams(c.Surfaces)
	if err != nil {
		return nil, err
	}
	model, err := snowpack.NewMeltModel(snowpack.ModelType(c.Simulation.MeltModel))
	if err != nil {
		return nil, err
	}

	factory := func(row, col int, t surface.Type) (*snowpack.Column, error) {
		return snowpack.NewColumn(surfaces[t], params, model)
	}

	g := grid.New(grid.Options{Workers: c.Simulation.Workers, Logger: logger})
	if err := g.Build(c.Grid.Rows, c.Grid.Cols, zones, factory); err != nil {
		return nil, err
	}
	return g, nil
}

// Zones returns the zone rule for a grid section
func Zones(g config.GridData) (surface.ZoneFunc, error) {
	switch strings.ToLower(g.Layout) {
	case "", "banded":
		return surface.BandedZones(g.Rows, g.Cols, g.Edge, g.Band), nil
	case "uniform":
		t, err := surface.ParseType(g.Surface)
		if err != nil {
			return nil, err
		}
		return surface.UniformZones(t), nil
	case "map":
		return surface.LayoutZones(g.Map), nil
	}
	return nil, &types.ConfigurationError{Field: "grid.layout", Reason: fmt.Sprintf("unknown layout %q", g.Layout)}
}

// ColumnParams overlays configured tunables on the defaults
func ColumnParams(c config.ColumnData) (snowpack.Params, error) {
	p := snowpack.DefaultParams()

	overrides := []struct {
		src *float64
		dst *float64
	}{
		{c.DegreeDayFactor, &p.DegreeDayFactor},
		{c.MeltTempThreshold, &p.MeltTempThreshold},
		{c.RainSnowThreshold, &p.RainSnowThreshold},
		{c.RetentionFraction, &p.RetentionFraction},
		{c.InitialSnowDensity, &p.InitialSnowDensity},
		{c.SettledSnowDensity, &p.SettledSnowDensity},
		{c.DensificationRate, &p.DensificationRate},
		{c.ThermalResponsiveness, &p.ThermalResponsiveness},
		{c.AerodynamicResistance, &p.AerodynamicResistance},
		{c.MinConductionDepth, &p.MinConductionDepth},
	}
	for _, o := range overrides {
		if o.src != nil {
			*o.dst = *o.src
		}
	}

	var err error
	if p.GroundFluxSign, err = snowpack.ParseFluxSign(c.GroundFluxSign); err != nil {
		return p, err
	}
	if p.LatentFluxSign, err = snowpack.ParseFluxSign(c.LatentFluxSign); err != nil {
		return p, err
	}
	return p, p.Validate()
}

// SurfaceParams returns the parameters for every surface type, with configured
// overrides applied to the stock values.
func SurfaceParams(list []config.SurfaceData) (map[surface.Type]surface.Params, error) {
	out := make(map[surface.Type]surface.Params, len(surface.Types))
	for _, t := range surface.Types {
		out[t] = surface.DefaultParams(t)
	}

	for _, sd := range list {
		t, err := surface.ParseType(sd.Type)
		if err != nil {
			return nil, err
		}
		p := out[t]
		if sd.Albedo != nil {
			p.Albedo = *sd.Albedo
		}
		if sd.AirEmissivity != nil {
			p.AirEmissivity = *sd.AirEmissivity
		}
		if sd.SnowEmissivity != nil {
			p.SnowEmissivity = *sd.SnowEmissivity
		}
		if sd.Ground != nil {
			switch strings.ToLower(sd.Ground.Model) {
			case "linear":
				p.Ground = surface.LinearGround{SolarCoef: sd.Ground.SolarCoef, Offset: sd.Ground.Offset}
			case "asphalt":
				p.Ground = surface.DefaultAsphalt
			default:
				return nil, &types.ConfigurationError{Field: "surfaces.ground.model", Reason: fmt.Sprintf("unknown ground model %q", sd.Ground.Model)}
			}
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("surface %s: %w", t, err)
		}
		out[t] = p
	}
	return out, nil
}

// Timing is the parsed clock of a run.
type Timing struct {
	Start    time.Time
	Step     time.Duration
	Interval time.Duration
}

// SimulationTiming parses the simulation section's start, step and interval.
// An empty start means now.
func SimulationTiming(sim config.SimulationData, now time.Time) (Timing, error) {
	var t Timing
	var err error

	if t.Start, err = sim.StartTime(now); err != nil {
		return t, &types.ConfigurationError{Field: "simulation.start", Reason: err.Error()}
	}
	if t.Step, err = sim.StepDuration(); err != nil {
		return t, &types.ConfigurationError{Field: "simulation.step", Reason: err.Error()}
	}
	if t.Step <= 0 {
		return t, &types.ConfigurationError{Field: "simulation.step", Reason: "must be positive"}
	}
	if t.Interval, err = sim.IntervalDuration(); err != nil {
		return t, &types.ConfigurationError{Field: "simulation.interval", Reason: err.Error()}
	}
	if t.Interval < 0 {
		return t, &types.ConfigurationError{Field: "simulation.interval", Reason: "must not be negative"}
	}
	return t, nil
}
