// Package snowpack integrates the mass balance of a single snow column.
//
// A Column holds SWE (mm), depth (mm), bulk density (kg/m³) and snow surface
// temperature (°C). Each call to Advance applies one step of length dt days:
// snowfall is added, potential melt comes from the column's MeltModel, a share of
// SWE is retained as liquid, the remainder runs off, and the result is clamped at
// zero SWE. Depth is always derived from SWE and density.
package snowpack

import (
	"math"

	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
)

// State is the mutable part of a column.
type State struct {
	SWE                float64 // mm
	SnowDepth          float64 // mm
	SnowDensity        float64 // kg/m³
	SurfaceTemperature float64 // °C
	GroundTemperature  float64 // °C, as of the last step
}

// Result describes what one step did.
type Result struct {
	SWE       float64 // mm after the step
	SnowDepth float64 // mm after the step

	Snowfall   float64 // mm/day entering as snow
	Rainfall   float64 // mm/day falling as rain, not stored
	MeltRate   float64 // mm/day potential melt
	Retained   float64 // mm held as liquid at the start of the step
	RunoffRate float64 // mm/day

	Melt   float64 // mm actually melted this step
	Runoff float64 // mm actually removed as runoff this step

	Fluxes Fluxes
}

// Plan is a computed but uncommitted step.
type Plan struct {
	next   State
	Result Result
}

// Next returns the state the column will hold once the plan is committed.
func (p Plan) Next() State { return p.next }

// Column is one tile's snowpack.
type Column struct {
	state   State
	params  Params
	surface surface.Params
	model   MeltModel
}

// NewColumn creates an empty column over the given surface. A nil model selects
// degree-day melt.
func NewColumn(sp surface.Params, p Params, model MeltModel) (*Column, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := sp.Validate(); err != nil {
		return nil, err
	}
	if model == nil {
		model = DegreeDay{}
	}

	return &Column{
		state: State{
			SnowDensity: p.InitialSnowDensity,
		},
		params:  p,
		surface: sp,
		model:   model,
	}, nil
}

// State returns a copy of the column state.
func (c *Column) State() State { return c.state }

// Params returns the column tunables.
func (c *Column) Params() Params { return c.params }

// Surface returns the surface the column sits on.
func (c *Column) Surface() surface.Params { return c.surface }

// Model returns the melt model.
func (c *Column) Model() MeltModel { return c.model }

// Advance plans and commits one step. On error the column is unchanged.
func (c *Column) Advance(dt float64, f types.Forcing) (Result, error) {
	p, err := c.Plan(dt, f)
	if err != nil {
		return Result{}, err
	}
	c.Commit(p)
	return p.Result, nil
}

// Commit applies a plan produced by Plan on the same column.
func (c *Column) Commit(p Plan) {
	c.state = p.next
}

// Plan computes one step of length dt days without modifying the column.
// dt == 0 is accepted and yields the current state.
func (c *Column) Plan(dt float64, f types.Forcing) (Plan, error) {
	if err := ValidateStep(dt); err != nil {
		return Plan{}, err
	}
	if err := f.Validate(); err != nil {
		return Plan{}, err
	}

	s := c.state
	if dt == 0 {
		return Plan{next: s, Result: Result{SWE: s.SWE, SnowDepth: s.SnowDepth}}, nil
	}

	p := c.params
	ground := c.surface.Ground.GroundTemperature(f)

	var snowfall, rainfall float64
	if f.AirTemperature <= p.RainSnowThreshold {
		snowfall = f.Precipitation
	} else {
		rainfall = f.Precipitation
	}

	melt, fluxes := c.model.MeltRate(MeltInput{
		State:             s,
		Forcing:           f,
		Surface:           c.surface,
		Params:            p,
		GroundTemperature: ground,
	})
	// math.Max passes NaN through, so a bad rate has to be caught before it reaches swe
	if math.IsNaN(melt) || math.IsInf(melt, 0) {
		return Plan{}, &types.ValidationError{Field: "melt_rate", Value: melt, Reason: c.model.Name() + " produced a non-finite rate"}
	}
	melt = math.Max(0, melt)

	retained := p.RetentionFraction * s.SWE
	runoff := math.Max(0, melt-retained)

	available := s.SWE + snowfall*dt
	swe := math.Max(0, s.SWE+(snowfall-melt-runoff)*dt)

	// what actually left the pack, attributed to melt first
	lost := math.Max(0, available-swe)
	meltDepth := math.Min(melt*dt, lost)
	runoffDepth := lost - meltDepth

	next := State{
		SWE:               swe,
		GroundTemperature: ground,
	}

	if swe > 0 {
		next.SnowDensity = moveTowards(s.SnowDensity, p.SettledSnowDensity, p.DensificationRate*dt)
		k := clamp01(dt * p.ThermalResponsiveness)
		next.SurfaceTemperature = math.Min(MeltingPointC, s.SurfaceTemperature+(f.AirTemperature-s.SurfaceTemperature)*k)
	} else {
		next.SnowDensity = p.InitialSnowDensity
		next.SurfaceTemperature = ground
	}
	next.SnowDepth = DepthFromSWE(swe, next.SnowDensity)

	return Plan{
		next: next,
		Result: Result{
			SWE:        swe,
			SnowDepth:  next.SnowDepth,
			Snowfall:   snowfall,
			Rainfall:   rainfall,
			MeltRate:   melt,
			Retained:   retained,
			RunoffRate: runoff,
			Melt:       meltDepth,
			Runoff:     runoffDepth,
			Fluxes:     fluxes,
		},
	}, nil
}

// ValidateStep rejects negative or non-finite step lengths.
func ValidateStep(dt float64) error {
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		return &types.ValidationError{Field: "dt", Value: dt, Reason: "must be finite"}
	}
	if dt < 0 {
		return &types.ValidationError{Field: "dt", Value: dt, Reason: "must not be negative"}
	}
	return nil
}

// DepthFromSWE converts millimeters of water equivalent into millimeters of snow at
// the given density. A non-positive density yields zero depth.
func DepthFromSWE(swe, density float64) float64 {
	if density <= 0 || swe <= 0 {
		return 0
	}
	return swe * WaterDensity / density
}

func moveTowards(current, target, maxDelta float64) float64 {
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	if target > current {
		return current + maxDelta
	}
	return current - maxDelta
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
