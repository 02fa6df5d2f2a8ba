package app

import (
	"errors"
	"testing"
	"time"

	"github.com/chrissnell/snowtiles/internal/snowpack"
	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
)

func fp(v float64) *float64 { return &v }

func TestZones(t *testing.T) {
	tests := []struct {
		name     string
		grid     config.GridData
		row, col int
		want     surface.Type
	}{
		{"banded edge", config.GridData{Rows: 10, Cols: 10, Layout: "banded", Edge: 1, Band: 2}, 0, 5, surface.Grass},
		{"banded band", config.GridData{Rows: 10, Cols: 10, Layout: "banded", Edge: 1, Band: 2}, 4, 5, surface.Asphalt},
		{"banded interior", config.GridData{Rows: 10, Cols: 10, Layout: "banded", Edge: 1, Band: 2}, 2, 5, surface.Concrete},
		{"uniform", config.GridData{Rows: 2, Cols: 2, Layout: "uniform", Surface: "asphalt"}, 1, 1, surface.Asphalt},
		{"map", config.GridData{Rows: 1, Cols: 3, Layout: "map", Map: []string{"GAC"}}, 0, 2, surface.Concrete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones, err := Zones(tt.grid)
			if err != nil {
				t.Fatal(err)
			}
			got, ok := zones(tt.row, tt.col)
			if !ok || got != tt.want {
				t.Errorf("zone(%d,%d) = %v, %v; want %v", tt.row, tt.col, got, ok, tt.want)
			}
		})
	}

	if _, err := Zones(config.GridData{Layout: "hex"}); err == nil {
		t.Error("expected an error for an unknown layout")
	}
	if _, err := Zones(config.GridData{Layout: "uniform", Surface: "gravel"}); err == nil {
		t.Error("expected an error for an unknown uniform surface")
	}
}

func TestColumnParams(t *testing.T) {
	p, err := ColumnParams(config.ColumnData{})
	if err != nil {
		t.Fatal(err)
	}
	if p != snowpack.DefaultParams() {
		t.Errorf("empty overrides changed the defaults: %+v", p)
	}

	p, err = ColumnParams(config.ColumnData{
		DegreeDayFactor:   fp(4.5),
		RetentionFraction: fp(0.1),
		GroundFluxSign:    "subtract",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.DegreeDayFactor != 4.5 || p.RetentionFraction != 0.1 || p.GroundFluxSign != snowpack.SignSubtract || p.LatentFluxSign != snowpack.SignAdd {
		t.Errorf("overrides not applied: %+v", p)
	}

	var cfgErr *types.ConfigurationError
	if _, err := ColumnParams(config.ColumnData{LatentFluxSign: "sideways"}); !errors.As(err, &cfgErr) {
		t.Errorf("bad sign: %v", err)
	}
	if _, err := ColumnParams(config.ColumnData{DegreeDayFactor: fp(-1)}); !errors.As(err, &cfgErr) {
		t.Errorf("negative factor: %v", err)
	}
}

func TestSurfaceParams(t *testing.T) {
	params, err := SurfaceParams([]config.SurfaceData{
		{Type: "asphalt", Albedo: fp(0.7)},
		{Type: "grass", Ground: &config.GroundData{Model: "linear", SolarCoef: 0.1, Offset: -2}},
		{Type: "concrete", Ground: &config.GroundData{Model: "asphalt"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != 3 {
		t.Fatalf("got %d surfaces", len(params))
	}
	if params[surface.Asphalt].Albedo != 0.7 || params[surface.Asphalt].AirEmissivity != surface.DefaultAirEmissivity {
		t.Errorf("asphalt = %+v", params[surface.Asphalt])
	}
	if g, ok := params[surface.Grass].Ground.(surface.LinearGround); !ok || g.Offset != -2 || g.SolarCoef != 0.1 {
		t.Errorf("grass ground = %#v", params[surface.Grass].Ground)
	}
	if _, ok := params[surface.Concrete].Ground.(surface.AsphaltRegression); !ok {
		t.Errorf("concrete ground = %#v", params[surface.Concrete].Ground)
	}

	bad := []config.SurfaceData{
		{Type: "gravel"},
		{Type: "grass", Albedo: fp(1.5)},
		{Type: "grass", Ground: &config.GroundData{Model: "cubic"}},
	}
	for _, sd := range bad {
		if _, err := SurfaceParams([]config.SurfaceData{sd}); err == nil {
			t.Errorf("%+v: expected an error", sd)
		}
	}
}

func TestBuildGrid(t *testing.T) {
	c := &config.ConfigData{
		Simulation: config.SimulationData{Workers: 2, MeltModel: "energy-balance"},
		Grid:       config.GridData{Rows: 10, Cols: 10, Layout: "banded", Edge: 1, Band: 2},
		Surfaces:   []config.SurfaceData{{Type: "grass", Albedo: fp(0.6)}},
		Column:     config.ColumnData{DegreeDayFactor: fp(5)},
	}

	g, err := BuildGrid(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rows, cols := g.Dims(); rows != 10 || cols != 10 {
		t.Errorf("dims = %dx%d", rows, cols)
	}

	col, err := g.Column(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if col.Surface().Type != surface.Grass || col.Surface().Albedo != 0.6 {
		t.Errorf("corner surface = %+v", col.Surface())
	}
	if _, err := g.Query(10, 0); err == nil {
		t.Error("expected (10,0) to be out of range")
	}

	c.Simulation.MeltModel = "bucket"
	if _, err := BuildGrid(c, nil); err == nil {
		t.Error("expected an error for an unknown melt model")
	}
}

func TestSimulationTiming(t *testing.T) {
	now := time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC)

	got, err := SimulationTiming(config.SimulationData{Step: "1h", Interval: "2s"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Start.Equal(now) || got.Step != time.Hour || got.Interval != 2*time.Second {
		t.Errorf("timing = %+v", got)
	}

	got, err = SimulationTiming(config.SimulationData{Step: "30m", Start: "2024-02-01T00:00:00Z"}, now)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC); !got.Start.Equal(want) || got.Interval != 0 {
		t.Errorf("timing = %+v", got)
	}

	tests := []struct {
		name  string
		sim   config.SimulationData
		field string
	}{
		{"bad start", config.SimulationData{Step: "1h", Start: "yesterday"}, "simulation.start"},
		{"bad step", config.SimulationData{Step: "hourly"}, "simulation.step"},
		{"zero step", config.SimulationData{Step: "0s"}, "simulation.step"},
		{"bad interval", config.SimulationData{Step: "1h", Interval: "soon"}, "simulation.interval"},
		{"negative interval", config.SimulationData{Step: "1h", Interval: "-1s"}, "simulation.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SimulationTiming(tt.sim, now)
			var ce *types.ConfigurationError
			if !errors.As(err, &ce) || ce.Field != tt.field {
				t.Fatalf("got %v, want ConfigurationError on %s", err, tt.field)
			}
		})
	}
}
