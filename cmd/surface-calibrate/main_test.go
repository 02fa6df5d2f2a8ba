package main

import (
	"math"
	"strings"
	"testing"

	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/pkg/config"
)

func TestReadSamples(t *testing.T) {
	in := `# sensor under the north slab
shortwave, air_temperature, ground_temperature
0, -5, -3
500, -2, 1.5
1000, 0, 5
`
	samples, err := readSamples(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples", len(samples))
	}
	want := surface.GroundSample{AirTemperature: -2, GroundTemperature: 1.5, Shortwave: 500}
	if samples[1] != want {
		t.Errorf("sample = %+v, want %+v", samples[1], want)
	}

	bad := []string{
		"",
		"air_temperature,shortwave\n1,2\n",
		"air_temperature,ground_temperature,shortwave\n1,x,3\n",
	}
	for _, b := range bad {
		if _, err := readSamples(strings.NewReader(b)); err == nil {
			t.Errorf("%q: expected an error", b)
		}
	}
}

func TestSurfaceYAMLRoundTrip(t *testing.T) {
	samples := []surface.GroundSample{
		{AirTemperature: 0, GroundTemperature: 2, Shortwave: 0},
		{AirTemperature: 0, GroundTemperature: 2.3, Shortwave: 1000},
		{AirTemperature: -4, GroundTemperature: -1.85, Shortwave: 500},
	}
	cal, err := surface.FitLinearGround(samples)
	if err != nil {
		t.Fatal(err)
	}

	out, err := surfaceYAML(surface.Concrete, cal)
	if err != nil {
		t.Fatal(err)
	}
	c, err := config.ParseYAML(append([]byte("grid: {rows: 1, cols: 1}\n"), out...))
	if err != nil {
		t.Fatalf("generated YAML does not parse: %v\n%s", err, out)
	}
	if len(c.Surfaces) != 1 || c.Surfaces[0].Type != "concrete" || c.Surfaces[0].Ground.Model != "linear" {
		t.Fatalf("surfaces = %+v", c.Surfaces)
	}
	if g := c.Surfaces[0].Ground; math.Abs(g.SolarCoef-0.3) > 1e-4 || math.Abs(g.Offset-2) > 1e-4 {
		t.Errorf("ground = %+v, want solar 0.3 offset 2", g)
	}
}
