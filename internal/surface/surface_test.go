package surface

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/snowtiles/internal/types"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"concrete", Concrete, false},
		{"Asphalt", Asphalt, false},
		{" grass ", Grass, false},
		{"G", Grass, false},
		{"c", Concrete, false},
		{"gravel", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if tt.wantErr {
				var ce *types.ConfigurationError
				if !errors.As(err, &ce) {
					t.Fatalf("expected ConfigurationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeTextRoundTrip(t *testing.T) {
	for _, st := range Types {
		b, err := st.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", st, err)
		}
		var back Type
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("unmarshal %q: %v", b, err)
		}
		if back != st {
			t.Errorf("round trip %v -> %q -> %v", st, b, back)
		}
	}

	if _, err := Type(7).MarshalText(); err == nil {
		t.Error("expected error marshalling invalid type")
	}
}

func TestDefaultGroundModels(t *testing.T) {
	winter := types.Forcing{AirTemperature: -2, Shortwave: 450, WindSpeed: 2, RelativeHumidity: 70}
	night := types.Forcing{AirTemperature: 5, Shortwave: 0, WindSpeed: 1, RelativeHumidity: 50}

	tests := []struct {
		name    string
		surface Type
		forcing types.Forcing
		want    float64
	}{
		{"concrete sunny", Concrete, winter, -2 + 0.28*0.45 + 2.5},
		{"grass sunny", Grass, winter, -2 + 0.12*0.45 - 1.5},
		{"concrete night", Concrete, night, 7.5},
		{"grass night", Grass, night, 3.5},
		{"asphalt sunny", Asphalt, winter, -11.758764},
		{"asphalt night", Asphalt, night, -8.248957},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultGround(tt.surface).GroundTemperature(tt.forcing)
			if math.Abs(got-tt.want) > 1e-5 {
				t.Errorf("got %.6f, want %.6f", got, tt.want)
			}
		})
	}
}

func TestParamsValidate(t *testing.T) {
	good := DefaultParams(Grass)
	if err := good.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}

	bad := []Params{
		{Type: Type(9), Albedo: 0.5, AirEmissivity: 0.8, SnowEmissivity: 0.9, Ground: DefaultGrass},
		{Type: Grass, Albedo: 1.2, AirEmissivity: 0.8, SnowEmissivity: 0.9, Ground: DefaultGrass},
		{Type: Grass, Albedo: 0.5, AirEmissivity: -0.1, SnowEmissivity: 0.9, Ground: DefaultGrass},
		{Type: Grass, Albedo: 0.5, AirEmissivity: 0.8, SnowEmissivity: 0.9},
	}
	for i, p := range bad {
		var ce *types.ConfigurationError
		if err := p.Validate(); !errors.As(err, &ce) {
			t.Errorf("case %d: expected ConfigurationError, got %v", i, err)
		}
	}
}

func TestBandedZones(t *testing.T) {
	zones := BandedZones(10, 10, 1, 2)
	counts := map[Type]int{}

	for r := 0; r < 10; r++ {
		for c := 0; c < 10; c++ {
			st, ok := zones(r, c)
			if !ok {
				t.Fatalf("no surface at (%d,%d)", r, c)
			}
			counts[st]++
		}
	}

	// 36 border tiles, rows 4-5 minus their border tiles, remainder concrete
	if counts[Grass] != 36 {
		t.Errorf("grass tiles: got %d, want 36", counts[Grass])
	}
	if counts[Asphalt] != 16 {
		t.Errorf("asphalt tiles: got %d, want 16", counts[Asphalt])
	}
	if counts[Concrete] != 48 {
		t.Errorf("concrete tiles: got %d, want 48", counts[Concrete])
	}

	if _, ok := zones(10, 0); ok {
		t.Error("expected no surface outside the grid")
	}
}

func TestLayoutZones(t *testing.T) {
	zones := LayoutZones([]string{"GGG", "GAC", "G.C"})

	tests := []struct {
		row, col int
		want     Type
		ok       bool
	}{
		{0, 0, Grass, true},
		{1, 1, Asphalt, true},
		{1, 2, Concrete, true},
		{2, 1, 0, false},
		{3, 0, 0, false},
		{0, 3, 0, false},
	}

	for _, tt := range tests {
		got, ok := zones(tt.row, tt.col)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("(%d,%d): got (%v,%v), want (%v,%v)", tt.row, tt.col, got, ok, tt.want, tt.ok)
		}
	}
}

func TestUniformZones(t *testing.T) {
	zones := UniformZones(Asphalt)
	if st, ok := zones(3, 4); !ok || st != Asphalt {
		t.Errorf("got (%v,%v)", st, ok)
	}
	if _, ok := UniformZones(Type(-1))(0, 0); ok {
		t.Error("invalid uniform type should not assign a surface")
	}
}
