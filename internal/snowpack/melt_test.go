package snowpack

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
)

func meltInput() MeltInput {
	sp := surface.DefaultParams(surface.Concrete)
	sp.Albedo = 0.6
	f := types.Forcing{AirTemperature: 5, Shortwave: 600, RelativeHumidity: 80}
	p := DefaultParams()

	return MeltInput{
		State:             State{SnowDensity: p.InitialSnowDensity},
		Forcing:           f,
		Surface:           sp,
		Params:            p,
		GroundTemperature: sp.Ground.GroundTemperature(f),
	}
}

func TestEnergyBalanceFluxes(t *testing.T) {
	melt, fl := EnergyBalance{}.MeltRate(meltInput())

	checks := []struct {
		name      string
		got, want float64
	}{
		{"shortwave", fl.Shortwave, 240},
		{"longwave", fl.Longwave, -20.84255748999618},
		{"sensible", fl.Sensible, 61.55625},
		{"latent", fl.Latent, 16.38713761932171},
		{"ground", fl.Ground, 1.0581840000000005},
		{"net", fl.Net, 298.1590141293255},
		{"melt", melt, 77.12855934363391},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-6 {
			t.Errorf("%s: got %.9f, want %.9f", c.name, c.got, c.want)
		}
	}
}

func TestEnergyBalanceSignConventions(t *testing.T) {
	in := meltInput()
	_, base := EnergyBalance{}.MeltRate(in)

	in.Params.GroundFluxSign = SignSubtract
	in.Params.LatentFluxSign = SignSubtract
	_, flipped := EnergyBalance{}.MeltRate(in)

	if math.Abs(flipped.Ground+base.Ground) > 1e-12 {
		t.Errorf("ground flux not flipped: %v vs %v", base.Ground, flipped.Ground)
	}
	if math.Abs(flipped.Latent+base.Latent) > 1e-12 {
		t.Errorf("latent flux not flipped: %v vs %v", base.Latent, flipped.Latent)
	}
	wantNet := base.Net - 2*base.Ground - 2*base.Latent
	if math.Abs(flipped.Net-wantNet) > 1e-9 {
		t.Errorf("net: got %v, want %v", flipped.Net, wantNet)
	}
}

func TestEnergyBalanceMeasuredLongwave(t *testing.T) {
	in := meltInput()
	in.Forcing.Longwave = 300
	in.Forcing.LongwaveMeasured = true

	_, fl := EnergyBalance{}.MeltRate(in)
	emitted := in.Surface.SnowEmissivity * StefanBoltzmann * math.Pow(KelvinOffset, 4)
	if math.Abs(fl.Longwave-(300-emitted)) > 1e-9 {
		t.Errorf("longwave: got %v, want %v", fl.Longwave, 300-emitted)
	}
}

func TestEnergyBalanceNeverNegative(t *testing.T) {
	in := meltInput()
	in.Forcing = types.Forcing{AirTemperature: -20, RelativeHumidity: 30}

	melt, fl := EnergyBalance{}.MeltRate(in)
	if fl.Net >= 0 {
		t.Fatalf("expected a net energy deficit, got %v", fl.Net)
	}
	if melt != 0 {
		t.Errorf("melt: got %v, want 0", melt)
	}
}

func TestConductionLayerFloor(t *testing.T) {
	in := meltInput()
	in.State.SnowDepth = 0
	_, thin := EnergyBalance{}.MeltRate(in)

	in.State.SnowDepth = in.Params.MinConductionDepth
	_, floor := EnergyBalance{}.MeltRate(in)

	if thin.Ground != floor.Ground {
		t.Errorf("zero depth should use the floor layer: %v vs %v", thin.Ground, floor.Ground)
	}
}

func TestNewMeltModel(t *testing.T) {
	tests := []struct {
		in   ModelType
		want string
		err  bool
	}{
		{"", "degree-day", false},
		{"degree-day", "degree-day", false},
		{"Energy-Balance", "energy-balance", false},
		{"temperature-index", "", true},
	}
	for _, tt := range tests {
		m, err := NewMeltModel(tt.in)
		if tt.err {
			var ce *types.ConfigurationError
			if !errors.As(err, &ce) {
				t.Errorf("%q: expected ConfigurationError, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || m.Name() != tt.want {
			t.Errorf("%q: got (%v, %v), want %s", tt.in, m, err, tt.want)
		}
	}
}

func TestParseFluxSign(t *testing.T) {
	for in, want := range map[string]FluxSign{"": SignAdd, "add": SignAdd, "Subtract": SignSubtract, "-": SignSubtract} {
		got, err := ParseFluxSign(in)
		if err != nil || got != want {
			t.Errorf("%q: got (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := ParseFluxSign("sideways"); err == nil {
		t.Error("expected error")
	}
}

func TestSaturationVaporPressure(t *testing.T) {
	// Buck: 0.61121 kPa at 0°C, ~2.339 kPa at 20°C
	if got := SaturationVaporPressure(0); math.Abs(got-0.61121) > 1e-9 {
		t.Errorf("0°C: got %v", got)
	}
	if got := SaturationVaporPressure(20); math.Abs(got-2.339) > 0.005 {
		t.Errorf("20°C: got %v", got)
	}
}
