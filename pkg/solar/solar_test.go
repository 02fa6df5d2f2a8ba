package solar

import (
	"math"
	"testing"
	"time"
)

func TestSunriseSunset(t *testing.T) {
	tests := []struct {
		name      string
		day       time.Time
		site      Site
		expectSun bool
		rise      time.Time // approximate, ±30 min
		set       time.Time
	}{
		{
			name:      "equator at equinox",
			day:       time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			site:      Site{Latitude: 0, Longitude: 0},
			expectSun: true,
			rise:      time.Date(2024, 3, 20, 6, 0, 0, 0, time.UTC),
			set:       time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC),
		},
		{
			name:      "Seattle summer solstice",
			day:       time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
			site:      Site{Latitude: 47.6, Longitude: -122.3},
			expectSun: true,
			rise:      time.Date(2024, 6, 21, 12, 11, 0, 0, time.UTC),
			set:       time.Date(2024, 6, 22, 4, 10, 0, 0, time.UTC),
		},
		{
			name:      "London summer solstice",
			day:       time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
			site:      Site{Latitude: 51.5, Longitude: -0.1},
			expectSun: true,
			rise:      time.Date(2024, 6, 21, 3, 43, 0, 0, time.UTC),
			set:       time.Date(2024, 6, 21, 20, 21, 0, 0, time.UTC),
		},
		{
			name: "polar day",
			day:  time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
			site: Site{Latitude: 70, Longitude: 25},
		},
		{
			name: "polar night",
			day:  time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC),
			site: Site{Latitude: 70, Longitude: 25},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rise, set, ok := SunriseSunset(tt.day, tt.site)
			if ok != tt.expectSun {
				t.Fatalf("ok = %v, want %v", ok, tt.expectSun)
			}
			if !ok {
				return
			}
			if d := rise.Sub(tt.rise); d > 30*time.Minute || d < -30*time.Minute {
				t.Errorf("sunrise %v, expected ~%v", rise, tt.rise)
			}
			if d := set.Sub(tt.set); d > 30*time.Minute || d < -30*time.Minute {
				t.Errorf("sunset %v, expected ~%v", set, tt.set)
			}
		})
	}
}

func TestDayLength(t *testing.T) {
	site := Site{Latitude: 45}
	for doy := 0; doy < 365; doy++ {
		day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy)
		if h := DayLength(day, site); h < 8 || h > 16 {
			t.Errorf("%s: unreasonable day length %.2f h", day.Format("2006-01-02"), h)
		}
	}

	arctic := Site{Latitude: 70, Longitude: 25}
	if h := DayLength(time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), arctic); h != 24 {
		t.Errorf("midsummer arctic day length %v, want 24", h)
	}
	if h := DayLength(time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC), arctic); h != 0 {
		t.Errorf("midwinter arctic day length %v, want 0", h)
	}
}

func TestSunPosition(t *testing.T) {
	p := SunPosition(time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC), Site{Latitude: 23.44})
	if math.Abs(p.DeclinationDeg-23.44) > 0.1 {
		t.Errorf("solstice declination %v", p.DeclinationDeg)
	}
	if p.ZenithDeg > 1 {
		t.Errorf("sun should be overhead on the tropic at noon, zenith %v", p.ZenithDeg)
	}
	if math.Abs(p.DistanceAU-1.016) > 0.002 {
		t.Errorf("aphelion distance %v AU", p.DistanceAU)
	}

	night := SunPosition(time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), Site{Latitude: 40})
	if night.Up() || night.AzimuthDeg != 0 {
		t.Errorf("midnight at Greenwich should be dark: %+v", night)
	}
}

func TestClearSkyModels(t *testing.T) {
	site := Site{Latitude: 40, Longitude: -105, Altitude: 1600}
	noon := time.Date(2024, 6, 21, 19, 0, 0, 0, time.UTC) // near solar noon in Colorado
	night := time.Date(2024, 6, 21, 7, 0, 0, 0, time.UTC)

	for _, m := range []Model{IneichenPerez, ASCE, Bras} {
		t.Run(string(m), func(t *testing.T) {
			ghi := m.ClearSky(noon, site, 25, 30)
			if ghi < 800 || ghi > 1200 {
				t.Errorf("midsummer noon GHI %v outside [800,1200]", ghi)
			}
			if dark := m.ClearSky(night, site, 15, 50); dark != 0 {
				t.Errorf("night GHI %v, want 0", dark)
			}

			winter := m.ClearSky(time.Date(2024, 12, 21, 19, 0, 0, 0, time.UTC), site, -5, 50)
			if winter >= ghi {
				t.Errorf("winter noon %v should be below summer noon %v", winter, ghi)
			}
		})
	}
}

func TestParseModel(t *testing.T) {
	if m, err := ParseModel(""); err != nil || m != IneichenPerez {
		t.Errorf("empty model: %v %v", m, err)
	}
	if m, err := ParseModel("asce"); err != nil || m != ASCE {
		t.Errorf("asce: %v %v", m, err)
	}
	if _, err := ParseModel("perez"); err == nil {
		t.Error("expected error for unknown model")
	}
}

func TestCloudAttenuation(t *testing.T) {
	tests := []struct {
		cloud, want float64
	}{
		{0, 1},
		{1, 0.25},
		{-1, 1},
		{2, 0.25},
	}
	for _, tt := range tests {
		if got := CloudAttenuation(tt.cloud); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("CloudAttenuation(%v) = %v, want %v", tt.cloud, got, tt.want)
		}
	}
}

func TestIncomingLongwave(t *testing.T) {
	clear := IncomingLongwave(0, 80, 0)
	if clear < 200 || clear > 300 {
		t.Errorf("clear-sky longwave at 0 °C: %v", clear)
	}
	overcast := IncomingLongwave(0, 80, 1)
	if overcast <= clear {
		t.Errorf("overcast %v should exceed clear %v", overcast, clear)
	}
	blackbody := stefanBoltzmann * math.Pow(273.15, 4)
	if overcast > blackbody {
		t.Errorf("overcast %v exceeds blackbody %v", overcast, blackbody)
	}
}

func TestVaporPressure(t *testing.T) {
	if got := VaporPressure(0); math.Abs(got-0.61121) > 1e-9 {
		t.Errorf("VaporPressure(0) = %v", got)
	}
	if got := VaporPressure(20); math.Abs(got-2.338) > 0.01 {
		t.Errorf("VaporPressure(20) = %v", got)
	}
}
