package forcing

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chrissnell/snowtiles/internal/database"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
)

var t0 = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestConstant(t *testing.T) {
	want := types.Forcing{AirTemperature: -4, Precipitation: 3, RelativeHumidity: 80}
	c, err := NewConstant(want)
	if err != nil {
		t.Fatal(err)
	}
	for _, at := range []time.Time{t0, t0.Add(1000 * time.Hour), t0.Add(-time.Hour)} {
		got, err := c.Forcing(context.Background(), at)
		if err != nil || got != want {
			t.Errorf("Forcing(%v) = %+v, %v", at, got, err)
		}
	}

	var ve *types.ValidationError
	if _, err := NewConstant(types.Forcing{Precipitation: -1}); !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestFromValues(t *testing.T) {
	lw := 290.0
	f := FromValues(config.ForcingValues{AirTemperature: 1, Longwave: &lw, PressureKPa: 95})
	if !f.LongwaveMeasured || f.Longwave != 290 || f.PressureKPa != 95 {
		t.Errorf("measured longwave not carried over: %+v", f)
	}
	if f := FromValues(config.ForcingValues{AirTemperature: 1}); f.LongwaveMeasured {
		t.Errorf("longwave should be modeled when absent: %+v", f)
	}
}

func TestSchedule(t *testing.T) {
	cold := types.Forcing{AirTemperature: -5, Precipitation: 10}
	warm := types.Forcing{AirTemperature: 4, Shortwave: 400}
	s, err := NewSchedule(t0, []Segment{
		{Duration: 6 * time.Hour, Forcing: cold},
		{Duration: 12 * time.Hour, Forcing: warm},
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		at   time.Time
		want types.Forcing
	}{
		{"before start", t0.Add(-time.Hour), cold},
		{"at start", t0, cold},
		{"inside first", t0.Add(5 * time.Hour), cold},
		{"boundary", t0.Add(6 * time.Hour), warm},
		{"inside second", t0.Add(17 * time.Hour), warm},
		{"past end", t0.Add(48 * time.Hour), warm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Forcing(context.Background(), tt.at)
			if err != nil || got != tt.want {
				t.Errorf("got %+v, %v; want %+v", got, err, tt.want)
			}
		})
	}

	if !s.End().Equal(t0.Add(18 * time.Hour)) {
		t.Errorf("End = %v", s.End())
	}
}

func TestScheduleRejectsBadSegments(t *testing.T) {
	if _, err := NewSchedule(t0, nil); err == nil {
		t.Error("expected error for empty schedule")
	}
	if _, err := NewSchedule(t0, []Segment{{Duration: 0}}); err == nil {
		t.Error("expected error for zero-length segment")
	}
	var ve *types.ValidationError
	_, err := NewSchedule(t0, []Segment{{Duration: time.Hour, Forcing: types.Forcing{RelativeHumidity: 120}}})
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	_, err = NewScheduleFromConfig([]config.ScheduleSegment{{Duration: "later"}}, t0)
	if err == nil {
		t.Error("expected error for unparseable duration")
	}
}

const traceCSV = `# recorded at the test lot
time,air_temperature,precipitation,shortwave,longwave,wind_speed,relative_humidity
2024-01-15T01:00:00Z,-1,0,50,,1.5,70
2024-01-15T00:00:00Z,-3,8,0,250,2,90
2024-01-15T02:00:00Z,0.5,0,300,,3,60
`

func TestTrace(t *testing.T) {
	tr, err := ReadTrace(strings.NewReader(traceCSV), false)
	if err != nil {
		t.Fatalf("ReadTrace: %v", err)
	}
	if tr.Len() != 3 {
		t.Fatalf("Len = %d", tr.Len())
	}

	tests := []struct {
		name     string
		at       time.Time
		wantTemp float64
	}{
		{"before first", t0.Add(-time.Hour), -3},
		{"first", t0, -3},
		{"held", t0.Add(59 * time.Minute), -3},
		{"second", t0.Add(time.Hour), -1},
		{"last", t0.Add(2 * time.Hour), 0.5},
		{"past end held", t0.Add(30 * time.Hour), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tr.Forcing(context.Background(), tt.at)
			if err != nil {
				t.Fatal(err)
			}
			if f.AirTemperature != tt.wantTemp {
				t.Errorf("air temperature %v, want %v", f.AirTemperature, tt.wantTemp)
			}
		})
	}

	first, _ := tr.Forcing(context.Background(), t0)
	if !first.LongwaveMeasured || first.Longwave != 250 || first.Precipitation != 8 {
		t.Errorf("first record %+v", first)
	}
	second, _ := tr.Forcing(context.Background(), t0.Add(time.Hour))
	if second.LongwaveMeasured {
		t.Errorf("empty longwave cell should be unmeasured: %+v", second)
	}
}

func TestTraceLoop(t *testing.T) {
	tr, err := ReadTrace(strings.NewReader(traceCSV), true)
	if err != nil {
		t.Fatal(err)
	}

	// period is three hours: two gaps plus the last record's hold
	tests := []struct {
		at       time.Time
		wantTemp float64
	}{
		{t0.Add(150 * time.Minute), 0.5},
		{t0.Add(210 * time.Minute), -3},
		{t0.Add(4*time.Hour + 10*time.Minute), -1},
	}
	for _, tt := range tests {
		f, err := tr.Forcing(context.Background(), tt.at)
		if err != nil {
			t.Fatal(err)
		}
		if f.AirTemperature != tt.wantTemp {
			t.Errorf("at %v: air temperature %v, want %v", tt.at, f.AirTemperature, tt.wantTemp)
		}
	}
}

func TestTraceErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing time column", "air_temperature\n1\n"},
		{"no records", "time,air_temperature\n"},
		{"bad time", "time,air_temperature\nnoon,1\n"},
		{"bad number", "time,air_temperature\n2024-01-15T00:00:00Z,cold\n"},
		{"duplicate time", "time,air_temperature\n2024-01-15T00:00:00Z,1\n2024-01-15T00:00:00Z,2\n"},
		{"invalid forcing", "time,air_temperature,precipitation\n2024-01-15T00:00:00Z,1,-4\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTrace(strings.NewReader(tt.csv), false); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadTrace(filepath.Join(t.TempDir(), "missing.csv"), false); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	if err := os.WriteFile(path, []byte(traceCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	tr, err := LoadTrace(path, false)
	if err != nil || tr.Len() != 3 {
		t.Fatalf("LoadTrace: %v", err)
	}
}

func syntheticConfig() config.SyntheticData {
	return config.SyntheticData{
		Seed:              7,
		Latitude:          40,
		Longitude:         0,
		Altitude:          1500,
		MeanTemperature:   -2,
		SeasonalAmplitude: 8,
		DiurnalAmplitude:  5,
		Humidity:          65,
		WindSpeed:         2,
	}
}

func TestSyntheticTemperatureCycle(t *testing.T) {
	s, err := NewSynthetic(syntheticConfig())
	if err != nil {
		t.Fatal(err)
	}

	// mid-January, mid-afternoon solar time at the prime meridian
	got := s.Temperature(time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC))
	if want := -2.0 - 8 + 5; math.Abs(got-want) > 1e-9 {
		t.Errorf("temperature %v, want %v", got, want)
	}

	south := syntheticConfig()
	south.Latitude = -40
	ss, _ := NewSynthetic(south)
	if got := ss.Temperature(time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC)); math.Abs(got-11) > 1e-9 {
		t.Errorf("southern hemisphere January should be warm, got %v", got)
	}
}

func TestSyntheticIsDeterministic(t *testing.T) {
	cfg := syntheticConfig()
	cfg.TemperatureNoise = 1.5
	cfg.StormChance = 0.4
	cfg.StormHours = 10
	cfg.StormRate = 20

	a, _ := NewSynthetic(cfg)
	b, _ := NewSynthetic(cfg)
	ctx := context.Background()

	times := make([]time.Time, 48)
	for i := range times {
		times[i] = t0.Add(time.Duration(i) * time.Hour)
	}

	forward := make([]types.Forcing, len(times))
	for i, at := range times {
		f, err := a.Forcing(ctx, at)
		if err != nil {
			t.Fatal(err)
		}
		forward[i] = f
	}
	for i := len(times) - 1; i >= 0; i-- {
		f, err := b.Forcing(ctx, times[i])
		if err != nil {
			t.Fatal(err)
		}
		if f != forward[i] {
			t.Fatalf("hour %d differs between query orders:\n%+v\n%+v", i, f, forward[i])
		}
	}

	cfg.Seed = 8
	c, _ := NewSynthetic(cfg)
	differs := false
	for i, at := range times {
		f, _ := c.Forcing(ctx, at)
		if f.AirTemperature != forward[i].AirTemperature {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("a different seed should change the noise")
	}
}

func TestSyntheticStorms(t *testing.T) {
	ctx := context.Background()

	always := syntheticConfig()
	always.StormChance = 1
	always.StormHours = 48
	always.StormRate = 25
	s, _ := NewSynthetic(always)

	never := syntheticConfig()
	n, _ := NewSynthetic(never)

	for h := 0; h < 24; h++ {
		at := t0.Add(time.Duration(24+h) * time.Hour)
		f, err := s.Forcing(ctx, at)
		if err != nil {
			t.Fatal(err)
		}
		if f.Precipitation != 25 || f.RelativeHumidity != stormHumid {
			t.Fatalf("hour %d: expected storm, got %+v", h, f)
		}

		calm, _ := n.Forcing(ctx, at)
		if calm.Precipitation != 0 {
			t.Fatalf("hour %d: unexpected precipitation %+v", h, calm)
		}
		if calm.Longwave >= f.Longwave {
			t.Fatalf("hour %d: overcast longwave %v should exceed clear %v", h, f.Longwave, calm.Longwave)
		}
	}
}

func TestSyntheticRadiation(t *testing.T) {
	s, _ := NewSynthetic(syntheticConfig())
	ctx := context.Background()

	night, _ := s.Forcing(ctx, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	if night.Shortwave != 0 {
		t.Errorf("midnight shortwave %v", night.Shortwave)
	}
	noon, _ := s.Forcing(ctx, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	if noon.Shortwave < 300 || noon.Shortwave > 800 {
		t.Errorf("winter noon shortwave %v", noon.Shortwave)
	}
	if !noon.LongwaveMeasured || noon.PressureKPa >= types.StandardPressureKPa {
		t.Errorf("expected modeled longwave and reduced pressure at altitude: %+v", noon)
	}
}

func TestNewSyntheticRejects(t *testing.T) {
	mutations := []func(*config.SyntheticData){
		func(c *config.SyntheticData) { c.Latitude = 91 },
		func(c *config.SyntheticData) { c.StormChance = 2 },
		func(c *config.SyntheticData) { c.ClearSkyModel = "guess" },
		func(c *config.SyntheticData) { c.Humidity = 140 },
		func(c *config.SyntheticData) { c.TemperatureNoise = -1 },
	}
	for i, m := range mutations {
		cfg := syntheticConfig()
		m(&cfg)
		var ce *types.ConfigurationError
		if _, err := NewSynthetic(cfg); !errors.As(err, &ce) {
			t.Errorf("mutation %d: expected ConfigurationError, got %v", i, err)
		}
	}
}

func TestStationPressure(t *testing.T) {
	if got := StationPressure(0); math.Abs(got-types.StandardPressureKPa) > 1e-9 {
		t.Errorf("sea level pressure %v", got)
	}
	if got := StationPressure(1500); math.Abs(got-84.6) > 0.3 {
		t.Errorf("pressure at 1500 m %v", got)
	}
}

type fakeSource struct {
	readings []database.StationReading
}

func (f *fakeSource) LatestReading(ctx context.Context, station string, at time.Time) (database.StationReading, error) {
	var best *database.StationReading
	for i, r := range f.readings {
		if r.StationName == station && !r.Timestamp.After(at) {
			if best == nil || r.Timestamp.After(best.Timestamp) {
				best = &f.readings[i]
			}
		}
	}
	if best == nil {
		return database.StationReading{}, ErrNoReading
	}
	return *best, nil
}

func TestStation(t *testing.T) {
	src := &fakeSource{readings: []database.StationReading{
		{Timestamp: t0, StationName: "lot", OutTemp: 23, OutHumidity: 88, WindSpeed: 10, SolarWatts: 0, RainRate: 0.05, Barometer: 29.92},
		{Timestamp: t0.Add(time.Hour), StationName: "lot", OutTemp: 41, OutHumidity: 104, WindSpeed: 5, SolarWatts: 420},
		{Timestamp: t0, StationName: "roof", OutTemp: 0},
	}}
	s := NewStationFromSource(src, "lot", nil)
	defer s.Close()
	ctx := context.Background()

	f, err := s.Forcing(ctx, t0.Add(30*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f.AirTemperature-(-5)) > 1e-9 {
		t.Errorf("23 °F should be -5 °C, got %v", f.AirTemperature)
	}
	if math.Abs(f.Precipitation-30.48) > 1e-6 {
		t.Errorf("0.05 in/hr should be 30.48 mm/day, got %v", f.Precipitation)
	}
	if math.Abs(f.WindSpeed-4.4704) > 1e-6 || math.Abs(f.PressureKPa-101.3207) > 1e-3 {
		t.Errorf("wind %v pressure %v", f.WindSpeed, f.PressureKPa)
	}

	f, err = s.Forcing(ctx, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if f.AirTemperature != 5 || f.RelativeHumidity != 100 || f.Shortwave != 420 {
		t.Errorf("second reading %+v", f)
	}
	if f.PressureKPa != 0 || f.Pressure() != types.StandardPressureKPa {
		t.Errorf("missing barometer should fall back to standard pressure: %+v", f)
	}

	if _, err := s.Forcing(ctx, t0.Add(-time.Minute)); !errors.Is(err, ErrNoReading) {
		t.Errorf("expected ErrNoReading, got %v", err)
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, config.ForcingData{Provider: "constant"}, t0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := p.Forcing(ctx, t0); f != DefaultForcing() {
		t.Errorf("constant default %+v", f)
	}

	p, err = New(ctx, config.ForcingData{
		Provider: "schedule",
		Schedule: []config.ScheduleSegment{{Duration: "1h", ForcingValues: config.ForcingValues{AirTemperature: 3}}},
	}, t0, nil)
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := p.Forcing(ctx, t0); f.AirTemperature != 3 {
		t.Errorf("schedule %+v", f)
	}

	cfg := syntheticConfig()
	if _, err := New(ctx, config.ForcingData{Provider: "synthetic", Synthetic: &cfg}, t0, nil); err != nil {
		t.Errorf("synthetic: %v", err)
	}

	var ce *types.ConfigurationError
	for _, bad := range []config.ForcingData{
		{Provider: "oracle"},
		{Provider: "trace"},
		{Provider: "synthetic"},
		{Provider: "station"},
	} {
		if _, err := New(ctx, bad, t0, nil); !errors.As(err, &ce) {
			t.Errorf("%s: expected ConfigurationError, got %v", bad.Provider, err)
		}
	}
}
