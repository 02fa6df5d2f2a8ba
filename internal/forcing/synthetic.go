package forcing

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
	"github.com/chrissnell/snowtiles/pkg/solar"
	"gonum.org/v1/gonum/stat/distuv"
)

// Synthetic generates weather for a site: a seasonal and diurnal temperature
// cycle with hourly noise, clear-sky shortwave attenuated by cloud, modeled
// longwave, and randomly placed storms. Output depends only on the seed and the
// instant asked for, so repeated or out-of-order queries agree.
type Synthetic struct {
	cfg   config.SyntheticData
	site  solar.Site
	model solar.Model
	seed  uint64
}

const (
	baseCloud    = 0.2
	stormCloud   = 1.0
	stormHumid   = 95.0
	defaultHumid = 70.0
)

// NewSynthetic validates the site and clear-sky model.
func NewSynthetic(cfg config.SyntheticData) (*Synthetic, error) {
	model, err := solar.ParseModel(cfg.ClearSkyModel)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "forcing.synthetic.clear-sky-model", Reason: err.Error()}
	}
	if cfg.Latitude < -90 || cfg.Latitude > 90 || cfg.Longitude < -180 || cfg.Longitude > 180 {
		return nil, &types.ConfigurationError{Field: "forcing.synthetic", Reason: "latitude or longitude out of range"}
	}
	if cfg.StormChance < 0 || cfg.StormChance > 1 {
		return nil, &types.ConfigurationError{Field: "forcing.synthetic.storm-chance", Reason: "must be within [0,1]"}
	}
	if cfg.StormRate < 0 || cfg.StormHours < 0 || cfg.TemperatureNoise < 0 || cfg.WindSpeed < 0 {
		return nil, &types.ConfigurationError{Field: "forcing.synthetic", Reason: "rates, durations and noise must not be negative"}
	}
	if cfg.Humidity == 0 {
		cfg.Humidity = defaultHumid
	}
	if cfg.Humidity < 0 || cfg.Humidity > 100 {
		return nil, &types.ConfigurationError{Field: "forcing.synthetic.humidity", Reason: "must be within [0,100]"}
	}

	return &Synthetic{
		cfg:   cfg,
		site:  solar.Site{Latitude: cfg.Latitude, Longitude: cfg.Longitude, Altitude: cfg.Altitude},
		model: model,
		seed:  uint64(cfg.Seed),
	}, nil
}

func (s *Synthetic) Forcing(ctx context.Context, t time.Time) (types.Forcing, error) {
	t = t.UTC()

	storm := s.inStorm(t)
	cloud, rh, precip, wind := baseCloud, s.cfg.Humidity, 0.0, s.cfg.WindSpeed
	if storm {
		cloud, rh, precip, wind = stormCloud, stormHumid, s.cfg.StormRate, wind*1.5
	}

	ta := s.Temperature(t)
	f := types.Forcing{
		AirTemperature:   ta,
		Precipitation:    precip,
		Shortwave:        s.model.ClearSky(t, s.site, ta, rh) * solar.CloudAttenuation(cloud),
		Longwave:         solar.IncomingLongwave(ta, rh, cloud),
		LongwaveMeasured: true,
		WindSpeed:        wind,
		RelativeHumidity: rh,
		PressureKPa:      StationPressure(s.site.Altitude),
	}
	if err := f.Validate(); err != nil {
		return types.Forcing{}, fmt.Errorf("synthetic forcing at %s: %w", t.Format(time.RFC3339), err)
	}
	return f, nil
}

// Temperature is the air temperature at t in °C, noise included.
func (s *Synthetic) Temperature(t time.Time) float64 {
	doy := float64(t.YearDay())
	seasonal := -s.cfg.SeasonalAmplitude * math.Cos(2*math.Pi*(doy-15)/365.25)
	if s.site.Latitude < 0 {
		seasonal = -seasonal
	}

	solarHour := float64(t.Hour()) + float64(t.Minute())/60 + s.site.Longitude/15
	diurnal := s.cfg.DiurnalAmplitude * math.Cos(2*math.Pi*(solarHour-15)/24)

	var noise float64
	if s.cfg.TemperatureNoise > 0 {
		hour := uint64(t.Unix() / 3600)
		noise = distuv.Normal{Mu: 0, Sigma: s.cfg.TemperatureNoise, Src: rand.NewPCG(s.seed, hour)}.Rand()
	}

	return s.cfg.MeanTemperature + seasonal + diurnal + noise
}

// inStorm checks the storms drawn for t's day and the day before, since a storm
// may run past midnight.
func (s *Synthetic) inStorm(t time.Time) bool {
	if s.cfg.StormChance == 0 || s.cfg.StormHours == 0 {
		return false
	}
	day := t.Truncate(24 * time.Hour)
	for _, d := range []time.Time{day, day.Add(-24 * time.Hour)} {
		start, ok := s.stormStart(d)
		if !ok {
			continue
		}
		end := start.Add(time.Duration(s.cfg.StormHours * float64(time.Hour)))
		if !t.Before(start) && t.Before(end) {
			return true
		}
	}
	return false
}

func (s *Synthetic) stormStart(day time.Time) (time.Time, bool) {
	src := rand.NewPCG(s.seed^0x5eed5eed, uint64(day.Unix()/86400))
	rng := rand.New(src)
	if rng.Float64() >= s.cfg.StormChance {
		return time.Time{}, false
	}
	hour := distuv.Uniform{Min: 0, Max: 24, Src: src}.Rand()
	return day.Add(time.Duration(hour * float64(time.Hour))), true
}

func (s *Synthetic) Close() error { return nil }

// StationPressure estimates surface pressure in kPa from altitude in meters.
func StationPressure(altitude float64) float64 {
	return types.StandardPressureKPa * math.Pow((293-0.0065*altitude)/293, 5.26)
}
