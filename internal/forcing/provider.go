// Package forcing supplies the meteorological input for each simulation tick.
package forcing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
	"go.uber.org/zap"
)

// Provider returns the forcing in effect at a simulated instant.
type Provider interface {
	Forcing(ctx context.Context, t time.Time) (types.Forcing, error)
	Close() error
}

// New builds the provider named in cfg. start is the simulated time of the first
// tick and anchors relative schedules.
func New(ctx context.Context, cfg config.ForcingData, start time.Time, logger *zap.SugaredLogger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	switch strings.ToLower(cfg.Provider) {
	case "", "constant":
		f := DefaultForcing()
		if cfg.Constant != nil {
			f = FromValues(*cfg.Constant)
		}
		return NewConstant(f)
	case "schedule":
		return NewScheduleFromConfig(cfg.Schedule, start)
	case "trace":
		if cfg.Trace == nil {
			return nil, &types.ConfigurationError{Field: "forcing.trace", Reason: "required"}
		}
		return LoadTrace(cfg.Trace.File, cfg.Trace.Loop)
	case "synthetic":
		if cfg.Synthetic == nil {
			return nil, &types.ConfigurationError{Field: "forcing.synthetic", Reason: "required"}
		}
		return NewSynthetic(*cfg.Synthetic)
	case "station":
		if cfg.Station == nil {
			return nil, &types.ConfigurationError{Field: "forcing.station", Reason: "required"}
		}
		return NewStation(ctx, *cfg.Station, logger)
	}
	return nil, &types.ConfigurationError{Field: "forcing.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
}

// DefaultForcing is a calm, overcast day just below freezing with light snow.
func DefaultForcing() types.Forcing {
	return types.Forcing{
		AirTemperature:   -2,
		Precipitation:    5,
		Shortwave:        100,
		WindSpeed:        2,
		RelativeHumidity: 85,
	}
}

// FromValues converts a configured set of forcing values.
func FromValues(v config.ForcingValues) types.Forcing {
	f := types.Forcing{
		AirTemperature:   v.AirTemperature,
		Precipitation:    v.Precipitation,
		Shortwave:        v.Shortwave,
		WindSpeed:        v.WindSpeed,
		RelativeHumidity: v.RelativeHumidity,
		PressureKPa:      v.PressureKPa,
	}
	if v.Longwave != nil {
		f.Longwave = *v.Longwave
		f.LongwaveMeasured = true
	}
	return f
}

// Constant returns the same forcing at every instant.
type Constant struct {
	f types.Forcing
}

// NewConstant validates f once up front.
func NewConstant(f types.Forcing) (*Constant, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Constant{f: f}, nil
}

func (c *Constant) Forcing(ctx context.Context, t time.Time) (types.Forcing, error) {
	return c.f, nil
}

func (c *Constant) Close() error { return nil }
