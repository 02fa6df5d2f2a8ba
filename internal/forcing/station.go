package forcing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/snowtiles/internal/database"
	"github.com/chrissnell/snowtiles/internal/types"
	"github.com/chrissnell/snowtiles/pkg/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoReading is returned when a station has nothing recorded at or before the
// requested instant.
var ErrNoReading = errors.New("no station reading")

// staleAfter is how old a reading may be before the provider warns about it.
const staleAfter = time.Hour

// ReadingSource looks up the newest station reading at or before an instant.
type ReadingSource interface {
	LatestReading(ctx context.Context, station string, at time.Time) (database.StationReading, error)
}

// Station replays a weather station's recorded observations as forcing.
type Station struct {
	source ReadingSource
	name   string
	closer func() error
	logger *zap.SugaredLogger
	warned bool
}

// NewStation connects to the station database named in cfg.
func NewStation(ctx context.Context, cfg config.StationData, logger *zap.SugaredLogger) (*Station, error) {
	db, err := database.CreateConnection(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	table := cfg.Table
	if table == "" {
		table = database.StationReading{}.TableName()
	}

	s := NewStationFromSource(&gormSource{db: db, table: table}, cfg.StationName, logger)
	s.closer = func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return s, nil
}

// NewStationFromSource wraps an existing reading source.
func NewStationFromSource(src ReadingSource, station string, logger *zap.SugaredLogger) *Station {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Station{source: src, name: station, logger: logger}
}

func (s *Station) Forcing(ctx context.Context, t time.Time) (types.Forcing, error) {
	r, err := s.source.LatestReading(ctx, s.name, t)
	if err != nil {
		return types.Forcing{}, fmt.Errorf("station %s at %s: %w", s.name, t.Format(time.RFC3339), err)
	}

	if age := t.Sub(r.Timestamp); age > staleAfter && !s.warned {
		s.logger.Warnf("station %s: newest reading is %v old", s.name, age.Round(time.Minute))
		s.warned = true
	} else if age <= staleAfter {
		s.warned = false
	}

	f := ReadingToForcing(r)
	if err := f.Validate(); err != nil {
		return types.Forcing{}, fmt.Errorf("station %s reading at %s: %w", s.name, r.Timestamp.Format(time.RFC3339), err)
	}
	return f, nil
}

func (s *Station) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// ReadingToForcing converts a station reading to SI forcing. Longwave is left
// unmeasured. Negative rain rates and humidity above 100% from bad sensors are
// clamped.
func ReadingToForcing(r database.StationReading) types.Forcing {
	return types.Forcing{
		AirTemperature:   FahrenheitToCelsius(float64(r.OutTemp)),
		Precipitation:    math.Max(0, InchesPerHourToMMPerDay(float64(r.RainRate))),
		Shortwave:        math.Max(0, float64(r.SolarWatts)),
		WindSpeed:        math.Max(0, MPHToMetersPerSecond(float64(r.WindSpeed))),
		RelativeHumidity: math.Max(0, math.Min(100, float64(r.OutHumidity))),
		PressureKPa:      math.Max(0, InHgToKPa(float64(r.Barometer))),
	}
}

type gormSource struct {
	db    *gorm.DB
	table string
}

func (g *gormSource) LatestReading(ctx context.Context, station string, at time.Time) (database.StationReading, error) {
	var r database.StationReading
	err := g.db.WithContext(ctx).Table(g.table).
		Where("stationname = ? AND time <= ?", station, at).
		Order("time DESC").
		Limit(1).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r, ErrNoReading
	}
	return r, err
}
