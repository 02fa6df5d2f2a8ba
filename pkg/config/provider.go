// Package config loads simulator configuration from YAML files or a SQLite
// database.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/snowtiles/internal/types"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration, with defaults applied
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// NewProvider opens a provider for the named backend ("yaml" or "sqlite")
func NewProvider(backend, path string) (ConfigProvider, error) {
	switch strings.ToLower(backend) {
	case "", "yaml":
		return NewYAMLProvider(path), nil
	case "sqlite":
		return NewSQLiteProvider(path)
	}
	return nil, fmt.Errorf("unknown config backend %q", backend)
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Simulation  SimulationData   `yaml:"simulation" json:"simulation"`
	Grid        GridData         `yaml:"grid" json:"grid"`
	Surfaces    []SurfaceData    `yaml:"surfaces,omitempty" json:"surfaces,omitempty"`
	Column      ColumnData       `yaml:"column,omitempty" json:"column,omitempty"`
	Forcing     ForcingData      `yaml:"forcing" json:"forcing"`
	Storage     StorageData      `yaml:"storage,omitempty" json:"storage,omitempty"`
	Controllers []ControllerData `yaml:"controllers,omitempty" json:"controllers,omitempty"`
}

// SimulationData controls the tick loop
type SimulationData struct {
	Step      string `yaml:"step,omitempty" json:"step,omitempty"`         // simulated time per tick
	Steps     int    `yaml:"steps,omitempty" json:"steps,omitempty"`       // 0 runs until stopped
	Interval  string `yaml:"interval,omitempty" json:"interval,omitempty"` // wall-clock pacing; empty runs flat out
	Start     string `yaml:"start,omitempty" json:"start,omitempty"`       // RFC3339; empty starts now
	Workers   int    `yaml:"workers,omitempty" json:"workers,omitempty"`
	MeltModel string `yaml:"melt-model,omitempty" json:"melt_model,omitempty"`
}

// StepDuration parses Step
func (s SimulationData) StepDuration() (time.Duration, error) {
	return time.ParseDuration(s.Step)
}

// IntervalDuration parses Interval; zero when unset
func (s SimulationData) IntervalDuration() (time.Duration, error) {
	if s.Interval == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Interval)
}

// StartTime parses Start, falling back to now
func (s SimulationData) StartTime(now time.Time) (time.Time, error) {
	if s.Start == "" {
		return now.UTC(), nil
	}
	return time.Parse(time.RFC3339, s.Start)
}

// GridData describes the tile layout
type GridData struct {
	Rows    int      `yaml:"rows" json:"rows"`
	Cols    int      `yaml:"cols" json:"cols"`
	Layout  string   `yaml:"layout,omitempty" json:"layout,omitempty"` // banded, uniform or map
	Edge    int      `yaml:"edge,omitempty" json:"edge,omitempty"`
	Band    int      `yaml:"band,omitempty" json:"band,omitempty"`
	Surface string   `yaml:"surface,omitempty" json:"surface,omitempty"`
	Map     []string `yaml:"map,omitempty" json:"map,omitempty"`
}

// SurfaceData overrides the stock parameters of one surface type
type SurfaceData struct {
	Type           string      `yaml:"type" json:"type"`
	Albedo         *float64    `yaml:"albedo,omitempty" json:"albedo,omitempty"`
	AirEmissivity  *float64    `yaml:"air-emissivity,omitempty" json:"air_emissivity,omitempty"`
	SnowEmissivity *float64    `yaml:"snow-emissivity,omitempty" json:"snow_emissivity,omitempty"`
	Ground         *GroundData `yaml:"ground,omitempty" json:"ground,omitempty"`
}

// GroundData selects a ground temperature model
type GroundData struct {
	Model     string  `yaml:"model" json:"model"` // linear or asphalt
	SolarCoef float64 `yaml:"solar-coef,omitempty" json:"solar_coef,omitempty"`
	Offset    float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// ColumnData overrides column tunables; nil fields keep their defaults
type ColumnData struct {
	DegreeDayFactor       *float64 `yaml:"degree-day-factor,omitempty" json:"degree_day_factor,omitempty"`
	MeltTempThreshold     *float64 `yaml:"melt-temp-threshold,omitempty" json:"melt_temp_threshold,omitempty"`
	RainSnowThreshold     *float64 `yaml:"rain-snow-threshold,omitempty" json:"rain_snow_threshold,omitempty"`
	RetentionFraction     *float64 `yaml:"retention-fraction,omitempty" json:"retention_fraction,omitempty"`
	InitialSnowDensity    *float64 `yaml:"initial-snow-density,omitempty" json:"initial_snow_density,omitempty"`
	SettledSnowDensity    *float64 `yaml:"settled-snow-density,omitempty" json:"settled_snow_density,omitempty"`
	DensificationRate     *float64 `yaml:"densification-rate,omitempty" json:"densification_rate,omitempty"`
	ThermalResponsiveness *float64 `yaml:"thermal-responsiveness,omitempty" json:"thermal_responsiveness,omitempty"`
	AerodynamicResistance *float64 `yaml:"aerodynamic-resistance,omitempty" json:"aerodynamic_resistance,omitempty"`
	MinConductionDepth    *float64 `yaml:"min-conduction-depth,omitempty" json:"min_conduction_depth,omitempty"`
	GroundFluxSign        string   `yaml:"ground-flux-sign,omitempty" json:"ground_flux_sign,omitempty"`
	LatentFluxSign        string   `yaml:"latent-flux-sign,omitempty" json:"latent_flux_sign,omitempty"`
}

// ForcingData selects and configures the forcing provider
type ForcingData struct {
	Provider  string            `yaml:"provider" json:"provider"`
	Constant  *ForcingValues    `yaml:"constant,omitempty" json:"constant,omitempty"`
	Schedule  []ScheduleSegment `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	Trace     *TraceData        `yaml:"trace,omitempty" json:"trace,omitempty"`
	Synthetic *SyntheticData    `yaml:"synthetic,omitempty" json:"synthetic,omitempty"`
	Station   *StationData      `yaml:"station,omitempty" json:"station,omitempty"`
}

// ForcingValues is one set of meteorological inputs in SI units
type ForcingValues struct {
	AirTemperature   float64  `yaml:"air-temperature" json:"air_temperature"`
	Precipitation    float64  `yaml:"precipitation,omitempty" json:"precipitation,omitempty"`
	Shortwave        float64  `yaml:"shortwave,omitempty" json:"shortwave,omitempty"`
	Longwave         *float64 `yaml:"longwave,omitempty" json:"longwave,omitempty"`
	WindSpeed        float64  `yaml:"wind-speed,omitempty" json:"wind_speed,omitempty"`
	RelativeHumidity float64  `yaml:"relative-humidity,omitempty" json:"relative_humidity,omitempty"`
	PressureKPa      float64  `yaml:"pressure-kpa,omitempty" json:"pressure_kpa,omitempty"`
}

// ScheduleSegment holds forcing constant for a span of simulated time
type ScheduleSegment struct {
	Duration      string `yaml:"duration" json:"duration"`
	ForcingValues `yaml:",inline"`
}

// TraceData points at a recorded CSV forcing trace
type TraceData struct {
	File string `yaml:"file" json:"file"`
	Loop bool   `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// SyntheticData drives the generated-weather provider
type SyntheticData struct {
	Seed              int64   `yaml:"seed,omitempty" json:"seed,omitempty"`
	Latitude          float64 `yaml:"latitude" json:"latitude"`
	Longitude         float64 `yaml:"longitude" json:"longitude"`
	Altitude          float64 `yaml:"altitude,omitempty" json:"altitude,omitempty"`
	ClearSkyModel     string  `yaml:"clear-sky-model,omitempty" json:"clear_sky_model,omitempty"`
	MeanTemperature   float64 `yaml:"mean-temperature" json:"mean_temperature"`
	SeasonalAmplitude float64 `yaml:"seasonal-amplitude,omitempty" json:"seasonal_amplitude,omitempty"`
	DiurnalAmplitude  float64 `yaml:"diurnal-amplitude,omitempty" json:"diurnal_amplitude,omitempty"`
	TemperatureNoise  float64 `yaml:"temperature-noise,omitempty" json:"temperature_noise,omitempty"`
	Humidity          float64 `yaml:"humidity,omitempty" json:"humidity,omitempty"`
	WindSpeed         float64 `yaml:"wind-speed,omitempty" json:"wind_speed,omitempty"`
	StormChance       float64 `yaml:"storm-chance,omitempty" json:"storm_chance,omitempty"` // per day
	StormHours        float64 `yaml:"storm-hours,omitempty" json:"storm_hours,omitempty"`
	StormRate         float64 `yaml:"storm-rate,omitempty" json:"storm_rate,omitempty"` // mm/day water equivalent
}

// StationData reads forcing from a remoteweather TimescaleDB
type StationData struct {
	ConnectionString string `yaml:"connection-string" json:"connection_string"`
	StationName      string `yaml:"station-name" json:"station_name"`
	Table            string `yaml:"table,omitempty" json:"table,omitempty"`
}

// StorageData holds the configuration for the telemetry sinks
type StorageData struct {
	SQLite      *SQLiteData      `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `yaml:"timescaledb,omitempty" json:"timescaledb,omitempty"`
	Msgpack     *MsgpackData     `yaml:"msgpack,omitempty" json:"msgpack,omitempty"`
	Log         *LogData         `yaml:"log,omitempty" json:"log,omitempty"`
}

type SQLiteData struct {
	Path string `yaml:"path" json:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `yaml:"connection-string" json:"connection_string"`
}

type MsgpackData struct {
	Path string `yaml:"path" json:"path"`
}

type LogData struct {
	Every int `yaml:"every,omitempty" json:"every,omitempty"`
}

// ControllerData holds the configuration for the outward-facing controllers
type ControllerData struct {
	Type       string          `yaml:"type" json:"type"`
	RESTServer *RESTServerData `yaml:"rest,omitempty" json:"rest,omitempty"`
}

type RESTServerData struct {
	Cert       string `yaml:"cert,omitempty" json:"cert,omitempty"`
	Key        string `yaml:"key,omitempty" json:"key,omitempty"`
	Port       int    `yaml:"port,omitempty" json:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty" json:"listen_addr,omitempty"`
}

const (
	DefaultStep      = "1h"
	DefaultLayout    = "banded"
	DefaultProvider  = "constant"
	DefaultRESTPort  = 8080
	DefaultLogEvery  = 1
	DefaultEdgeWidth = 1
	DefaultBandWidth = 2
)

// ApplyDefaults fills unset fields with their defaults
func (c *ConfigData) ApplyDefaults() {
	if c.Simulation.Step == "" {
		c.Simulation.Step = DefaultStep
	}
	if c.Grid.Layout == "" {
		c.Grid.Layout = DefaultLayout
	}
	if c.Grid.Layout == "banded" {
		if c.Grid.Edge == 0 {
			c.Grid.Edge = DefaultEdgeWidth
		}
		if c.Grid.Band == 0 {
			c.Grid.Band = DefaultBandWidth
		}
	}
	if c.Forcing.Provider == "" {
		c.Forcing.Provider = DefaultProvider
	}
	if c.Storage.Log != nil && c.Storage.Log.Every == 0 {
		c.Storage.Log.Every = DefaultLogEvery
	}
	for i := range c.Controllers {
		if rs := c.Controllers[i].RESTServer; rs != nil && rs.Port == 0 {
			rs.Port = DefaultRESTPort
		}
	}
}

var (
	layouts        = []string{"banded", "uniform", "map"}
	meltModels     = []string{"", "degree-day", "energy-balance"}
	surfaceNames   = []string{"concrete", "asphalt", "grass"}
	groundModels   = []string{"linear", "asphalt"}
	fluxSigns      = []string{"", "add", "subtract"}
	providers      = []string{"constant", "schedule", "trace", "synthetic", "station"}
	controllerKind = []string{"rest"}
)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

func invalid(field, format string, args ...interface{}) error {
	return &types.ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the structure of a configuration after defaults are applied.
// Parameter ranges are checked again when the simulator is built from it.
func (c *ConfigData) Validate() error {
	s := c.Simulation
	step, err := s.StepDuration()
	if err != nil || step <= 0 {
		return invalid("simulation.step", "must be a positive duration, got %q", s.Step)
	}
	if d, err := s.IntervalDuration(); err != nil || d < 0 {
		return invalid("simulation.interval", "must be a non-negative duration, got %q", s.Interval)
	}
	if _, err := s.StartTime(time.Now()); err != nil {
		return invalid("simulation.start", "must be RFC3339, got %q", s.Start)
	}
	if s.Steps < 0 {
		return invalid("simulation.steps", "must not be negative")
	}
	if s.Workers < 0 {
		return invalid("simulation.workers", "must not be negative")
	}
	if !oneOf(s.MeltModel, meltModels) {
		return invalid("simulation.melt-model", "unknown melt model %q", s.MeltModel)
	}

	if err := c.Grid.validate(); err != nil {
		return err
	}

	seen := map[string]bool{}
	for i, sd := range c.Surfaces {
		name := strings.ToLower(sd.Type)
		if !oneOf(name, surfaceNames) {
			return invalid(fmt.Sprintf("surfaces[%d].type", i), "unknown surface %q", sd.Type)
		}
		if seen[name] {
			return invalid(fmt.Sprintf("surfaces[%d].type", i), "%s configured twice", name)
		}
		seen[name] = true
		if sd.Ground != nil && !oneOf(sd.Ground.Model, groundModels) {
			return invalid(fmt.Sprintf("surfaces[%d].ground.model", i), "unknown ground model %q", sd.Ground.Model)
		}
	}

	if !oneOf(c.Column.GroundFluxSign, fluxSigns) {
		return invalid("column.ground-flux-sign", "must be add or subtract")
	}
	if !oneOf(c.Column.LatentFluxSign, fluxSigns) {
		return invalid("column.latent-flux-sign", "must be add or subtract")
	}

	if err := c.Forcing.validate(); err != nil {
		return err
	}

	st := c.Storage
	if st.SQLite != nil && st.SQLite.Path == "" {
		return invalid("storage.sqlite.path", "required")
	}
	if st.TimescaleDB != nil && st.TimescaleDB.ConnectionString == "" {
		return invalid("storage.timescaledb.connection-string", "required")
	}
	if st.Msgpack != nil && st.Msgpack.Path == "" {
		return invalid("storage.msgpack.path", "required")
	}
	if st.Log != nil && st.Log.Every < 0 {
		return invalid("storage.log.every", "must not be negative")
	}

	for i, ctl := range c.Controllers {
		if !oneOf(ctl.Type, controllerKind) {
			return invalid(fmt.Sprintf("controllers[%d].type", i), "unknown controller %q", ctl.Type)
		}
		if ctl.RESTServer == nil {
			return invalid(fmt.Sprintf("controllers[%d].rest", i), "rest controller needs a rest section")
		}
		if ctl.RESTServer.Port <= 0 || ctl.RESTServer.Port > 65535 {
			return invalid(fmt.Sprintf("controllers[%d].rest.port", i), "invalid port %d", ctl.RESTServer.Port)
		}
		if (ctl.RESTServer.Cert == "") != (ctl.RESTServer.Key == "") {
			return invalid(fmt.Sprintf("controllers[%d].rest", i), "cert and key must be set together")
		}
	}

	return nil
}

func (g GridData) validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return invalid("grid", "rows and cols must be positive, got %dx%d", g.Rows, g.Cols)
	}
	if !oneOf(g.Layout, layouts) {
		return invalid("grid.layout", "unknown layout %q", g.Layout)
	}

	switch strings.ToLower(g.Layout) {
	case "banded":
		if g.Edge < 0 || g.Band < 0 {
			return invalid("grid", "edge and band must not be negative")
		}
	case "uniform":
		if !oneOf(g.Surface, surfaceNames) {
			return invalid("grid.surface", "unknown surface %q", g.Surface)
		}
	case "map":
		if len(g.Map) != g.Rows {
			return invalid("grid.map", "has %d rows, want %d", len(g.Map), g.Rows)
		}
		for i, line := range g.Map {
			if len(strings.TrimSpace(line)) != g.Cols {
				return invalid(fmt.Sprintf("grid.map[%d]", i), "has %d tiles, want %d", len(strings.TrimSpace(line)), g.Cols)
			}
		}
	}
	return nil
}

func (f ForcingData) validate() error {
	if !oneOf(f.Provider, providers) {
		return invalid("forcing.provider", "unknown provider %q", f.Provider)
	}

	switch strings.ToLower(f.Provider) {
	case "schedule":
		if len(f.Schedule) == 0 {
			return invalid("forcing.schedule", "needs at least one segment")
		}
		for i, seg := range f.Schedule {
			if d, err := time.ParseDuration(seg.Duration); err != nil || d <= 0 {
				return invalid(fmt.Sprintf("forcing.schedule[%d].duration", i), "must be a positive duration, got %q", seg.Duration)
			}
		}
	case "trace":
		if f.Trace == nil || f.Trace.File == "" {
			return invalid("forcing.trace.file", "required")
		}
	case "synthetic":
		if f.Synthetic == nil {
			return invalid("forcing.synthetic", "required")
		}
		if f.Synthetic.Latitude < -90 || f.Synthetic.Latitude > 90 {
			return invalid("forcing.synthetic.latitude", "out of range")
		}
		if f.Synthetic.Longitude < -180 || f.Synthetic.Longitude > 180 {
			return invalid("forcing.synthetic.longitude", "out of range")
		}
		if f.Synthetic.StormChance < 0 || f.Synthetic.StormChance > 1 {
			return invalid("forcing.synthetic.storm-chance", "must be within [0,1]")
		}
	case "station":
		if f.Station == nil || f.Station.ConnectionString == "" || f.Station.StationName == "" {
			return invalid("forcing.station", "connection-string and station-name are required")
		}
	}
	return nil
}
