package database

import (
	"time"

	"github.com/jackc/pgtype"
)

// StationReading is the subset of a remoteweather `weather` row used as forcing.
// Units are the station's: °F, %, mph, W/m², in/hr and inHg.
type StationReading struct {
	Timestamp   time.Time `gorm:"column:time"`
	StationName string    `gorm:"column:stationname"`
	OutTemp     float32   `gorm:"column:outtemp"`
	OutHumidity float32   `gorm:"column:outhumidity"`
	WindSpeed   float32   `gorm:"column:windspeed"`
	SolarWatts  float32   `gorm:"column:solarwatts"`
	RainRate    float32   `gorm:"column:rainrate"`
	Barometer   float32   `gorm:"column:barometer"`
	SoilTemp1   float32   `gorm:"column:soiltemp1"`
}

// TableName implements the Tabler interface for StationReading
func (StationReading) TableName() string {
	return "weather"
}

// SimulationRun records one run of the simulator and the configuration it used
type SimulationRun struct {
	RunID     string       `gorm:"column:run_id;primaryKey"`
	StartedAt time.Time    `gorm:"column:started_at;not null"`
	Rows      int          `gorm:"column:grid_rows;not null"`
	Cols      int          `gorm:"column:grid_cols;not null"`
	Config    pgtype.JSONB `gorm:"column:config;type:jsonb"`
}

// TableName implements the Tabler interface for SimulationRun
func (SimulationRun) TableName() string {
	return "simulation_runs"
}

// TileStateRecord is one tile at one tick
type TileStateRecord struct {
	Time               time.Time `gorm:"column:time;not null;index"`
	RunID              string    `gorm:"column:run_id;not null;index"`
	Tick               int64     `gorm:"column:tick;not null"`
	Row                int       `gorm:"column:tile_row;not null"`
	Col                int       `gorm:"column:tile_col;not null"`
	Surface            string    `gorm:"column:surface"`
	SWE                float64   `gorm:"column:swe"`
	SnowDepth          float64   `gorm:"column:snow_depth"`
	SnowDensity        float64   `gorm:"column:snow_density"`
	SurfaceTemperature float64   `gorm:"column:surface_temperature"`
	GroundTemperature  float64   `gorm:"column:ground_temperature"`
	Melt               float64   `gorm:"column:melt"`
	Runoff             float64   `gorm:"column:runoff"`
}

// TableName implements the Tabler interface for TileStateRecord
func (TileStateRecord) TableName() string {
	return "tile_states"
}
