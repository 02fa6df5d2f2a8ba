package types

import "time"

// TileState is a read-only copy of one column after a tick.
type TileState struct {
	Row                int     `json:"row" msgpack:"row"`
	Col                int     `json:"col" msgpack:"col"`
	Surface            string  `json:"surface" msgpack:"surface"`
	SWE                float64 `json:"swe_mm" msgpack:"swe_mm"`
	SnowDepth          float64 `json:"snow_depth_mm" msgpack:"snow_depth_mm"`
	SnowDensity        float64 `json:"snow_density" msgpack:"snow_density"`
	SurfaceTemperature float64 `json:"surface_temperature" msgpack:"surface_temperature"`
	GroundTemperature  float64 `json:"ground_temperature" msgpack:"ground_temperature"`
	Melt               float64 `json:"melt_mm" msgpack:"melt_mm"`
	Runoff             float64 `json:"runoff_mm" msgpack:"runoff_mm"`
}

// Stats summarizes one quantity across a set of tiles.
type Stats struct {
	Mean   float64 `json:"mean" msgpack:"mean"`
	StdDev float64 `json:"stddev" msgpack:"stddev"`
	Min    float64 `json:"min" msgpack:"min"`
	Max    float64 `json:"max" msgpack:"max"`
	Total  float64 `json:"total" msgpack:"total"`
}

// Summary aggregates SWE and depth over the whole grid and per surface type.
type Summary struct {
	Tiles       int                `json:"tiles" msgpack:"tiles"`
	SnowCovered int                `json:"snow_covered" msgpack:"snow_covered"`
	SWE         Stats              `json:"swe_mm" msgpack:"swe_mm"`
	SnowDepth   Stats              `json:"snow_depth_mm" msgpack:"snow_depth_mm"`
	BySurface   map[string]Summary `json:"by_surface,omitempty" msgpack:"by_surface,omitempty"`
	TotalMelt   float64            `json:"total_melt_mm" msgpack:"total_melt_mm"`
	TotalRunoff float64            `json:"total_runoff_mm" msgpack:"total_runoff_mm"`
}

// GridSnapshot is what the simulation loop publishes to telemetry consumers after
// every tick.
type GridSnapshot struct {
	RunID   string      `json:"run_id" msgpack:"run_id"`
	Tick    int64       `json:"tick" msgpack:"tick"`
	SimTime time.Time   `json:"sim_time" msgpack:"sim_time"`
	Rows    int         `json:"rows" msgpack:"rows"`
	Cols    int         `json:"cols" msgpack:"cols"`
	Forcing Forcing     `json:"forcing" msgpack:"forcing"`
	Tiles   []TileState `json:"tiles" msgpack:"tiles"`
	Summary Summary     `json:"summary" msgpack:"summary"`
}
