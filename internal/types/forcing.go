// Package types holds the values shared between the snowpack core, the grid, the
// forcing providers and the telemetry sinks.
package types

import (
	"fmt"
	"math"
)

// StandardPressureKPa is sea-level pressure, used when a forcing source has no barometer.
const StandardPressureKPa = 101.325

// Physical bounds on forcing. Below MinAirTemperature the saturation vapour
// pressure fit leaves its valid range; below MinPressureKPa specific humidity
// is no longer well defined.
const (
	MinAirTemperature = -100.0 // °C
	MaxAirTemperature = 70.0   // °C
	MinPressureKPa    = 10.0
)

// Forcing is the environmental input for one tick. Every column in a grid reads the
// same Forcing value during a tick and none of them modifies it.
type Forcing struct {
	AirTemperature   float64 `json:"air_temperature" msgpack:"air_temperature" yaml:"air-temperature"` // °C
	Precipitation    float64 `json:"precipitation" msgpack:"precipitation" yaml:"precipitation"`       // mm/day water equivalent
	Shortwave        float64 `json:"shortwave" msgpack:"shortwave" yaml:"shortwave"`                   // W/m², incoming
	Longwave         float64 `json:"longwave,omitempty" msgpack:"longwave,omitempty" yaml:"longwave"`  // W/m², incoming
	LongwaveMeasured bool    `json:"longwave_measured" msgpack:"longwave_measured" yaml:"longwave-measured"`
	WindSpeed        float64 `json:"wind_speed" msgpack:"wind_speed" yaml:"wind-speed"`             // m/s
	RelativeHumidity float64 `json:"relative_humidity" msgpack:"relative_humidity" yaml:"humidity"` // %
	PressureKPa      float64 `json:"pressure_kpa,omitempty" msgpack:"pressure_kpa,omitempty" yaml:"pressure"`
}

// Pressure returns the surface pressure in kPa, falling back to standard pressure
// when the source did not supply one.
func (f Forcing) Pressure() float64 {
	if f.PressureKPa == 0 {
		return StandardPressureKPa
	}
	return f.PressureKPa
}

// Validate rejects forcing that would push NaN or negative fluxes into a column.
func (f Forcing) Validate() error {
	checks := []struct {
		field    string
		value    float64
		min, max float64
	}{
		{"air_temperature", f.AirTemperature, MinAirTemperature, MaxAirTemperature},
		{"precipitation", f.Precipitation, 0, math.Inf(1)},
		{"shortwave", f.Shortwave, 0, math.Inf(1)},
		{"longwave", f.Longwave, 0, math.Inf(1)},
		{"wind_speed", f.WindSpeed, 0, math.Inf(1)},
		{"relative_humidity", f.RelativeHumidity, 0, 100},
		{"pressure_kpa", f.PressureKPa, 0, math.Inf(1)},
	}

	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &ValidationError{Field: c.field, Value: c.value, Reason: "must be finite"}
		}
		if c.value < c.min {
			if c.min == 0 {
				return &ValidationError{Field: c.field, Value: c.value, Reason: "must not be negative"}
			}
			return &ValidationError{Field: c.field, Value: c.value, Reason: fmt.Sprintf("below %g", c.min)}
		}
		if c.value > c.max {
			return &ValidationError{Field: c.field, Value: c.value, Reason: "out of range"}
		}
	}

	// zero pressure means "not supplied"
	if f.PressureKPa != 0 && f.PressureKPa < MinPressureKPa {
		return &ValidationError{Field: "pressure_kpa", Value: f.PressureKPa, Reason: fmt.Sprintf("below %g kPa", MinPressureKPa)}
	}

	if f.LongwaveMeasured && f.Longwave == 0 {
		return &ValidationError{Field: "longwave", Value: f.Longwave, Reason: "marked measured but zero"}
	}

	return nil
}
