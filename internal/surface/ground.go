package surface

import "github.com/chrissnell/snowtiles/internal/types"

// GroundModel predicts the temperature of the ground under a column from the
// current forcing. It is evaluated every tick and never integrated.
type GroundModel interface {
	GroundTemperature(f types.Forcing) float64
}

// LinearGround models ground temperature as air temperature plus a solar heating
// term and a constant offset: Tg = Ta + SolarCoef*SW/1000 + Offset.
type LinearGround struct {
	SolarCoef float64 `yaml:"solar-coef" json:"solar_coef"`
	Offset    float64 `yaml:"offset" json:"offset"`
}

func (g LinearGround) GroundTemperature(f types.Forcing) float64 {
	return f.AirTemperature + g.SolarCoef*f.Shortwave/1000 + g.Offset
}

// AsphaltRegression is a second-order pavement temperature regression over wind
// speed, relative humidity, shortwave and air temperature. The fitted polynomial
// yields °F; GroundTemperature converts the result to °C. Inputs are used in the
// units the forcing carries.
type AsphaltRegression struct {
	Intercept float64
	Wind      float64
	Humidity  float64
	Solar     float64
	WindAir   float64
	WindHum   float64
	WindSolar float64
	AirHum    float64
	AirSolar  float64
	HumSolar  float64
	AirAir    float64
	SolarSq   float64
}

// DefaultAsphalt holds the published pavement regression coefficients.
var DefaultAsphalt = AsphaltRegression{
	Intercept: 26.081,
	Wind:      -0.844,
	Humidity:  -0.187,
	Solar:     -0.0173,
	WindAir:   0.0042254,
	WindHum:   0.00565,
	WindSolar: 0.0016,
	AirHum:    0.00342,
	AirSolar:  0.000117,
	HumSolar:  5.7029e-5,
	AirAir:    0.00425,
	SolarSq:   1.9125e-5,
}

func (r AsphaltRegression) GroundTemperature(f types.Forcing) float64 {
	ta, ws, rh, sw := f.AirTemperature, f.WindSpeed, f.RelativeHumidity, f.Shortwave

	tf := r.Intercept +
		r.Wind*ws +
		r.Humidity*rh +
		r.Solar*sw +
		r.WindAir*ws*ta +
		r.WindHum*ws*rh +
		r.WindSolar*ws*sw +
		r.AirHum*ta*rh +
		r.AirSolar*ta*sw +
		r.HumSolar*rh*sw +
		r.AirAir*ta*ta +
		r.SolarSq*sw*sw

	return (tf - 32) * 5 / 9
}

var (
	DefaultConcrete = LinearGround{SolarCoef: 0.28, Offset: 2.5}
	DefaultGrass    = LinearGround{SolarCoef: 0.12, Offset: -1.5}
)

// DefaultGround returns the stock ground model for a surface type.
func DefaultGround(t Type) GroundModel {
	switch t {
	case Asphalt:
		return DefaultAsphalt
	case Grass:
		return DefaultGrass
	default:
		return DefaultConcrete
	}
}
