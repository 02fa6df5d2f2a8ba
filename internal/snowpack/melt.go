package snowpack

import (
	"fmt"
	"math"
	"strings"

	"github.com/chrissnell/snowtiles/internal/surface"
	"github.com/chrissnell/snowtiles/internal/types"
)

// MeltInput is everything a melt model may read for one step. It is built fresh
// for every step and discarded afterwards.
type MeltInput struct {
	State             State
	Forcing           types.Forcing
	Surface           surface.Params
	Params            Params
	GroundTemperature float64
}

// Fluxes are the energy terms behind an energy-balance melt, in W/m². Every term
// is reported as it entered Net, after any sign convention was applied.
type Fluxes struct {
	Shortwave float64 `json:"shortwave" msgpack:"shortwave"`
	Longwave  float64 `json:"longwave" msgpack:"longwave"`
	Sensible  float64 `json:"sensible" msgpack:"sensible"`
	Latent    float64 `json:"latent" msgpack:"latent"`
	Ground    float64 `json:"ground" msgpack:"ground"`
	Net       float64 `json:"net" msgpack:"net"`
}

// MeltModel turns one step's input into a potential melt rate in mm SWE per day.
type MeltModel interface {
	Name() string
	MeltRate(in MeltInput) (float64, Fluxes)
}

// ModelType names a melt model in configuration.
type ModelType string

const (
	ModelDegreeDay     ModelType = "degree-day"
	ModelEnergyBalance ModelType = "energy-balance"
)

// NewMeltModel returns the melt model named by t. The empty string selects the
// degree-day model.
func NewMeltModel(t ModelType) (MeltModel, error) {
	switch ModelType(strings.ToLower(string(t))) {
	case "", ModelDegreeDay, "degreeday":
		return DegreeDay{}, nil
	case ModelEnergyBalance, "energybalance":
		return EnergyBalance{}, nil
	}
	return nil, &types.ConfigurationError{Field: "melt_model", Reason: fmt.Sprintf("unknown melt model %q", t)}
}

// DegreeDay melts in proportion to air temperature above the melt threshold.
type DegreeDay struct{}

func (DegreeDay) Name() string { return string(ModelDegreeDay) }

func (DegreeDay) MeltRate(in MeltInput) (float64, Fluxes) {
	excess := in.Forcing.AirTemperature - in.Params.MeltTempThreshold
	return in.Params.DegreeDayFactor * math.Max(0, excess), Fluxes{}
}

// EnergyBalance melts with the net of shortwave, longwave, sensible, latent and
// ground conduction fluxes at the snow surface.
type EnergyBalance struct{}

func (EnergyBalance) Name() string { return string(ModelEnergyBalance) }

func (EnergyBalance) MeltRate(in MeltInput) (float64, Fluxes) {
	fl := SurfaceFluxes(in)
	melt := math.Max(0, fl.Net*SecondsPerDay/(WaterDensity*LatentFusion)) * MillimetersPerM
	return melt, fl
}

// SurfaceFluxes evaluates the energy terms at the start-of-step snow surface
// temperature.
func SurfaceFluxes(in MeltInput) Fluxes {
	f := in.Forcing
	ts := in.State.SurfaceTemperature
	ta := f.AirTemperature
	ra := in.Params.AerodynamicResistance

	var fl Fluxes

	fl.Shortwave = (1 - in.Surface.Albedo) * f.Shortwave

	incoming := f.Longwave
	if !f.LongwaveMeasured {
		incoming = in.Surface.AirEmissivity * StefanBoltzmann * math.Pow(ta+KelvinOffset, 4)
	}
	fl.Longwave = incoming - in.Surface.SnowEmissivity*StefanBoltzmann*math.Pow(ts+KelvinOffset, 4)

	fl.Sensible = AirDensity * AirHeatCapacity * (ta - ts) / ra

	pressure := f.Pressure()
	qAir := SpecificHumidity(SaturationVaporPressure(ta)*f.RelativeHumidity/100, pressure)
	qSurface := SpecificHumidity(SaturationVaporPressure(ts), pressure)
	fl.Latent = in.Params.LatentFluxSign.factor() * AirDensity * LatentVapor * (qAir - qSurface) / ra

	layer := math.Max(in.State.SnowDepth, in.Params.MinConductionDepth) / MillimetersPerM
	conductivity := SnowConductivity(in.State.SnowDensity)
	fl.Ground = in.Params.GroundFluxSign.factor() * conductivity * (in.GroundTemperature - ts) / layer

	fl.Net = fl.Shortwave + fl.Longwave + fl.Sensible + fl.Latent + fl.Ground
	return fl
}

// SaturationVaporPressure returns the saturation vapour pressure in kPa over water
// at temperature t (°C), using the Buck equation.
func SaturationVaporPressure(t float64) float64 {
	return 0.61121 * math.Exp(((18.678-t/234.5)*t)/(257.14+t))
}

// SpecificHumidity converts a vapour pressure and total pressure (both kPa) into
// specific humidity in kg/kg.
func SpecificHumidity(vaporKPa, pressureKPa float64) float64 {
	return dryAirVaporRatio * vaporKPa / (pressureKPa - (1-dryAirVaporRatio)*vaporKPa)
}

// SnowConductivity returns the effective thermal conductivity (W/m/K) of snow at
// density rho (kg/m³).
func SnowConductivity(rho float64) float64 {
	r := rho / WaterDensity
	return 0.138 * r * r
}
