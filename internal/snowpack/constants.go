package snowpack

import "time"

// Physical constants used by the energy balance.
const (
	StefanBoltzmann  = 5.67e-8 // W/m²/K⁴
	AirDensity       = 1.225   // kg/m³
	AirHeatCapacity  = 1005.0  // J/kg/K
	LatentVapor      = 2.5e6   // J/kg
	LatentFusion     = 3.34e5  // J/kg
	WaterDensity     = 1000.0  // kg/m³
	KelvinOffset     = 273.15
	SecondsPerDay    = 86400.0
	MillimetersPerM  = 1000.0
	MeltingPointC    = 0.0
	dryAirVaporRatio = 0.622
)

// Days converts a duration into the day-based step length used by Column.
func Days(d time.Duration) float64 {
	return d.Hours() / 24
}
