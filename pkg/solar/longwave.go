package solar

import "math"

const stefanBoltzmann = 5.670374419e-8

// ClearSkyEmissivity is the Brutsaert (1975) effective emissivity of a cloudless
// atmosphere.
func ClearSkyEmissivity(airTempC, humidity float64) float64 {
	eaHPa := VaporPressure(airTempC) * humidity / 100 * 10
	return 1.24 * math.Pow(eaHPa/(airTempC+273.15), 1.0/7.0)
}

// IncomingLongwave returns downwelling longwave in W/m² with cloud cover in
// [0,1] raising emissivity toward one.
func IncomingLongwave(airTempC, humidity, cloud float64) float64 {
	cloud = math.Max(0, math.Min(1, cloud))
	eps := ClearSkyEmissivity(airTempC, humidity)
	eps = eps*(1-0.84*cloud) + 0.84*cloud
	tk := airTempC + 273.15
	return eps * stefanBoltzmann * tk * tk * tk * tk
}
