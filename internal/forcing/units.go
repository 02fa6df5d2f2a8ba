package forcing

// Conversions from the imperial units weather stations report.

func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func MPHToMetersPerSecond(mph float64) float64 { return mph * 0.44704 }

// InchesPerHourToMMPerDay converts a rain rate.
func InchesPerHourToMMPerDay(in float64) float64 { return in * 25.4 * 24 }

func InHgToKPa(inHg float64) float64 { return inHg * 3.386389 }
