package solar

import (
	"math"
	"time"
)

// SunriseSunset returns sunrise and sunset on the UTC date of day. ok is false
// during polar day or polar night.
func SunriseSunset(day time.Time, s Site) (rise, set time.Time, ok bool) {
	day = day.UTC()
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)
	p := SunPosition(noon, s)

	// zenith of 90.833° accounts for refraction and the solar disc
	lat := degToRad(s.Latitude)
	decl := degToRad(p.DeclinationDeg)
	cosH := (math.Cos(degToRad(90.833)) - math.Sin(lat)*math.Sin(decl)) / (math.Cos(lat) * math.Cos(decl))
	if cosH < -1 || cosH > 1 {
		return time.Time{}, time.Time{}, false
	}
	haMin := radToDeg(math.Acos(cosH)) * 4

	solarNoon := 720 - 4*s.Longitude - p.EqOfTimeMin
	midnight := noon.Add(-12 * time.Hour)
	rise = midnight.Add(time.Duration((solarNoon - haMin) * float64(time.Minute)))
	set = midnight.Add(time.Duration((solarNoon + haMin) * float64(time.Minute)))
	return rise, set, true
}

// DayLength returns the hours of daylight at the site on day, 0 or 24 at the poles.
func DayLength(day time.Time, s Site) float64 {
	rise, set, ok := SunriseSunset(day, s)
	if ok {
		return set.Sub(rise).Hours()
	}
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)
	if SunPosition(noon.Add(time.Duration(-4*s.Longitude*float64(time.Minute))), s).Up() {
		return 24
	}
	return 0
}
