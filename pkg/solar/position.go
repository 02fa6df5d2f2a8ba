// Package solar computes sun position and clear-sky radiation for a site.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

const (
	solarConstant = 1361.0 // W/m² at 1 AU
	auToKm        = 149597870.7
)

// Site is a point on the ground. Altitude is meters above sea level.
type Site struct {
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Altitude  float64 `yaml:"altitude" json:"altitude"`
}

// Position is where the sun sits relative to a site at an instant.
type Position struct {
	DeclinationDeg float64
	EqOfTimeMin    float64
	HourAngleDeg   float64
	ZenithDeg      float64
	ElevationDeg   float64 // includes a fixed refraction correction
	AzimuthDeg     float64 // clockwise from north; 0 while the sun is down
	CosZenith      float64
	DistanceAU     float64
}

// Up reports whether the sun is above the horizon.
func (p Position) Up() bool { return p.ElevationDeg > 0 }

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// julianCentury returns Julian centuries since J2000.0.
func julianCentury(t time.Time) float64 {
	return (julian.TimeToJD(t.UTC()) - 2451545.0) / 36525.0
}

// SunPosition uses the low-precision NOAA solar coordinates, good to about a
// hundredth of a degree for dates near the present.
func SunPosition(t time.Time, s Site) Position {
	t = t.UTC()
	T := julianCentury(t)

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	omega := 125.04 - 1934.136*T
	lambda := L0 + C - 0.00569 - 0.00478*math.Sin(degToRad(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	decl := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))

	y := math.Pow(math.Tan(degToRad(eps0)/2), 2)
	eot := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	ha := (utcMin+4*s.Longitude+eot)/4 - 180

	lat := degToRad(s.Latitude)
	cosZen := math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Cos(degToRad(ha))
	cosZen = math.Max(-1, math.Min(1, cosZen))
	zen := math.Acos(cosZen)

	// true anomaly gives the radius vector
	Mr := degToRad(M)
	E := Mr + e*math.Sin(Mr)*(1+e*math.Cos(Mr))
	v := 2 * math.Atan(math.Sqrt((1+e)/(1-e))*math.Tan(E/2))
	r := (1 - e*e) / (1 + e*math.Cos(v))

	p := Position{
		DeclinationDeg: radToDeg(decl),
		EqOfTimeMin:    eot,
		HourAngleDeg:   ha,
		ZenithDeg:      radToDeg(zen),
		ElevationDeg:   90 - radToDeg(zen) + 0.5667,
		CosZenith:      cosZen,
		DistanceAU:     r,
	}
	if !p.Up() {
		return p
	}

	den := math.Cos(lat) * math.Sin(zen)
	if den != 0 {
		az := radToDeg(math.Acos(math.Max(-1, math.Min(1, (math.Sin(decl)-math.Sin(lat)*cosZen)/den))))
		if ha > 0 {
			az = 360 - az
		}
		p.AzimuthDeg = az
	}
	return p
}

// DistanceKm is the sun-earth distance in kilometers.
func (p Position) DistanceKm() float64 { return p.DistanceAU * auToKm }
