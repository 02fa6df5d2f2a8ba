package snowpack

import (
	"fmt"
	"math"
	"strings"

	"github.com/chrissnell/snowtiles/internal/types"
)

// FluxSign selects how an energy term whose sign convention is disputed enters the
// net energy. SignAdd adds the term as computed (positive warms the pack);
// SignSubtract flips it.
type FluxSign int

const (
	SignAdd FluxSign = iota
	SignSubtract
)

func (s FluxSign) factor() float64 {
	if s == SignSubtract {
		return -1
	}
	return 1
}

func (s FluxSign) String() string {
	if s == SignSubtract {
		return "subtract"
	}
	return "add"
}

// ParseFluxSign accepts "add" or "subtract"; the empty string means "add".
func ParseFluxSign(s string) (FluxSign, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "add", "+":
		return SignAdd, nil
	case "subtract", "sub", "-":
		return SignSubtract, nil
	}
	return SignAdd, &types.ConfigurationError{Field: "flux_sign", Reason: fmt.Sprintf("unknown sign convention %q", s)}
}

// Params are the per-column tunables. SWE is in millimeters and time in days.
type Params struct {
	DegreeDayFactor       float64 // mm SWE per °C above threshold per day
	MeltTempThreshold     float64 // °C
	RainSnowThreshold     float64 // °C; precipitation at or below this falls as snow
	RetentionFraction     float64 // share of SWE held as liquid before runoff
	InitialSnowDensity    float64 // kg/m³, density of fresh snow
	SettledSnowDensity    float64 // kg/m³, upper bound reached by settling
	DensificationRate     float64 // kg/m³ per day; zero holds density constant
	ThermalResponsiveness float64 // per day, surface temperature relaxation rate
	AerodynamicResistance float64 // s/m
	MinConductionDepth    float64 // mm, floor on the conduction path through the pack
	GroundFluxSign        FluxSign
	LatentFluxSign        FluxSign
}

// DefaultParams returns the stock tunables.
func DefaultParams() Params {
	return Params{
		DegreeDayFactor:       3,
		MeltTempThreshold:     0,
		RainSnowThreshold:     0,
		RetentionFraction:     0.05,
		InitialSnowDensity:    100,
		SettledSnowDensity:    300,
		DensificationRate:     86.4,
		ThermalResponsiveness: 0.5,
		AerodynamicResistance: 100,
		MinConductionDepth:    10,
	}
}

// Validate reports the first out-of-range tunable as a ConfigurationError.
func (p Params) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"degree_day_factor", p.DegreeDayFactor},
		{"melt_temp_threshold", p.MeltTempThreshold},
		{"rain_snow_threshold", p.RainSnowThreshold},
		{"retention_fraction", p.RetentionFraction},
		{"initial_snow_density", p.InitialSnowDensity},
		{"settled_snow_density", p.SettledSnowDensity},
		{"densification_rate", p.DensificationRate},
		{"thermal_responsiveness", p.ThermalResponsiveness},
		{"aerodynamic_resistance", p.AerodynamicResistance},
		{"min_conduction_depth", p.MinConductionDepth},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return &types.ConfigurationError{Field: f.name, Reason: "must be finite"}
		}
	}

	switch {
	case p.DegreeDayFactor < 0:
		return &types.ConfigurationError{Field: "degree_day_factor", Reason: "must not be negative"}
	case p.RetentionFraction < 0 || p.RetentionFraction > 1:
		return &types.ConfigurationError{Field: "retention_fraction", Reason: "must be within [0,1]"}
	case p.InitialSnowDensity <= 0:
		return &types.ConfigurationError{Field: "initial_snow_density", Reason: "must be positive"}
	case p.SettledSnowDensity < p.InitialSnowDensity:
		return &types.ConfigurationError{Field: "settled_snow_density", Reason: "must be at least the initial density"}
	case p.SettledSnowDensity > WaterDensity:
		return &types.ConfigurationError{Field: "settled_snow_density", Reason: "cannot exceed the density of water"}
	case p.DensificationRate < 0:
		return &types.ConfigurationError{Field: "densification_rate", Reason: "must not be negative"}
	case p.ThermalResponsiveness < 0:
		return &types.ConfigurationError{Field: "thermal_responsiveness", Reason: "must not be negative"}
	case p.AerodynamicResistance <= 0:
		return &types.ConfigurationError{Field: "aerodynamic_resistance", Reason: "must be positive"}
	case p.MinConductionDepth <= 0:
		return &types.ConfigurationError{Field: "min_conduction_depth", Reason: "must be positive"}
	}
	return nil
}
