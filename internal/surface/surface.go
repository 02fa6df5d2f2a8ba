// Package surface describes the ground under a snow column: its material class,
// radiative coefficients, and the regression that predicts its temperature.
package surface

import (
	"fmt"
	"strings"

	"github.com/chrissnell/snowtiles/internal/types"
)

// Type is the closed set of ground materials a tile can sit on.
type Type int

const (
	Concrete Type = iota
	Asphalt
	Grass
)

// Types lists every surface type in declaration order.
var Types = []Type{Concrete, Asphalt, Grass}

func (t Type) String() string {
	switch t {
	case Concrete:
		return "concrete"
	case Asphalt:
		return "asphalt"
	case Grass:
		return "grass"
	}
	return fmt.Sprintf("surface(%d)", int(t))
}

// Valid reports whether t is one of the declared surface types.
func (t Type) Valid() bool {
	return t >= Concrete && t <= Grass
}

// ParseType accepts the lowercase names used in configuration as well as the
// single-letter layout codes C, A and G.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "concrete", "c":
		return Concrete, nil
	case "asphalt", "a":
		return Asphalt, nil
	case "grass", "g":
		return Grass, nil
	}
	return 0, &types.ConfigurationError{Field: "surface", Reason: fmt.Sprintf("unknown surface type %q", s)}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal %v", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalYAML lets yaml.v2 decode surface names directly.
func (t *Type) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}

// Params is the per-tile surface description assigned at grid build time.
// A Params value is never modified after the grid is built.
type Params struct {
	Type           Type
	Albedo         float64 // snow surface shortwave reflectance
	AirEmissivity  float64 // effective atmospheric emissivity for modeled longwave
	SnowEmissivity float64
	Ground         GroundModel
}

const (
	DefaultAlbedo         = 0.85
	DefaultAirEmissivity  = 0.85
	DefaultSnowEmissivity = 0.98
)

// DefaultParams returns the stock coefficients and ground regression for t.
func DefaultParams(t Type) Params {
	return Params{
		Type:           t,
		Albedo:         DefaultAlbedo,
		AirEmissivity:  DefaultAirEmissivity,
		SnowEmissivity: DefaultSnowEmissivity,
		Ground:         DefaultGround(t),
	}
}

// Validate checks coefficient ranges.
func (p Params) Validate() error {
	if !p.Type.Valid() {
		return &types.ConfigurationError{Field: "surface.type", Reason: "no surface type assigned"}
	}
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"albedo", p.Albedo},
		{"air_emissivity", p.AirEmissivity},
		{"snow_emissivity", p.SnowEmissivity},
	} {
		if c.v < 0 || c.v > 1 || c.v != c.v {
			return &types.ConfigurationError{Field: "surface." + c.name, Reason: fmt.Sprintf("%v not in [0,1]", c.v)}
		}
	}
	if p.Ground == nil {
		return &types.ConfigurationError{Field: "surface.ground", Reason: "missing ground temperature model"}
	}
	return nil
}
