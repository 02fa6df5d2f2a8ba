package types

import "fmt"

// ValidationError reports a non-finite or out-of-range step length or forcing value.
// The column or grid that returns it has not changed state.
type ValidationError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports bad grid dimensions, zone assignments, or tunables.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// OutOfRangeError reports a tile index outside the grid.
type OutOfRangeError struct {
	Row, Col   int
	Rows, Cols int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("tile (%d,%d) outside %dx%d grid", e.Row, e.Col, e.Rows, e.Cols)
}
