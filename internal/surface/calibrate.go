package surface

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GroundSample is one paired observation of air and ground temperature with the
// shortwave irradiance at the time of the reading.
type GroundSample struct {
	AirTemperature    float64
	GroundTemperature float64
	Shortwave         float64
}

// Calibration holds a fitted LinearGround and its goodness of fit.
type Calibration struct {
	Model       LinearGround
	RSquared    float64
	RMSE        float64
	SampleCount int
}

// FitLinearGround regresses (ground - air) on shortwave/1000 and returns the fitted
// LinearGround. It needs at least three samples with some spread in shortwave.
func FitLinearGround(samples []GroundSample) (Calibration, error) {
	n := len(samples)
	if n < 3 {
		return Calibration{}, fmt.Errorf("need at least 3 samples, got %d", n)
	}

	X := mat.NewDense(n, 2, nil)
	diffs := make([]float64, n)
	for i, s := range samples {
		X.Set(i, 0, s.Shortwave/1000)
		X.Set(i, 1, 1)
		diffs[i] = s.GroundTemperature - s.AirTemperature
	}
	y := mat.NewVecDense(n, diffs)

	var qr mat.QR
	qr.Factorize(X)

	coeffs := mat.NewVecDense(2, nil)
	if err := qr.SolveVecTo(coeffs, false, y); err != nil {
		return Calibration{}, fmt.Errorf("least squares solve failed: %w", err)
	}

	model := LinearGround{SolarCoef: coeffs.AtVec(0), Offset: coeffs.AtVec(1)}
	if math.IsNaN(model.SolarCoef) || math.IsInf(model.SolarCoef, 0) {
		return Calibration{}, fmt.Errorf("degenerate fit: shortwave has no spread")
	}

	predicted := make([]float64, n)
	var sq float64
	for i, s := range samples {
		predicted[i] = model.SolarCoef*s.Shortwave/1000 + model.Offset
		r := diffs[i] - predicted[i]
		sq += r * r
	}

	return Calibration{
		Model:       model,
		RSquared:    stat.RSquaredFrom(predicted, diffs, nil),
		RMSE:        math.Sqrt(sq / float64(n)),
		SampleCount: n,
	}, nil
}
