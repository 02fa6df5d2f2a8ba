package surface

import (
	"math"
	"testing"
)

func TestFitLinearGroundRecoversCoefficients(t *testing.T) {
	truth := LinearGround{SolarCoef: 0.28, Offset: 2.5}

	var samples []GroundSample
	for i := 0; i < 24; i++ {
		air := -8 + float64(i)*0.5
		sw := float64(i%12) * 75
		samples = append(samples, GroundSample{
			AirTemperature:    air,
			Shortwave:         sw,
			GroundTemperature: air + truth.SolarCoef*sw/1000 + truth.Offset,
		})
	}

	cal, err := FitLinearGround(samples)
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}

	if math.Abs(cal.Model.SolarCoef-truth.SolarCoef) > 1e-9 {
		t.Errorf("solar coef: got %.6f, want %.6f", cal.Model.SolarCoef, truth.SolarCoef)
	}
	if math.Abs(cal.Model.Offset-truth.Offset) > 1e-9 {
		t.Errorf("offset: got %.6f, want %.6f", cal.Model.Offset, truth.Offset)
	}
	if cal.RMSE > 1e-9 {
		t.Errorf("expected exact fit, RMSE %.3g", cal.RMSE)
	}
	if math.Abs(cal.RSquared-1) > 1e-9 {
		t.Errorf("expected R² of 1, got %.6f", cal.RSquared)
	}
	if cal.SampleCount != 24 {
		t.Errorf("sample count: got %d", cal.SampleCount)
	}
}

func TestFitLinearGroundTooFewSamples(t *testing.T) {
	_, err := FitLinearGround([]GroundSample{{}, {}})
	if err == nil {
		t.Fatal("expected error for two samples")
	}
}
