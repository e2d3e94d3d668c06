package acquisition

import (
	"math"
	"testing"

	"github.com/frostlabs/boreal/internal/optimization"
)

func TestProbabilityOfImprovement(t *testing.T) {
	tests := []struct {
		name          string
		best          float64
		xi            float64
		mu            float64
		sigma         float64
		expectedValue float64
		tolerance     float64
	}{
		{
			name:          "mean at threshold",
			best:          1.0,
			xi:            0.0,
			mu:            1.0,
			sigma:         0.5,
			expectedValue: 0.5, // z = 0
			tolerance:     1e-12,
		},
		{
			name:          "one sigma below threshold",
			best:          1.0,
			xi:            0.0,
			mu:            0.5,
			sigma:         0.5,
			expectedValue: 0.8413447460685429, // Phi(1)
			tolerance:     1e-10,
		},
		{
			name:          "exploration margin shifts threshold",
			best:          1.0,
			xi:            0.5,
			mu:            0.5,
			sigma:         0.5,
			expectedValue: 0.5, // threshold moves to 0.5, z = 0
			tolerance:     1e-12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewProbabilityOfImprovement(&stubModel{}, tt.xi)
			pi.UpdateBest(tt.best)

			result, err := pi.Compute(tt.mu, tt.sigma)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if math.Abs(result-tt.expectedValue) > tt.tolerance {
				t.Errorf("expected %v, got %v", tt.expectedValue, result)
			}
		})
	}
}

// The boundary convention at sigma = 0 is deliberate: the score is 1
// only when the mean strictly improves on best - xi, and 0 at or above
// the threshold.
func TestProbabilityOfImprovementZeroSigmaBoundary(t *testing.T) {
	tests := []struct {
		name     string
		best     float64
		xi       float64
		mu       float64
		expected float64
	}{
		{name: "strictly better", best: 1.0, xi: 0.0, mu: 0.5, expected: 1},
		{name: "exactly at threshold", best: 1.0, xi: 0.0, mu: 1.0, expected: 0},
		{name: "worse", best: 1.0, xi: 0.0, mu: 1.5, expected: 0},
		{name: "better than best but inside margin", best: 1.0, xi: 0.2, mu: 0.9, expected: 0},
		{name: "strictly better than margin threshold", best: 1.0, xi: 0.2, mu: 0.7, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewProbabilityOfImprovement(&stubModel{}, tt.xi)
			pi.UpdateBest(tt.best)

			result, err := pi.Compute(tt.mu, 0)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestProbabilityOfImprovementRange(t *testing.T) {
	pi := NewProbabilityOfImprovement(&stubModel{}, 0)
	pi.UpdateBest(1.0)

	for _, mu := range []float64{-5, 0, 1, 5} {
		for _, sigma := range []float64{0, 0.1, 1, 10} {
			v, err := pi.Compute(mu, sigma)
			if err != nil {
				t.Fatalf("Compute(%v, %v): %v", mu, sigma, err)
			}
			if v < 0 || v > 1 {
				t.Errorf("Compute(%v, %v) = %v, want within [0, 1]", mu, sigma, v)
			}
		}
	}
}

func TestProbabilityOfImprovementNegativeSigma(t *testing.T) {
	pi := NewProbabilityOfImprovement(&stubModel{}, 0)
	if _, err := pi.Compute(0, -0.5); !optimization.IsKind(err, optimization.KindInvalidModelOutput) {
		t.Errorf("expected invalid model output error, got %v", err)
	}
}
