package acquisition

import (
	"math"
	"testing"

	"github.com/frostlabs/boreal/internal/optimization"
)

func TestNegativeLowerConfidenceBound(t *testing.T) {
	tests := []struct {
		name          string
		beta          float64
		mu            float64
		sigma         float64
		expectedValue float64
	}{
		{name: "standard beta", beta: 2.0, mu: 1.0, sigma: 0.5, expectedValue: 0.0},
		{name: "pure exploitation", beta: 0.0, mu: 1.0, sigma: 0.5, expectedValue: -1.0},
		{name: "zero variance", beta: 2.0, mu: -0.5, sigma: 0.0, expectedValue: 0.5},
		{name: "high uncertainty dominates", beta: 3.0, mu: 2.0, sigma: 4.0, expectedValue: 10.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lcb := NewNegativeLowerConfidenceBound(&stubModel{}, tt.beta)

			result, err := lcb.Compute(tt.mu, tt.sigma)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if math.Abs(result-tt.expectedValue) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.expectedValue, result)
			}
		})
	}
}

func TestNegativeLowerConfidenceBoundPrefersUncertainty(t *testing.T) {
	lcb := NewNegativeLowerConfidenceBound(&stubModel{}, 2.0)

	narrow, err := lcb.Compute(1.0, 0.1)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	wide, err := lcb.Compute(1.0, 1.0)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if wide <= narrow {
		t.Errorf("expected higher score at larger sigma, got narrow=%v wide=%v", narrow, wide)
	}
}

func TestNegativeLowerConfidenceBoundEvaluate(t *testing.T) {
	model := &stubModel{mean: 2.0, variance: 0.25}
	lcb := NewNegativeLowerConfidenceBound(model, 2.0)

	// -(mu - beta*sigma) = -(2 - 2*0.5) = -1
	result, err := lcb.Evaluate([]float64{0.5})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(result-(-1.0)) > 1e-12 {
		t.Errorf("expected -1, got %v", result)
	}
}

func TestNegativeLowerConfidenceBoundNegativeSigma(t *testing.T) {
	lcb := NewNegativeLowerConfidenceBound(&stubModel{}, 2.0)
	if _, err := lcb.Compute(0, -1); !optimization.IsKind(err, optimization.KindInvalidModelOutput) {
		t.Errorf("expected invalid model output error, got %v", err)
	}
}
