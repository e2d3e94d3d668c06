package acquisition

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// stubModel is a surrogate model with a fixed constant posterior,
// optionally overridden per test.
type stubModel struct {
	mean     float64
	variance float64
	predict  func(X *mat.Dense) (*mat.Dense, *mat.Dense, error)
}

func (m *stubModel) Fit(X, Y *mat.Dense) error    { return nil }
func (m *stubModel) Update(X, Y *mat.Dense) error { return nil }

func (m *stubModel) Predict(X *mat.Dense) (*mat.Dense, *mat.Dense, error) {
	if m.predict != nil {
		return m.predict(X)
	}
	r, _ := X.Dims()
	mean := mat.NewDense(r, 1, nil)
	variance := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		mean.Set(i, 0, m.mean)
		variance.Set(i, 0, m.variance)
	}
	return mean, variance, nil
}

func testSpace(t *testing.T) *space.ParameterSpace {
	t.Helper()
	sp, err := space.New(space.NewContinuous("x", 0, 10))
	if err != nil {
		t.Fatalf("space.New: %v", err)
	}
	return sp
}

func TestFactory(t *testing.T) {
	model := &stubModel{variance: 1}
	sp := testSpace(t)

	tests := []struct {
		typ  Type
		name string
	}{
		{TypeEI, "expected_improvement"},
		{TypePI, "probability_of_improvement"},
		{TypeNLCB, "negative_lower_confidence_bound"},
		{TypeEntropySearch, "entropy_search"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acq, err := New(tt.typ, model, sp, 0.01)
			if err != nil {
				t.Fatalf("New(%v): %v", tt.typ, err)
			}
			if acq.Name() != tt.name {
				t.Errorf("expected name %q, got %q", tt.name, acq.Name())
			}
		})
	}

	if _, err := New(Type(42), model, sp, 0); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := New(TypeEI, nil, sp, 0); err == nil {
		t.Error("expected error for nil model")
	}
	if _, err := New(TypeEntropySearch, model, nil, 0); err == nil {
		t.Error("expected error for entropy search without a space")
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"ei", TypeEI},
		{"expected_improvement", TypeEI},
		{"PI", TypePI},
		{"nlcb", TypeNLCB},
		{"lcb", TypeNLCB},
		{"entropy_search", TypeEntropySearch},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseType("simulated_annealing"); err == nil {
		t.Error("expected error for unknown type name")
	}
}

func TestNegativeVarianceIsInvalidModelOutput(t *testing.T) {
	model := &stubModel{variance: -0.1}
	sp := testSpace(t)

	acqs := []Acquisition{
		NewExpectedImprovement(model, 0),
		NewProbabilityOfImprovement(model, 0),
		NewNegativeLowerConfidenceBound(model, 2),
		NewEntropySearch(model, sp),
	}
	for _, acq := range acqs {
		if _, err := acq.Evaluate([]float64{1}); !optimization.IsKind(err, optimization.KindInvalidModelOutput) {
			t.Errorf("%s: expected invalid model output error, got %v", acq.Name(), err)
		}
	}
}

func TestPosteriorShapeMismatch(t *testing.T) {
	model := &stubModel{
		predict: func(X *mat.Dense) (*mat.Dense, *mat.Dense, error) {
			r, _ := X.Dims()
			// Variance rows disagree with mean rows.
			return mat.NewDense(r, 1, nil), mat.NewDense(r+1, 1, nil), nil
		},
	}
	ei := NewExpectedImprovement(model, 0)
	if _, err := ei.Evaluate([]float64{1}); !optimization.IsKind(err, optimization.KindInvalidModelOutput) {
		t.Errorf("expected invalid model output error, got %v", err)
	}
}
