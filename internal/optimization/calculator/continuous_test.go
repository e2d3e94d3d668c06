package calculator

import (
	"math"
	"testing"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// stubAcquisition scores points with a fixed function.
type stubAcquisition struct {
	name string
	fn   func(x []float64) (float64, error)
}

func (a *stubAcquisition) Name() string {
	if a.name == "" {
		return "stub"
	}
	return a.name
}

func (a *stubAcquisition) UpdateBest(float64) {}

func (a *stubAcquisition) Evaluate(x []float64) (float64, error) { return a.fn(x) }

func peakedAt(target float64) *stubAcquisition {
	return &stubAcquisition{fn: func(x []float64) (float64, error) {
		d := x[0] - target
		return -d * d, nil
	}}
}

func unitInterval(t *testing.T, max float64) *space.ParameterSpace {
	t.Helper()
	sp, err := space.New(space.NewContinuous("x", 0, max))
	if err != nil {
		t.Fatalf("space.New: %v", err)
	}
	return sp
}

func TestContinuousFindsPeak(t *testing.T) {
	sp := unitInterval(t, 10)
	calc, err := NewContinuous(peakedAt(3), sp)
	if err != nil {
		t.Fatalf("NewContinuous: %v", err)
	}

	points, err := calc.ComputeNextPoints(optimization.NewLoopState(nil))
	if err != nil {
		t.Fatalf("ComputeNextPoints: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected one point, got %d", len(points))
	}
	if math.Abs(points[0].Input[0]-3) > 0.05 {
		t.Errorf("expected point near 3, got %v", points[0].Input[0])
	}
	if points[0].Strategy != "stub" {
		t.Errorf("expected strategy from acquisition name, got %q", points[0].Strategy)
	}
}

func TestContinuousStaysInBounds(t *testing.T) {
	// The acquisition peaks outside the space, so the search presses
	// against the boundary.
	sp := unitInterval(t, 10)
	calc, err := NewContinuous(peakedAt(15), sp)
	if err != nil {
		t.Fatalf("NewContinuous: %v", err)
	}

	points, err := calc.ComputeNextPoints(optimization.NewLoopState(nil))
	if err != nil {
		t.Fatalf("ComputeNextPoints: %v", err)
	}
	if !sp.Contains(points[0].Input) {
		t.Errorf("point %v escapes the space bounds", points[0].Input)
	}
}

func TestContinuousDeterministicWhileStateUnchanged(t *testing.T) {
	sp := unitInterval(t, 10)
	calc, err := NewContinuous(peakedAt(7), sp, WithSeed(42))
	if err != nil {
		t.Fatalf("NewContinuous: %v", err)
	}

	state := optimization.NewLoopState([]optimization.Observation{
		{Input: []float64{2}, Output: []float64{4}},
	})

	first, err := calc.ComputeNextPoints(state)
	if err != nil {
		t.Fatalf("ComputeNextPoints: %v", err)
	}
	second, err := calc.ComputeNextPoints(state)
	if err != nil {
		t.Fatalf("ComputeNextPoints: %v", err)
	}
	if first[0].Input[0] != second[0].Input[0] {
		t.Errorf("suggestion changed without new observations: %v vs %v", first[0].Input, second[0].Input)
	}

	state.Append(optimization.Observation{Input: []float64{5}, Output: []float64{1}})
	third, err := calc.ComputeNextPoints(state)
	if err != nil {
		t.Fatalf("ComputeNextPoints: %v", err)
	}
	_ = third // a new observation may legitimately move the point
}

func TestContinuousStartsFromIncumbent(t *testing.T) {
	// With zero-width peaks random restarts almost never land on the
	// optimum, but the incumbent start does.
	sp := unitInterval(t, 10)
	acq := &stubAcquisition{fn: func(x []float64) (float64, error) {
		if x[0] == 4 {
			return 1, nil
		}
		return 0, nil
	}}
	calc, err := NewContinuous(acq, sp, WithRestarts(2))
	if err != nil {
		t.Fatalf("NewContinuous: %v", err)
	}

	state := optimization.NewLoopState([]optimization.Observation{
		{Input: []float64{4}, Output: []float64{-1}},
		{Input: []float64{9}, Output: []float64{5}},
	})
	points, err := calc.ComputeNextPoints(state)
	if err != nil {
		t.Fatalf("ComputeNextPoints: %v", err)
	}
	if points[0].Input[0] != 4 {
		t.Errorf("expected the incumbent start to win, got %v", points[0].Input[0])
	}
}

func TestContinuousPropagatesModelErrors(t *testing.T) {
	sp := unitInterval(t, 10)
	acq := &stubAcquisition{fn: func(x []float64) (float64, error) {
		return 0, optimization.NewInvalidModelOutputf("negative predictive variance -0.1")
	}}
	calc, err := NewContinuous(acq, sp)
	if err != nil {
		t.Fatalf("NewContinuous: %v", err)
	}

	_, err = calc.ComputeNextPoints(optimization.NewLoopState(nil))
	if !optimization.IsKind(err, optimization.KindInvalidModelOutput) {
		t.Errorf("expected invalid model output error, got %v", err)
	}
}

func TestContinuousRejectsMixedSpaces(t *testing.T) {
	sp, err := space.New(
		space.NewContinuous("x", 0, 1),
		space.NewDiscrete("n", 1, 2, 3),
	)
	if err != nil {
		t.Fatalf("space.New: %v", err)
	}
	if _, err := NewContinuous(peakedAt(0), sp); err == nil {
		t.Error("expected error for a space with discrete variables")
	}
}
