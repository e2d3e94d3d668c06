package optimization

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LoopState is the evolving record of an optimization run: the ordered
// sequence of all observations plus an iteration counter. It is
// append-only; rows are never edited after the fact. The input and
// output matrices it exposes are always row-aligned.
type LoopState struct {
	observations []Observation
	iteration    int
}

// NewLoopState creates a loop state seeded with the given observations.
// The iteration counter starts at zero; initial observations do not
// count as iterations.
func NewLoopState(initial []Observation) *LoopState {
	obs := make([]Observation, 0, len(initial))
	for _, o := range initial {
		obs = append(obs, copyObservation(o))
	}
	return &LoopState{observations: obs}
}

// Append records newly evaluated observations.
func (s *LoopState) Append(obs ...Observation) {
	for _, o := range obs {
		s.observations = append(s.observations, copyObservation(o))
	}
}

// AdvanceIteration increments the iteration counter.
func (s *LoopState) AdvanceIteration() {
	s.iteration++
}

// Iteration returns the number of completed loop iterations.
func (s *LoopState) Iteration() int {
	return s.iteration
}

// Len returns the number of observations recorded so far.
func (s *LoopState) Len() int {
	return len(s.observations)
}

// Observations returns a copy of the recorded observations.
func (s *LoopState) Observations() []Observation {
	out := make([]Observation, 0, len(s.observations))
	for _, o := range s.observations {
		out = append(out, copyObservation(o))
	}
	return out
}

// InputDim returns the input dimensionality, or 0 when empty.
func (s *LoopState) InputDim() int {
	if len(s.observations) == 0 {
		return 0
	}
	return len(s.observations[0].Input)
}

// OutputDim returns the output dimensionality, or 0 when empty.
func (s *LoopState) OutputDim() int {
	if len(s.observations) == 0 {
		return 0
	}
	return len(s.observations[0].Output)
}

// X returns the observation inputs as a row-per-observation matrix, or
// nil when there are no observations.
func (s *LoopState) X() *mat.Dense {
	n := len(s.observations)
	if n == 0 {
		return nil
	}
	d := len(s.observations[0].Input)
	X := mat.NewDense(n, d, nil)
	for i, o := range s.observations {
		X.SetRow(i, o.Input)
	}
	return X
}

// Y returns the observation outputs as a row-per-observation matrix,
// row-aligned with X, or nil when there are no observations.
func (s *LoopState) Y() *mat.Dense {
	n := len(s.observations)
	if n == 0 {
		return nil
	}
	d := len(s.observations[0].Output)
	Y := mat.NewDense(n, d, nil)
	for i, o := range s.observations {
		Y.SetRow(i, o.Output)
	}
	return Y
}

// BestValue returns the incumbent: the smallest first-output value seen
// so far, or +Inf when there are no observations.
func (s *LoopState) BestValue() float64 {
	best := math.Inf(1)
	for _, o := range s.observations {
		if len(o.Output) > 0 && o.Output[0] < best {
			best = o.Output[0]
		}
	}
	return best
}

// BestObservation returns the observation holding the incumbent value.
// The second return is false when the state is empty.
func (s *LoopState) BestObservation() (Observation, bool) {
	idx := -1
	best := math.Inf(1)
	for i, o := range s.observations {
		if len(o.Output) > 0 && o.Output[0] < best {
			best = o.Output[0]
			idx = i
		}
	}
	if idx < 0 {
		return Observation{}, false
	}
	return copyObservation(s.observations[idx]), true
}

func copyObservation(o Observation) Observation {
	return Observation{
		Input:  append([]float64(nil), o.Input...),
		Output: append([]float64(nil), o.Output...),
	}
}
