package calculator

import (
	"math"
	"math/rand"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/acquisition"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// RandomSearch maximizes the acquisition over a sampled candidate set.
// It handles discrete and categorical variables, which the gradient-
// free local search cannot. Candidate seeds are derived from the loop
// state, so repeated calls against an unchanged state return the same
// point.
type RandomSearch struct {
	acq    acquisition.Acquisition
	sp     *space.ParameterSpace
	budget int
	seed   int64
}

// RandomSearchOption configures a RandomSearch calculator.
type RandomSearchOption func(*RandomSearch)

// WithCandidateBudget sets the number of sampled candidates per call.
func WithCandidateBudget(n int) RandomSearchOption {
	return func(r *RandomSearch) {
		if n > 0 {
			r.budget = n
		}
	}
}

// WithRandomSeed fixes the candidate sampling seed.
func WithRandomSeed(seed int64) RandomSearchOption {
	return func(r *RandomSearch) { r.seed = seed }
}

// NewRandomSearch creates a sampled-search calculator.
func NewRandomSearch(acq acquisition.Acquisition, sp *space.ParameterSpace, opts ...RandomSearchOption) (*RandomSearch, error) {
	if acq == nil || sp == nil {
		return nil, optimization.NewError("calculator requires an acquisition function and a parameter space")
	}
	r := &RandomSearch{acq: acq, sp: sp, budget: 256, seed: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Acquisition returns the acquisition function being maximized.
func (r *RandomSearch) Acquisition() acquisition.Acquisition { return r.acq }

// ComputeNextPoints implements optimization.CandidatePointCalculator.
// It returns a single point, always inside the space. Ties go to the
// earliest sampled candidate.
func (r *RandomSearch) ComputeNextPoints(state *optimization.LoopState) ([]optimization.CandidatePoint, error) {
	rng := rand.New(rand.NewSource(r.seed ^ int64(state.Len())<<17 ^ int64(state.Iteration())<<32))

	bestVal := math.Inf(-1)
	var best []float64
	for i := 0; i < r.budget; i++ {
		x := r.sp.Sample(rng)
		v, err := r.acq.Evaluate(x)
		if err != nil {
			return nil, err
		}
		if v > bestVal {
			bestVal = v
			best = x
		}
	}
	return []optimization.CandidatePoint{{Input: best, Strategy: r.acq.Name()}}, nil
}
