// Package optimization defines the core types of the sequential
// model-based optimization loop: observations, loop state, and the
// capability interfaces the loop is assembled from.
package optimization

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// SurrogateModel is the probabilistic model the loop fits to the
// observations seen so far. Implementations are external collaborators;
// the loop only requires that Predict reports a non-negative variance.
type SurrogateModel interface {
	// Fit trains the model from scratch on the given row-aligned data.
	Fit(X, Y *mat.Dense) error

	// Update incorporates additional row-aligned data into the model.
	Update(X, Y *mat.Dense) error

	// Predict returns the posterior mean and variance at each row of X,
	// both shaped like the training outputs.
	Predict(X *mat.Dense) (mean, variance *mat.Dense, err error)
}

// ObjectiveFunc evaluates the user's objective at a batch of input
// vectors and returns row-aligned output vectors. An error signals
// evaluation failure and aborts the run.
type ObjectiveFunc func(ctx context.Context, X [][]float64) ([][]float64, error)

// StoppingCondition decides when the loop terminates.
type StoppingCondition interface {
	ShouldStop(state *LoopState) bool
}

// CandidatePointCalculator produces the next point or batch of points
// to evaluate given the current loop state.
type CandidatePointCalculator interface {
	ComputeNextPoints(state *LoopState) ([]CandidatePoint, error)
}

// Observation is one evaluated input/output pair.
type Observation struct {
	Input  []float64
	Output []float64
}

// CandidatePoint is a proposed next input vector together with the
// name of the strategy that produced it.
type CandidatePoint struct {
	Input    []float64
	Strategy string
}
