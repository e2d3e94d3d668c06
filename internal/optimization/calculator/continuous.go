// Package calculator converts an acquisition function's scalar field
// over the parameter space into concrete next points: multi-start
// local search for continuous spaces, sampled search for spaces with
// discrete or categorical variables, and sequential batch selection on
// top of either.
package calculator

import (
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/acquisition"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// Continuous maximizes the acquisition over a fully continuous
// parameter space with Nelder-Mead local search from multiple random
// restarts. Restart seeds are derived from the loop state, so repeated
// calls against an unchanged state return the same point.
type Continuous struct {
	acq      acquisition.Acquisition
	sp       *space.ParameterSpace
	restarts int
	seed     int64
	logger   *zap.Logger
}

// ContinuousOption configures a Continuous calculator.
type ContinuousOption func(*Continuous)

// WithRestarts sets the number of random restarts.
func WithRestarts(n int) ContinuousOption {
	return func(c *Continuous) {
		if n > 0 {
			c.restarts = n
		}
	}
}

// WithSeed fixes the restart sampling seed.
func WithSeed(seed int64) ContinuousOption {
	return func(c *Continuous) { c.seed = seed }
}

// WithLogger sets the logger used for convergence warnings.
func WithLogger(logger *zap.Logger) ContinuousOption {
	return func(c *Continuous) { c.logger = logger }
}

// NewContinuous creates a multi-start calculator. The space must be
// fully continuous; use RandomSearch for spaces with discrete or
// categorical variables.
func NewContinuous(acq acquisition.Acquisition, sp *space.ParameterSpace, opts ...ContinuousOption) (*Continuous, error) {
	if acq == nil || sp == nil {
		return nil, optimization.NewError("calculator requires an acquisition function and a parameter space")
	}
	if !sp.AllContinuous() {
		return nil, optimization.NewError("multi-start search requires a fully continuous space")
	}
	c := &Continuous{
		acq:      acq,
		sp:       sp,
		restarts: 5 + int(5*math.Sqrt(float64(sp.Dimensionality()))),
		seed:     1,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Acquisition returns the acquisition function being maximized.
func (c *Continuous) Acquisition() acquisition.Acquisition { return c.acq }

// ComputeNextPoints implements optimization.CandidatePointCalculator.
// It returns a single point, always inside the space bounds.
func (c *Continuous) ComputeNextPoints(state *optimization.LoopState) ([]optimization.CandidatePoint, error) {
	rng := rand.New(rand.NewSource(c.stateSeed(state)))

	starts := c.buildStarts(state, rng)

	// Score the raw starts first. This is the baseline the local search
	// has to beat, and it surfaces model errors before the optimizer
	// swallows them.
	baselineVal := math.Inf(-1)
	var baseline []float64
	for _, s := range starts {
		v, err := c.acq.Evaluate(s)
		if err != nil {
			return nil, err
		}
		if v > baselineVal {
			baselineVal = v
			baseline = s
		}
	}

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v, err := c.acq.Evaluate(c.sp.Clip(x))
			if err != nil {
				if evalErr == nil {
					evalErr = err
				}
				return math.Inf(1)
			}
			return -v
		},
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-6,
			Relative:   1e-6,
			Iterations: 100,
		},
	}

	bestVal := math.Inf(-1)
	bestConverged := false
	var best []float64
	for _, start := range starts {
		result, err := optimize.Minimize(problem, append([]float64(nil), start...), settings, &optimize.NelderMead{})
		if evalErr != nil {
			return nil, evalErr
		}
		if err != nil || result == nil {
			continue
		}
		val := -result.F
		converged := result.Status != optimize.Failure && result.Status != optimize.NotTerminated
		// Ties go to the restart that converged, then to restart order.
		if val > bestVal || (val == bestVal && converged && !bestConverged) {
			bestVal = val
			bestConverged = converged
			best = c.sp.Clip(result.X)
		}
	}

	if best == nil || bestVal < baselineVal {
		c.logger.Warn("acquisition search failed to improve over sampled baseline",
			zap.Int("restarts", c.restarts),
			zap.Float64("baseline", baselineVal),
		)
		best = append([]float64(nil), baseline...)
	}

	return []optimization.CandidatePoint{{Input: best, Strategy: c.acq.Name()}}, nil
}

// buildStarts returns the incumbent (when present) plus random points.
func (c *Continuous) buildStarts(state *optimization.LoopState, rng *rand.Rand) [][]float64 {
	starts := make([][]float64, 0, c.restarts+1)
	if incumbent, ok := state.BestObservation(); ok {
		starts = append(starts, incumbent.Input)
	}
	for i := 0; i < c.restarts; i++ {
		starts = append(starts, c.sp.Sample(rng))
	}
	return starts
}

// stateSeed derives a deterministic seed from the loop state so that
// suggestions are idempotent while the state is unchanged.
func (c *Continuous) stateSeed(state *optimization.LoopState) int64 {
	return c.seed ^ int64(state.Len())<<17 ^ int64(state.Iteration())<<32
}
