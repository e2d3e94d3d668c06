// Package loop orchestrates the sequential model-based optimization
// cycle: suggest candidate points, evaluate the objective, append the
// results, and periodically re-fit the surrogate, until a stopping
// condition fires.
package loop

import (
	"context"

	"github.com/frostlabs/boreal/internal/logging"
	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/acquisition"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// Loop drives the iterate-evaluate-update cycle. It exclusively owns
// its LoopState; all mutation happens from the calling goroutine.
type Loop struct {
	model          optimization.SurrogateModel
	sp             *space.ParameterSpace
	acq            acquisition.Acquisition
	calc           optimization.CandidatePointCalculator
	state          *optimization.LoopState
	updateInterval int
	outputDim      int
	logger         *logging.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithUpdateInterval sets how many iterations pass between surrogate
// re-fits. The default is 1 (re-fit every iteration).
func WithUpdateInterval(k int) Option {
	return func(l *Loop) {
		if k > 0 {
			l.updateInterval = k
		}
	}
}

// WithOutputDim declares the objective's output dimensionality. The
// default is 1, or the dimensionality of the initial observations when
// present.
func WithOutputDim(d int) Option {
	return func(l *Loop) {
		if d > 0 {
			l.outputDim = d
		}
	}
}

// WithLogger sets the loop's logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New assembles a loop from already-built collaborators. Initial
// observation inputs are validated against the parameter space; the
// surrogate is fit once against the initial observations.
func New(model optimization.SurrogateModel, sp *space.ParameterSpace, acq acquisition.Acquisition, calc optimization.CandidatePointCalculator, initial []optimization.Observation, opts ...Option) (*Loop, error) {
	if model == nil || sp == nil || acq == nil || calc == nil {
		return nil, optimization.NewError("loop requires a surrogate model, a parameter space, an acquisition function and a candidate point calculator").WithComponent("loop")
	}

	l := &Loop{
		model:          model,
		sp:             sp,
		acq:            acq,
		calc:           calc,
		updateInterval: 1,
		outputDim:      0,
		logger:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	for i, obs := range initial {
		if !sp.Contains(obs.Input) {
			return nil, optimization.NewInvalidDomainf("initial observation %d input %v lies outside the parameter space", i, obs.Input).WithComponent("loop")
		}
		if l.outputDim == 0 {
			l.outputDim = len(obs.Output)
		}
		if len(obs.Output) != l.outputDim {
			return nil, optimization.NewEvaluationf("initial observation %d has %d outputs, want %d", i, len(obs.Output), l.outputDim).WithComponent("loop")
		}
	}
	if l.outputDim == 0 {
		l.outputDim = 1
	}

	l.state = optimization.NewLoopState(initial)
	if l.state.Len() > 0 {
		if err := model.Fit(l.state.X(), l.state.Y()); err != nil {
			return nil, optimization.WrapError(err, "initial surrogate fit failed").WithComponent("loop")
		}
		l.acq.UpdateBest(l.state.BestValue())
	}
	return l, nil
}

// State returns the loop state.
func (l *Loop) State() *optimization.LoopState {
	return l.state
}

// Best returns the incumbent observation.
func (l *Loop) Best() (optimization.Observation, bool) {
	return l.state.BestObservation()
}

// SuggestNextPoints returns the next candidate point or batch without
// evaluating the objective and without mutating the loop state. While
// the state is unchanged, successive calls return identical points.
func (l *Loop) SuggestNextPoints() ([]optimization.CandidatePoint, error) {
	points, err := l.calc.ComputeNextPoints(l.state)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, optimization.NewError("candidate point calculator returned no points").WithComponent("loop")
	}
	// Out-of-bounds candidates indicate a calculator bug, not user input.
	for _, p := range points {
		if !l.sp.Contains(p.Input) {
			return nil, optimization.NewInvalidDomainf("calculator produced point %v outside the parameter space", p.Input).WithComponent("loop")
		}
	}
	return points, nil
}

// Observe appends externally evaluated results to the loop state,
// advances the iteration counter and re-fits the surrogate on the
// configured interval. Inputs and outputs must be row-aligned.
func (l *Loop) Observe(inputs, outputs [][]float64) error {
	if len(inputs) == 0 || len(inputs) != len(outputs) {
		return optimization.NewEvaluationf("got %d inputs and %d outputs, want equal non-zero counts", len(inputs), len(outputs)).WithComponent("loop")
	}
	obs := make([]optimization.Observation, 0, len(inputs))
	for i := range inputs {
		if !l.sp.Contains(inputs[i]) {
			return optimization.NewInvalidDomainf("observation input %v lies outside the parameter space", inputs[i]).WithComponent("loop")
		}
		if len(outputs[i]) != l.outputDim {
			return optimization.NewEvaluationf("observation output has %d values, want %d", len(outputs[i]), l.outputDim).WithComponent("loop")
		}
		obs = append(obs, optimization.Observation{Input: inputs[i], Output: outputs[i]})
	}

	l.state.Append(obs...)
	l.state.AdvanceIteration()
	if err := l.maybeRefit(); err != nil {
		return err
	}
	l.acq.UpdateBest(l.state.BestValue())
	return nil
}

// Run repeats suggest-evaluate-append until the stopping condition
// fires. Fatal errors abort the run, leaving the loop state intact up
// to the last successful append.
func (l *Loop) Run(ctx context.Context, objective optimization.ObjectiveFunc, stop optimization.StoppingCondition) error {
	if objective == nil || stop == nil {
		return optimization.NewError("run requires an objective function and a stopping condition").WithComponent("loop")
	}

	for !stop.ShouldStop(l.state) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		points, err := l.SuggestNextPoints()
		if err != nil {
			return err
		}

		inputs := make([][]float64, len(points))
		for i, p := range points {
			inputs[i] = p.Input
		}
		outputs, err := objective(ctx, inputs)
		if err != nil {
			return optimization.WrapEvaluation(err, "objective evaluation failed").WithComponent("loop")
		}
		if err := l.Observe(inputs, outputs); err != nil {
			return err
		}

		if best, ok := l.state.BestObservation(); ok {
			l.logger.Debug("iteration complete", map[string]interface{}{
				"iteration":    l.state.Iteration(),
				"observations": l.state.Len(),
				"best_value":   best.Output[0],
			})
		}
	}

	l.logger.Info("optimization run finished", map[string]interface{}{
		"iterations":   l.state.Iteration(),
		"observations": l.state.Len(),
	})
	return nil
}

// maybeRefit re-fits the surrogate when the iteration counter reaches
// the update interval.
func (l *Loop) maybeRefit() error {
	if l.state.Iteration()%l.updateInterval != 0 {
		return nil
	}
	if err := l.model.Fit(l.state.X(), l.state.Y()); err != nil {
		return optimization.WrapError(err, "surrogate re-fit failed").WithComponent("loop")
	}
	return nil
}
