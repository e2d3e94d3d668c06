package loop

import (
	"math"
	"time"

	"github.com/frostlabs/boreal/internal/optimization"
)

// FixedIterations stops the loop once the iteration counter reaches n.
type FixedIterations struct {
	n int
}

// NewFixedIterations creates the canonical stopping condition: run
// exactly n iterations.
func NewFixedIterations(n int) *FixedIterations {
	return &FixedIterations{n: n}
}

// ShouldStop implements optimization.StoppingCondition.
func (c *FixedIterations) ShouldStop(state *optimization.LoopState) bool {
	return state.Iteration() >= c.n
}

// MaxWallClock stops the loop once a wall-clock budget has elapsed,
// measured from construction. An in-flight iteration is not
// interrupted; cancellation of running evaluations belongs to the
// caller's context.
type MaxWallClock struct {
	deadline time.Time
	now      func() time.Time
}

// NewMaxWallClock creates a wall-clock stopping condition.
func NewMaxWallClock(budget time.Duration) *MaxWallClock {
	return &MaxWallClock{deadline: time.Now().Add(budget), now: time.Now}
}

// ShouldStop implements optimization.StoppingCondition.
func (c *MaxWallClock) ShouldStop(*optimization.LoopState) bool {
	return !c.now().Before(c.deadline)
}

// ImprovementTolerance stops the loop once the incumbent has not
// improved by more than eps for patience consecutive iterations.
type ImprovementTolerance struct {
	eps      float64
	patience int

	best          float64
	lastIteration int
	stalled       int
}

// NewImprovementTolerance creates a convergence-tolerance stopping
// condition.
func NewImprovementTolerance(eps float64, patience int) *ImprovementTolerance {
	return &ImprovementTolerance{eps: eps, patience: patience, best: math.Inf(1), lastIteration: -1}
}

// ShouldStop implements optimization.StoppingCondition.
func (c *ImprovementTolerance) ShouldStop(state *optimization.LoopState) bool {
	if state.Iteration() == c.lastIteration {
		return c.stalled >= c.patience
	}
	c.lastIteration = state.Iteration()

	best := state.BestValue()
	if c.best-best > c.eps {
		c.best = best
		c.stalled = 0
	} else {
		c.stalled++
	}
	return c.stalled >= c.patience
}
