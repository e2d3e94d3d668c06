package acquisition

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/frostlabs/boreal/internal/optimization"
)

// ExpectedImprovement scores a point by the expected amount by which
// evaluating it improves on the incumbent, for minimization:
// E[max(0, best - f(x))] in closed form from the posterior mean and
// standard deviation.
type ExpectedImprovement struct {
	model optimization.SurrogateModel
	// Best observed value so far.
	best float64
	// Exploration margin added to the incumbent.
	xi float64
}

// NewExpectedImprovement creates an EI acquisition over the given
// model. The incumbent starts at +Inf until UpdateBest is called.
func NewExpectedImprovement(model optimization.SurrogateModel, xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{model: model, best: math.Inf(1), xi: xi}
}

// Name implements Acquisition.
func (ei *ExpectedImprovement) Name() string { return "expected_improvement" }

// UpdateBest refreshes the incumbent.
func (ei *ExpectedImprovement) UpdateBest(best float64) { ei.best = best }

// Best returns the cached incumbent.
func (ei *ExpectedImprovement) Best() float64 { return ei.best }

// Evaluate implements Acquisition.
func (ei *ExpectedImprovement) Evaluate(x []float64) (float64, error) {
	mu, sigma, err := posterior(ei.model, x)
	if err != nil {
		return 0, err
	}
	return ei.Compute(mu, sigma)
}

// Compute returns the expected improvement for a posterior mean and
// standard deviation. At sigma = 0 the point is already certain and
// the expected improvement is 0.
func (ei *ExpectedImprovement) Compute(mu, sigma float64) (float64, error) {
	if sigma < 0 {
		return 0, optimization.NewInvalidModelOutputf("negative standard deviation %v", sigma).WithComponent("acquisition")
	}
	if sigma == 0 {
		return 0, nil
	}

	improvement := ei.best - ei.xi - mu
	z := improvement / sigma

	stdNormal := distuv.UnitNormal
	value := improvement*stdNormal.CDF(z) + sigma*stdNormal.Prob(z)
	if value < 0 {
		// Numerical underflow in the tails.
		return 0, nil
	}
	return value, nil
}
