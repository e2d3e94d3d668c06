package acquisition

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/frostlabs/boreal/internal/optimization"
)

// ProbabilityOfImprovement scores a point by the posterior probability
// that its objective value improves on the incumbent by at least the
// exploration margin xi: P(f(x) < best - xi).
type ProbabilityOfImprovement struct {
	model optimization.SurrogateModel
	best  float64
	xi    float64
}

// NewProbabilityOfImprovement creates a PI acquisition over the given
// model. The incumbent starts at +Inf until UpdateBest is called.
func NewProbabilityOfImprovement(model optimization.SurrogateModel, xi float64) *ProbabilityOfImprovement {
	return &ProbabilityOfImprovement{model: model, best: math.Inf(1), xi: xi}
}

// Name implements Acquisition.
func (pi *ProbabilityOfImprovement) Name() string { return "probability_of_improvement" }

// UpdateBest refreshes the incumbent.
func (pi *ProbabilityOfImprovement) UpdateBest(best float64) { pi.best = best }

// Evaluate implements Acquisition.
func (pi *ProbabilityOfImprovement) Evaluate(x []float64) (float64, error) {
	mu, sigma, err := posterior(pi.model, x)
	if err != nil {
		return 0, err
	}
	return pi.Compute(mu, sigma)
}

// Compute returns Phi((best - xi - mu) / sigma). At sigma = 0 the
// prediction is certain: the score is 1 when mu improves strictly on
// best - xi and 0 otherwise, a point exactly at the threshold yields
// no improvement.
func (pi *ProbabilityOfImprovement) Compute(mu, sigma float64) (float64, error) {
	if sigma < 0 {
		return 0, optimization.NewInvalidModelOutputf("negative standard deviation %v", sigma).WithComponent("acquisition")
	}
	threshold := pi.best - pi.xi
	if sigma == 0 {
		if mu < threshold {
			return 1, nil
		}
		return 0, nil
	}
	return distuv.UnitNormal.CDF((threshold - mu) / sigma), nil
}
