package acquisition

import (
	"github.com/frostlabs/boreal/internal/optimization"
)

// NegativeLowerConfidenceBound scores a point by -(mu - beta*sigma)
// for minimization: low posterior mean and high uncertainty both raise
// the score. It has no singularity at sigma = 0 and does not depend on
// the incumbent.
type NegativeLowerConfidenceBound struct {
	model optimization.SurrogateModel
	// Exploration weight on the posterior standard deviation.
	beta float64
}

// NewNegativeLowerConfidenceBound creates an NLCB acquisition over the
// given model.
func NewNegativeLowerConfidenceBound(model optimization.SurrogateModel, beta float64) *NegativeLowerConfidenceBound {
	return &NegativeLowerConfidenceBound{model: model, beta: beta}
}

// Name implements Acquisition.
func (lcb *NegativeLowerConfidenceBound) Name() string { return "negative_lower_confidence_bound" }

// UpdateBest implements Acquisition. NLCB does not use the incumbent.
func (lcb *NegativeLowerConfidenceBound) UpdateBest(float64) {}

// Evaluate implements Acquisition.
func (lcb *NegativeLowerConfidenceBound) Evaluate(x []float64) (float64, error) {
	mu, sigma, err := posterior(lcb.model, x)
	if err != nil {
		return 0, err
	}
	return lcb.Compute(mu, sigma)
}

// Compute returns -(mu - beta*sigma).
func (lcb *NegativeLowerConfidenceBound) Compute(mu, sigma float64) (float64, error) {
	if sigma < 0 {
		return 0, optimization.NewInvalidModelOutputf("negative standard deviation %v", sigma).WithComponent("acquisition")
	}
	return -(mu - lcb.beta*sigma), nil
}
