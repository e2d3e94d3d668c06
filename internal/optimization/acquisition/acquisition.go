// Package acquisition implements the acquisition functions that score
// candidate points from a surrogate model's posterior: expected
// improvement, probability of improvement, negative lower confidence
// bound and entropy search. Higher scores are better; the candidate
// calculator maximizes them.
package acquisition

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// Acquisition scores a candidate input point by the value of
// evaluating the objective there. Implementations hold a read-only
// reference to a surrogate model and no mutable state beyond their
// configuration and the incumbent cache.
type Acquisition interface {
	// Evaluate returns the score at x. Higher is better.
	Evaluate(x []float64) (float64, error)

	// UpdateBest refreshes the cached incumbent (best observed value).
	UpdateBest(best float64)

	// Name identifies the strategy, e.g. in candidate points.
	Name() string
}

// Type enumerates the acquisition function variants.
type Type int

const (
	// TypeEI selects ExpectedImprovement.
	TypeEI Type = iota
	// TypePI selects ProbabilityOfImprovement.
	TypePI
	// TypeNLCB selects NegativeLowerConfidenceBound.
	TypeNLCB
	// TypeEntropySearch selects EntropySearch, the expensive
	// Monte Carlo variant.
	TypeEntropySearch
)

// String returns the type's name.
func (t Type) String() string {
	switch t {
	case TypeEI:
		return "ei"
	case TypePI:
		return "pi"
	case TypeNLCB:
		return "nlcb"
	case TypeEntropySearch:
		return "entropy_search"
	default:
		return "unknown"
	}
}

// ParseType maps a configuration string to an acquisition type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "ei", "expected_improvement":
		return TypeEI, nil
	case "pi", "probability_of_improvement":
		return TypePI, nil
	case "nlcb", "lcb", "negative_lower_confidence_bound":
		return TypeNLCB, nil
	case "entropy_search", "es":
		return TypeEntropySearch, nil
	default:
		return 0, fmt.Errorf("unknown acquisition type %q", s)
	}
}

// New constructs the acquisition function for the given type. The
// param argument is the exploration parameter of the variant: xi for
// EI and PI, beta for NLCB; it is ignored by entropy search. The
// parameter space is required only by entropy search, which samples
// representer points from it.
func New(t Type, model optimization.SurrogateModel, sp *space.ParameterSpace, param float64) (Acquisition, error) {
	if model == nil {
		return nil, optimization.NewError("acquisition requires a surrogate model")
	}
	switch t {
	case TypeEI:
		return NewExpectedImprovement(model, param), nil
	case TypePI:
		return NewProbabilityOfImprovement(model, param), nil
	case TypeNLCB:
		return NewNegativeLowerConfidenceBound(model, param), nil
	case TypeEntropySearch:
		if sp == nil {
			return nil, optimization.NewError("entropy search requires a parameter space")
		}
		return NewEntropySearch(model, sp), nil
	default:
		return nil, optimization.NewErrorf("unknown acquisition type %d", int(t))
	}
}

// posterior queries the model at a single point and validates the
// prediction: mean and variance must be 1x1-or-wider row matrices of
// equal shape, and variance must be non-negative.
func posterior(model optimization.SurrogateModel, x []float64) (mu, sigma float64, err error) {
	X := mat.NewDense(1, len(x), append([]float64(nil), x...))
	mean, variance, err := model.Predict(X)
	if err != nil {
		return 0, 0, optimization.WrapError(err, "surrogate prediction failed").WithComponent("acquisition")
	}
	if mean == nil || variance == nil {
		return 0, 0, optimization.NewInvalidModelOutputf("surrogate returned nil posterior").WithComponent("acquisition")
	}
	mr, mc := mean.Dims()
	vr, vc := variance.Dims()
	if mr != 1 || mc < 1 || vr != mr || vc != mc {
		return 0, 0, optimization.NewInvalidModelOutputf(
			"posterior shape mismatch: mean %dx%d, variance %dx%d", mr, mc, vr, vc).WithComponent("acquisition")
	}
	v := variance.At(0, 0)
	if v < 0 {
		return 0, 0, optimization.NewInvalidModelOutputf("negative predictive variance %v", v).WithComponent("acquisition")
	}
	return mean.At(0, 0), math.Sqrt(v), nil
}
