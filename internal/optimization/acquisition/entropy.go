package acquisition

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// Gauss-Hermite 3-point rule for averaging over a fantasized outcome
// y ~ N(mu, sigma^2).
var (
	ghNodes   = []float64{-math.Sqrt(1.5), 0, math.Sqrt(1.5)}
	ghWeights = []float64{1.0 / 6.0, 2.0 / 3.0, 1.0 / 6.0}
)

// EntropySearch approximates the expected reduction in entropy of the
// distribution over the objective's minimizer location after
// hypothetically observing a point.
//
// This is the expensive path of the acquisition family: each call
// draws Monte Carlo samples of the posterior over a fixed set of
// representer points sampled from the parameter space, estimates the
// entropy of the induced minimizer distribution, and averages the
// entropy under fantasized outcomes at the candidate. The posterior at
// the representer points is treated as independent marginals, a
// deliberate simplification over the full joint covariance.
type EntropySearch struct {
	model optimization.SurrogateModel
	sp    *space.ParameterSpace

	representers [][]float64
	samples      int
	seed         int64
}

// EntropySearchOption configures an EntropySearch.
type EntropySearchOption func(*EntropySearch)

// WithRepresenterCount sets the number of representer points.
func WithRepresenterCount(n int) EntropySearchOption {
	return func(es *EntropySearch) {
		if n > 0 {
			es.resample(n)
		}
	}
}

// WithSampleCount sets the number of Monte Carlo samples per entropy
// estimate.
func WithSampleCount(n int) EntropySearchOption {
	return func(es *EntropySearch) {
		if n > 0 {
			es.samples = n
		}
	}
}

// WithSeed fixes the seed of the Monte Carlo draws and representer
// sampling.
func WithSeed(seed int64) EntropySearchOption {
	return func(es *EntropySearch) {
		es.seed = seed
		es.resample(len(es.representers))
	}
}

// NewEntropySearch creates an entropy search acquisition over the
// given model and parameter space.
func NewEntropySearch(model optimization.SurrogateModel, sp *space.ParameterSpace, opts ...EntropySearchOption) *EntropySearch {
	es := &EntropySearch{
		model:   model,
		sp:      sp,
		samples: 128,
		seed:    1,
	}
	es.resample(64)
	for _, opt := range opts {
		opt(es)
	}
	return es
}

// resample redraws the representer set from the space.
func (es *EntropySearch) resample(n int) {
	rng := rand.New(rand.NewSource(es.seed))
	es.representers = make([][]float64, n)
	for i := range es.representers {
		es.representers[i] = es.sp.Sample(rng)
	}
}

// Name implements Acquisition.
func (es *EntropySearch) Name() string { return "entropy_search" }

// UpdateBest implements Acquisition. Entropy search scores information
// gain, not improvement over the incumbent.
func (es *EntropySearch) UpdateBest(float64) {}

// Evaluate implements Acquisition. The score is the estimated entropy
// of the current minimizer distribution minus its expected entropy
// after observing x, averaged over a three-point quadrature of the
// posterior at x. Monte Carlo draws are reseeded per call, so the
// score is a deterministic function of the posterior.
func (es *EntropySearch) Evaluate(x []float64) (float64, error) {
	mu, sigma, err := posterior(es.model, x)
	if err != nil {
		return 0, err
	}

	repMu, repSigma, err := es.representerPosterior()
	if err != nil {
		return 0, err
	}

	rng := rand.New(rand.NewSource(es.seed))
	base := es.minimizerEntropy(rng, repMu, repSigma, math.Inf(1))

	var fantasized float64
	for k, node := range ghNodes {
		y := mu + sigma*math.Sqrt2*node
		rng := rand.New(rand.NewSource(es.seed))
		fantasized += ghWeights[k] * es.minimizerEntropy(rng, repMu, repSigma, y)
	}
	return base - fantasized, nil
}

// representerPosterior queries the model at all representer points and
// validates the variances.
func (es *EntropySearch) representerPosterior() (mu, sigma []float64, err error) {
	n := len(es.representers)
	d := es.sp.Dimensionality()
	X := mat.NewDense(n, d, nil)
	for i, r := range es.representers {
		X.SetRow(i, r)
	}
	mean, variance, err := es.model.Predict(X)
	if err != nil {
		return nil, nil, optimization.WrapError(err, "surrogate prediction failed").WithComponent("acquisition")
	}
	mr, _ := mean.Dims()
	vr, _ := variance.Dims()
	if mr != n || vr != n {
		return nil, nil, optimization.NewInvalidModelOutputf(
			"posterior shape mismatch: %d representer points, mean rows %d, variance rows %d", n, mr, vr).WithComponent("acquisition")
	}
	mu = make([]float64, n)
	sigma = make([]float64, n)
	for i := 0; i < n; i++ {
		v := variance.At(i, 0)
		if v < 0 {
			return nil, nil, optimization.NewInvalidModelOutputf("negative predictive variance %v", v).WithComponent("acquisition")
		}
		mu[i] = mean.At(i, 0)
		sigma[i] = math.Sqrt(v)
	}
	return mu, sigma, nil
}

// minimizerEntropy estimates the entropy of the minimizer distribution
// over the representer set, with an optional fixed candidate value
// competing for the minimum (pass +Inf for none).
func (es *EntropySearch) minimizerEntropy(rng *rand.Rand, mu, sigma []float64, candidate float64) float64 {
	n := len(mu)
	counts := make([]int, n+1)
	for s := 0; s < es.samples; s++ {
		argmin := n // index n stands for the candidate
		min := candidate
		for i := 0; i < n; i++ {
			v := mu[i] + sigma[i]*rng.NormFloat64()
			if v < min {
				min = v
				argmin = i
			}
		}
		counts[argmin]++
	}

	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(es.samples)
		entropy -= p * math.Log(p)
	}
	return entropy
}
