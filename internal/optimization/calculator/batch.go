package calculator

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/acquisition"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// BatchStrategy selects how diversity is enforced between points of
// the same batch.
type BatchStrategy int

const (
	// Fantasize assumes the posterior-mean outcome for each selected
	// point, updates the surrogate with it and re-optimizes the
	// acquisition before choosing the next point. Once the batch is
	// complete the surrogate is re-fit from the data it was fit on
	// before the batch started.
	Fantasize BatchStrategy = iota
	// Penalty applies an explicit distance penalty around selected
	// points via an acquisition.LocalPenalty decorator.
	Penalty
)

// trainingDataProvider is implemented by surrogates that expose the
// data they were last fit on. Suggesting a batch must not change the
// surrogate, and between loop re-fits that data can be a strict prefix
// of the loop state, so the state alone cannot restore it.
type trainingDataProvider interface {
	TrainingData() (X, Y *mat.Dense)
}

// Batch selects a diverse batch of points by running a single-point
// calculator sequentially.
type Batch struct {
	base     optimization.CandidatePointCalculator
	model    optimization.SurrogateModel
	sp       *space.ParameterSpace
	size     int
	strategy BatchStrategy
	penalty  *acquisition.LocalPenalty
	seed     int64
}

// BatchOption configures a Batch calculator.
type BatchOption func(*Batch)

// WithPenaltyStrategy switches the batch to explicit local penalties.
// The decorator must be the acquisition the base calculator optimizes.
func WithPenaltyStrategy(lp *acquisition.LocalPenalty) BatchOption {
	return func(b *Batch) {
		b.strategy = Penalty
		b.penalty = lp
	}
}

// WithBatchSeed fixes the seed used to resample duplicate points.
func WithBatchSeed(seed int64) BatchOption {
	return func(b *Batch) { b.seed = seed }
}

// NewBatch wraps a single-point calculator into one producing batches
// of the given size.
func NewBatch(base optimization.CandidatePointCalculator, model optimization.SurrogateModel, sp *space.ParameterSpace, size int, opts ...BatchOption) (*Batch, error) {
	if base == nil || model == nil || sp == nil {
		return nil, optimization.NewError("batch calculator requires a base calculator, a surrogate model and a parameter space")
	}
	if size < 1 {
		return nil, optimization.NewErrorf("batch size must be positive, got %d", size)
	}
	b := &Batch{base: base, model: model, sp: sp, size: size, strategy: Fantasize, seed: 1}
	for _, opt := range opts {
		opt(b)
	}
	if b.strategy == Penalty && b.penalty == nil {
		return nil, optimization.NewError("penalty strategy requires a local penalty decorator")
	}
	return b, nil
}

// ComputeNextPoints implements optimization.CandidatePointCalculator.
// Points within a batch are never identical.
func (b *Batch) ComputeNextPoints(state *optimization.LoopState) ([]optimization.CandidatePoint, error) {
	if b.size == 1 {
		return b.base.ComputeNextPoints(state)
	}

	rng := rand.New(rand.NewSource(b.seed ^ int64(state.Len())<<17))
	selected := make([]optimization.CandidatePoint, 0, b.size)
	inputs := make([][]float64, 0, b.size)

	var snapX, snapY *mat.Dense
	if b.strategy == Fantasize {
		snapX, snapY = b.trainingSnapshot(state)
	}

	defer func() {
		if b.strategy == Penalty {
			b.penalty.SetCenters(nil)
		}
	}()

	for i := 0; i < b.size; i++ {
		points, err := b.base.ComputeNextPoints(state)
		if err != nil {
			b.restore(snapX, snapY)
			return nil, err
		}
		point := points[0]
		if isDuplicate(point.Input, inputs) {
			// Small discrete spaces can resample onto an already
			// selected point, so retry a few times.
			for attempt := 0; attempt < 16; attempt++ {
				point.Input = b.sp.Sample(rng)
				if !isDuplicate(point.Input, inputs) {
					break
				}
			}
			point.Strategy = "resampled"
		}
		selected = append(selected, point)
		inputs = append(inputs, point.Input)

		if i == b.size-1 {
			break
		}
		switch b.strategy {
		case Fantasize:
			if err := b.fantasize(point.Input); err != nil {
				b.restore(snapX, snapY)
				return nil, err
			}
		case Penalty:
			b.penalty.SetCenters(inputs)
		}
	}

	if b.strategy == Fantasize {
		if err := b.restore(snapX, snapY); err != nil {
			return nil, err
		}
	}
	return selected, nil
}

// fantasize updates the surrogate with the posterior-mean outcome at x.
func (b *Batch) fantasize(x []float64) error {
	X := mat.NewDense(1, len(x), append([]float64(nil), x...))
	mean, _, err := b.model.Predict(X)
	if err != nil {
		return optimization.WrapError(err, "fantasized prediction failed").WithComponent("calculator")
	}
	_, cols := mean.Dims()
	Y := mat.NewDense(1, cols, nil)
	for j := 0; j < cols; j++ {
		Y.Set(0, j, mean.At(0, j))
	}
	if err := b.model.Update(X, Y); err != nil {
		return optimization.WrapError(err, "fantasized update failed").WithComponent("calculator")
	}
	return nil
}

// trainingSnapshot captures the data the surrogate must be returned to
// after fantasizing. Surrogates exposing their last-fit data are
// restored exactly; for the rest the loop state is the best available
// approximation and matches whenever the surrogate is freshly fit.
func (b *Batch) trainingSnapshot(state *optimization.LoopState) (*mat.Dense, *mat.Dense) {
	if p, ok := b.model.(trainingDataProvider); ok {
		if X, Y := p.TrainingData(); X != nil {
			return X, Y
		}
	}
	return state.X(), state.Y()
}

// restore re-fits the surrogate from the captured snapshot, discarding
// fantasized observations.
func (b *Batch) restore(X, Y *mat.Dense) error {
	if X == nil {
		return nil
	}
	if err := b.model.Fit(X, Y); err != nil {
		return optimization.WrapError(err, "surrogate restore failed").WithComponent("calculator")
	}
	return nil
}

func isDuplicate(x []float64, selected [][]float64) bool {
	for _, s := range selected {
		sum := 0.0
		for i := range x {
			diff := x[i] - s[i]
			sum += diff * diff
		}
		if math.Sqrt(sum) < 1e-9 {
			return true
		}
	}
	return false
}
