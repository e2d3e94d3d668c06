// Package bayesian provides the default surrogate model: a zero-mean
// Gaussian Process regressor over a stationary kernel, fit by Cholesky
// factorization of the kernel matrix.
package bayesian

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/kernels"
)

// GP implements optimization.SurrogateModel with Gaussian Process
// regression. It supports single-output objectives; the posterior
// variance it reports is never negative.
type GP struct {
	kernel kernels.Kernel

	// Observation noise added to the kernel diagonal; also keeps the
	// factorization numerically stable.
	noiseVar float64

	// Training data, row-aligned.
	X *mat.Dense
	y *mat.VecDense

	// Precomputed at fit time.
	alpha *mat.VecDense
	chol  *mat.Cholesky

	pool   *MatrixPool
	logger *zap.Logger
}

// GPOption configures a GP.
type GPOption func(*GP)

// WithLogger sets the GP's logger.
func WithLogger(logger *zap.Logger) GPOption {
	return func(gp *GP) {
		if logger != nil {
			gp.logger = logger.Named("gaussian_process")
		}
	}
}

// NewGP creates a Gaussian Process surrogate with the given kernel and
// observation noise variance.
func NewGP(kernel kernels.Kernel, noiseVar float64, opts ...GPOption) *GP {
	gp := &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		pool:     NewMatrixPool(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(gp)
	}
	return gp
}

// Fit trains the GP from scratch on row-aligned inputs and outputs.
func (gp *GP) Fit(X, Y *mat.Dense) error {
	const op = "GP.Fit"

	if X == nil || Y == nil {
		return optimization.NewError("training matrices must not be nil").WithComponent("gaussian_process").WithOperation(op)
	}
	nSamples, nFeatures := X.Dims()
	yRows, yCols := Y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return optimization.NewError("training inputs must not be empty").WithComponent("gaussian_process").WithOperation(op)
	}
	if yRows != nSamples {
		return optimization.NewErrorf("row mismatch: %d inputs, %d outputs", nSamples, yRows).WithComponent("gaussian_process").WithOperation(op)
	}
	if yCols != 1 {
		return optimization.NewErrorf("multi-output training is not supported, got %d output columns", yCols).WithComponent("gaussian_process").WithOperation(op)
	}

	gp.logger.Debug("fitting GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
	)

	K := gp.pool.GetSymDense(nSamples)
	defer gp.pool.PutSymDense(K)
	for i := 0; i < nSamples; i++ {
		xi := mat.Row(nil, i, X)
		for j := i; j < nSamples; j++ {
			K.SetSym(i, j, gp.kernel.Eval(xi, mat.Row(nil, j, X)))
		}
		K.SetSym(i, i, K.At(i, i)+gp.noiseVar)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(K); !ok {
		return optimization.NewError("kernel matrix is not positive definite").WithComponent("gaussian_process").WithOperation(op)
	}

	y := mat.NewVecDense(nSamples, mat.Col(nil, 0, Y))
	alpha := mat.NewVecDense(nSamples, nil)
	if err := chol.SolveVecTo(alpha, y); err != nil {
		return optimization.WrapError(err, "failed to solve for alpha").WithComponent("gaussian_process").WithOperation(op)
	}

	gp.X = mat.DenseCopyOf(X)
	gp.y = y
	gp.alpha = alpha
	gp.chol = &chol
	return nil
}

// TrainingData returns copies of the inputs and outputs the model was
// last fit on, or nil before the first fit. Callers that temporarily
// update the model can re-fit from the returned matrices to undo it.
func (gp *GP) TrainingData() (X, Y *mat.Dense) {
	if gp.X == nil {
		return nil, nil
	}
	n, _ := gp.X.Dims()
	Y = mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		Y.Set(i, 0, gp.y.AtVec(i))
	}
	return mat.DenseCopyOf(gp.X), Y
}

// Update incorporates additional observations by re-fitting on the
// concatenation of the stored and new training data.
func (gp *GP) Update(X, Y *mat.Dense) error {
	const op = "GP.Update"

	if gp.X == nil {
		return gp.Fit(X, Y)
	}
	if X == nil || Y == nil {
		return optimization.NewError("training matrices must not be nil").WithComponent("gaussian_process").WithOperation(op)
	}

	oldN, d := gp.X.Dims()
	newN, newD := X.Dims()
	if newD != d {
		return optimization.NewErrorf("feature mismatch: model has %d features, update has %d", d, newD).WithComponent("gaussian_process").WithOperation(op)
	}

	allX := mat.NewDense(oldN+newN, d, nil)
	allY := mat.NewDense(oldN+newN, 1, nil)
	for i := 0; i < oldN; i++ {
		allX.SetRow(i, mat.Row(nil, i, gp.X))
		allY.Set(i, 0, gp.y.AtVec(i))
	}
	for i := 0; i < newN; i++ {
		allX.SetRow(oldN+i, mat.Row(nil, i, X))
		allY.Set(oldN+i, 0, Y.At(i, 0))
	}
	return gp.Fit(allX, allY)
}

// Predict returns the posterior mean and variance at each row of X.
// Variances are floored at zero against factorization jitter.
func (gp *GP) Predict(X *mat.Dense) (mean, variance *mat.Dense, err error) {
	const op = "GP.Predict"

	if gp.X == nil || gp.alpha == nil || gp.chol == nil {
		return nil, nil, optimization.NewError("model has not been fitted").WithComponent("gaussian_process").WithOperation(op)
	}
	if X == nil {
		return nil, nil, optimization.NewError("prediction inputs must not be nil").WithComponent("gaussian_process").WithOperation(op)
	}
	nTest, nFeatures := X.Dims()
	nTrain, trainFeatures := gp.X.Dims()
	if nFeatures != trainFeatures {
		return nil, nil, optimization.NewErrorf("feature mismatch: model has %d features, query has %d", trainFeatures, nFeatures).WithComponent("gaussian_process").WithOperation(op)
	}

	mean = mat.NewDense(nTest, 1, nil)
	variance = mat.NewDense(nTest, 1, nil)

	k := gp.pool.GetVecDense(nTrain)
	defer gp.pool.PutVecDense(k)
	v := gp.pool.GetVecDense(nTrain)
	defer gp.pool.PutVecDense(v)

	for i := 0; i < nTest; i++ {
		xi := mat.Row(nil, i, X)
		for j := 0; j < nTrain; j++ {
			k.SetVec(j, gp.kernel.Eval(xi, mat.Row(nil, j, gp.X)))
		}

		mean.Set(i, 0, mat.Dot(k, gp.alpha))

		if err := gp.chol.SolveVecTo(v, k); err != nil {
			return nil, nil, optimization.WrapError(err, "failed to solve for predictive variance").WithComponent("gaussian_process").WithOperation(op)
		}
		variance.Set(i, 0, math.Max(0, gp.kernel.Eval(xi, xi)-mat.Dot(k, v)))
	}
	return mean, variance, nil
}
