// Package kernels provides the stationary covariance functions used by
// the Gaussian Process surrogate.
package kernels

import (
	"fmt"
	"math"
)

// Kernel is a covariance function over pairs of input points.
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2.
	Eval(x1, x2 []float64) float64

	// Hyperparameters returns the current hyperparameters.
	Hyperparameters() []float64

	// SetHyperparameters sets the kernel's hyperparameters.
	SetHyperparameters(params []float64) error
}

// squaredDistance returns the squared Euclidean distance between two
// points.
func squaredDistance(x1, x2 []float64) float64 {
	sum := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sum += diff * diff
	}
	return sum
}

func validateScaleParams(lengthScale, signalVar float64) error {
	if lengthScale <= 0 {
		return fmt.Errorf("lengthScale must be positive, got %v", lengthScale)
	}
	if signalVar <= 0 {
		return fmt.Errorf("signalVar must be positive, got %v", signalVar)
	}
	return nil
}

// RBFKernel implements the Radial Basis Function (squared exponential)
// kernel.
type RBFKernel struct {
	// Length scale parameter (larger = smoother function)
	lengthScale float64
	// Signal variance (controls the amplitude of the function)
	signalVar float64
}

// NewRBFKernel creates a new RBF kernel with the given parameters.
func NewRBFKernel(lengthScale, signalVar float64) (*RBFKernel, error) {
	if err := validateScaleParams(lengthScale, signalVar); err != nil {
		return nil, err
	}
	return &RBFKernel{lengthScale: lengthScale, signalVar: signalVar}, nil
}

// Eval computes the RBF kernel value between x1 and x2.
func (k *RBFKernel) Eval(x1, x2 []float64) float64 {
	r2 := squaredDistance(x1, x2) / (2.0 * k.lengthScale * k.lengthScale)
	return k.signalVar * math.Exp(-r2)
}

// Hyperparameters returns the current hyperparameters.
func (k *RBFKernel) Hyperparameters() []float64 {
	return []float64{k.lengthScale, k.signalVar}
}

// SetHyperparameters sets the kernel's hyperparameters.
func (k *RBFKernel) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(params))
	}
	if params[0] <= 0 || params[1] <= 0 {
		return fmt.Errorf("hyperparameters must be positive, got %v", params)
	}
	k.lengthScale = params[0]
	k.signalVar = params[1]
	return nil
}

// Matern52Kernel implements the Matérn 5/2 kernel.
type Matern52Kernel struct {
	lengthScale float64
	signalVar   float64
}

// NewMatern52Kernel creates a new Matérn 5/2 kernel with the given
// parameters.
func NewMatern52Kernel(lengthScale, signalVar float64) (*Matern52Kernel, error) {
	if err := validateScaleParams(lengthScale, signalVar); err != nil {
		return nil, err
	}
	return &Matern52Kernel{lengthScale: lengthScale, signalVar: signalVar}, nil
}

// Default returns the kernel used when callers do not choose one: a
// Matérn 5/2 with unit length scale and variance.
func Default() Kernel {
	k, _ := NewMatern52Kernel(1.0, 1.0)
	return k
}

// Eval computes the Matérn 5/2 kernel value between x1 and x2.
func (k *Matern52Kernel) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(squaredDistance(x1, x2)) / k.lengthScale
	polyTerm := 1.0 + math.Sqrt(5)*r + (5.0/3.0)*r*r
	return k.signalVar * polyTerm * math.Exp(-math.Sqrt(5)*r)
}

// Hyperparameters returns the current hyperparameters.
func (k *Matern52Kernel) Hyperparameters() []float64 {
	return []float64{k.lengthScale, k.signalVar}
}

// SetHyperparameters sets the kernel's hyperparameters.
func (k *Matern52Kernel) SetHyperparameters(params []float64) error {
	if len(params) != 2 {
		return fmt.Errorf("expected 2 hyperparameters, got %d", len(params))
	}
	if params[0] <= 0 || params[1] <= 0 {
		return fmt.Errorf("hyperparameters must be positive, got %v", params)
	}
	k.lengthScale = params[0]
	k.signalVar = params[1]
	return nil
}
