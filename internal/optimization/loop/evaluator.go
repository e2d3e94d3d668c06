package loop

import (
	"context"
	"sync"

	"github.com/frostlabs/boreal/internal/optimization"
)

// PointFunc evaluates the objective at a single input vector.
type PointFunc func(ctx context.Context, x []float64) ([]float64, error)

// Sequential adapts a per-point objective into a batch objective that
// evaluates points one after another.
func Sequential(fn PointFunc) optimization.ObjectiveFunc {
	return func(ctx context.Context, X [][]float64) ([][]float64, error) {
		Y := make([][]float64, len(X))
		for i, x := range X {
			y, err := fn(ctx, x)
			if err != nil {
				return nil, err
			}
			Y[i] = y
		}
		return Y, nil
	}
}

// Parallel adapts a per-point objective into a batch objective that
// evaluates points concurrently on a bounded worker pool. All
// evaluations complete before the result is returned; row order is
// preserved. The first error encountered is reported.
func Parallel(fn PointFunc, workers int) optimization.ObjectiveFunc {
	if workers < 1 {
		workers = 1
	}
	return func(ctx context.Context, X [][]float64) ([][]float64, error) {
		n := len(X)
		Y := make([][]float64, n)
		errs := make([]error, n)
		jobs := make(chan int)

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					Y[i], errs[i] = fn(ctx, X[i])
				}
			}()
		}
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		return Y, nil
	}
}
