package acquisition

import "math"

// LocalPenalty decorates an acquisition with a distance-based penalty
// around previously selected points, used for diverse batch selection:
// the closer a candidate is to a penalty center, the more its score is
// reduced.
type LocalPenalty struct {
	base    Acquisition
	centers [][]float64
	radius  float64
	weight  float64
}

// NewLocalPenalty wraps base with a penalty of the given radius and
// weight. With no centers set it behaves exactly like base.
func NewLocalPenalty(base Acquisition, radius, weight float64) *LocalPenalty {
	return &LocalPenalty{base: base, radius: radius, weight: weight}
}

// SetCenters replaces the set of penalized points. Pass nil to clear.
func (lp *LocalPenalty) SetCenters(centers [][]float64) {
	lp.centers = centers
}

// Name implements Acquisition.
func (lp *LocalPenalty) Name() string { return lp.base.Name() }

// UpdateBest implements Acquisition.
func (lp *LocalPenalty) UpdateBest(best float64) { lp.base.UpdateBest(best) }

// Evaluate implements Acquisition.
func (lp *LocalPenalty) Evaluate(x []float64) (float64, error) {
	score, err := lp.base.Evaluate(x)
	if err != nil {
		return 0, err
	}
	for _, c := range lp.centers {
		d := euclidean(x, c)
		if d < lp.radius {
			score -= lp.weight * (1 - d/lp.radius)
		}
	}
	return score, nil
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
