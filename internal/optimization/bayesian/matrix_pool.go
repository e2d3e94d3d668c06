package bayesian

import "gonum.org/v1/gonum/mat"

// MatrixPool reuses matrix allocations across fits and predictions.
// Pools are keyed by dimension so a recycled value always has the
// requested shape.
type MatrixPool struct {
	sym map[int][]*mat.SymDense
	vec map[int][]*mat.VecDense
}

// NewMatrixPool creates an empty MatrixPool.
func NewMatrixPool() *MatrixPool {
	return &MatrixPool{
		sym: make(map[int][]*mat.SymDense),
		vec: make(map[int][]*mat.VecDense),
	}
}

// GetSymDense returns an n x n symmetric matrix from the pool or
// allocates a new one.
func (p *MatrixPool) GetSymDense(n int) *mat.SymDense {
	if pool := p.sym[n]; len(pool) > 0 {
		m := pool[len(pool)-1]
		p.sym[n] = pool[:len(pool)-1]
		m.Zero()
		return m
	}
	return mat.NewSymDense(n, nil)
}

// PutSymDense returns a symmetric matrix to the pool.
func (p *MatrixPool) PutSymDense(m *mat.SymDense) {
	n := m.SymmetricDim()
	p.sym[n] = append(p.sym[n], m)
}

// GetVecDense returns a length-n vector from the pool or allocates a
// new one.
func (p *MatrixPool) GetVecDense(n int) *mat.VecDense {
	if pool := p.vec[n]; len(pool) > 0 {
		v := pool[len(pool)-1]
		p.vec[n] = pool[:len(pool)-1]
		v.Zero()
		return v
	}
	return mat.NewVecDense(n, nil)
}

// PutVecDense returns a vector to the pool.
func (p *MatrixPool) PutVecDense(v *mat.VecDense) {
	n := v.Len()
	p.vec[n] = append(p.vec[n], v)
}
