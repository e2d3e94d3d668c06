package bayesian

import "testing"

func TestMatrixPoolReusesBySize(t *testing.T) {
	p := NewMatrixPool()

	m3 := p.GetSymDense(3)
	m3.SetSym(0, 0, 42)
	p.PutSymDense(m3)

	// A different size must not receive the recycled matrix.
	m5 := p.GetSymDense(5)
	if n := m5.SymmetricDim(); n != 5 {
		t.Fatalf("got %dx%d matrix, want 5x5", n, n)
	}

	// The same size gets the recycled matrix back, zeroed.
	again := p.GetSymDense(3)
	if again != m3 {
		t.Error("expected the pooled matrix to be reused")
	}
	if again.At(0, 0) != 0 {
		t.Errorf("recycled matrix not zeroed: %v", again.At(0, 0))
	}
}

func TestMatrixPoolVectors(t *testing.T) {
	p := NewMatrixPool()

	v := p.GetVecDense(4)
	v.SetVec(2, 7)
	p.PutVecDense(v)

	again := p.GetVecDense(4)
	if again != v {
		t.Error("expected the pooled vector to be reused")
	}
	if again.AtVec(2) != 0 {
		t.Errorf("recycled vector not zeroed: %v", again.AtVec(2))
	}
	if p.GetVecDense(2).Len() != 2 {
		t.Error("wrong vector length from pool")
	}
}
