package matrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrNotPositiveDefinite is returned by Factorize when its argument is not
// symmetric positive definite.
var ErrNotPositiveDefinite = errors.New("matrix: not symmetric positive definite")

// Cholesky wraps gonum's mat.Cholesky with the operations this engine's
// Kalman and Gaussian-likelihood modules need: inverse, right-solve, and
// log-determinant, all derived from a single factorization computed once
// per foreprop and reused during backprop.
type Cholesky struct {
	chol mat.Cholesky
	dim  int
}

// Factorize computes the Cholesky factorization of the symmetric matrix m
// (which need not itself be exactly symmetric; ToSym is applied first).
func Factorize(m *mat.Dense) (*Cholesky, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("matrix: Factorize requires a square matrix, got %dx%d", r, c)
	}
	sym := ToSym(m)
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, ErrNotPositiveDefinite
	}
	return &Cholesky{chol: chol, dim: r}, nil
}

// Dim returns the dimension of the factorized matrix.
func (c *Cholesky) Dim() int { return c.dim }

// LogDet returns log|S|, the log-determinant of the factorized matrix. For
// S = L*L^T this is twice the sum of the logs of L's diagonal; gonum
// computes it that way internally, so there is no separate
// diagonal-summation step in this codebase to get wrong.
func (c *Cholesky) LogDet() float64 {
	return c.chol.LogDet()
}

// Inverse returns S^-1.
func (c *Cholesky) Inverse() *mat.Dense {
	var sym mat.SymDense
	if err := c.chol.InverseTo(&sym); err != nil {
		panic(fmt.Sprintf("matrix: Cholesky.Inverse: %v", err))
	}
	return DenseOfSym(&sym)
}

// SolveVec returns S^-1 * b for a column vector b.
func (c *Cholesky) SolveVec(b *mat.Dense) *mat.Dense {
	r, cc := b.Dims()
	if cc != 1 {
		panic("matrix: SolveVec requires a column vector")
	}
	bv := mat.NewVecDense(r, Vec(b))
	var out mat.VecDense
	if err := c.chol.SolveVecTo(&out, bv); err != nil {
		panic(fmt.Sprintf("matrix: Cholesky.SolveVec: %v", err))
	}
	return Unvec(r, 1, out.RawVector().Data)
}

// SolveRight returns b * S^-1, computed as (S^-1 * b^T)^T since gonum's
// Cholesky only solves from the left.
func (c *Cholesky) SolveRight(b *mat.Dense) *mat.Dense {
	if IsEmpty(b) {
		return Empty()
	}
	var out mat.Dense
	if err := c.chol.SolveTo(&out, b.T()); err != nil {
		panic(fmt.Sprintf("matrix: Cholesky.SolveRight: %v", err))
	}
	return Transpose(&out)
}

// Solve returns S^-1 * b for a general right-hand side b.
func (c *Cholesky) Solve(b *mat.Dense) *mat.Dense {
	var out mat.Dense
	if err := c.chol.SolveTo(&out, b); err != nil {
		panic(fmt.Sprintf("matrix: Cholesky.Solve: %v", err))
	}
	return &out
}
