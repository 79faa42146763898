// Package matrix supplies the dense-matrix primitives the engine assumes
// are externally available: column-major flattening, Kronecker products,
// the commutation matrix, and symmetric-positive-definite factorization.
// It is a thin layer over gonum.org/v1/gonum/mat, not a replacement for it.
package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Empty returns the sentinel empty matrix (nil, by convention).
func Empty() *mat.Dense { return nil }

// IsEmpty reports whether m is the empty-matrix sentinel. A matrix with
// zero rows or zero columns also counts as empty.
func IsEmpty(m *mat.Dense) bool {
	if m == nil {
		return true
	}
	r, c := m.Dims()
	return r == 0 || c == 0
}

// Zeros returns an r x c matrix of zeros. r or c of zero returns Empty().
func Zeros(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return Empty()
	}
	return mat.NewDense(r, c, nil)
}

// Identity returns the n x n identity matrix.
func Identity(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id
}

// NumEl returns the number of elements (rows*cols) of m, treating Empty() as 0.
func NumEl(m *mat.Dense) int {
	if IsEmpty(m) {
		return 0
	}
	r, c := m.Dims()
	return r * c
}

// Vec flattens m into a column-major vector: Vec(m)[i+j*rows] = m.At(i,j).
// This is the flattening convention used everywhere a matrix is treated as
// a vector, independent of gonum's own internal row-major storage.
func Vec(m *mat.Dense) []float64 {
	if IsEmpty(m) {
		return nil
	}
	r, c := m.Dims()
	out := make([]float64, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out[i+j*r] = m.At(i, j)
		}
	}
	return out
}

// Unvec builds an rows x cols matrix from a column-major flattened vector.
func Unvec(rows, cols int, v []float64) *mat.Dense {
	if rows == 0 || cols == 0 {
		return Empty()
	}
	if len(v) != rows*cols {
		panic(fmt.Sprintf("matrix: Unvec length mismatch: have %d, want %d", len(v), rows*cols))
	}
	out := mat.NewDense(rows, cols, nil)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out.Set(i, j, v[i+j*rows])
		}
	}
	return out
}

// VecAsColumn returns Vec(m) as a column vector matrix (numel(m) x 1).
func VecAsColumn(m *mat.Dense) *mat.Dense {
	v := Vec(m)
	if v == nil {
		return Empty()
	}
	return mat.NewDense(len(v), 1, v)
}

// Clone returns a deep copy of m. Empty() clones to Empty().
func Clone(m *mat.Dense) *mat.Dense {
	if IsEmpty(m) {
		return Empty()
	}
	return mat.DenseCopyOf(m)
}

// Equal reports whether a and b have the same shape and are elementwise
// within tol of one another. Two empty matrices are equal.
func Equal(a, b *mat.Dense, tol float64) bool {
	aEmpty, bEmpty := IsEmpty(a), IsEmpty(b)
	if aEmpty != bEmpty {
		return false
	}
	if aEmpty {
		return true
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

// SameShape reports whether a and b have identical dimensions (both empty
// counts as same shape).
func SameShape(a, b *mat.Dense) bool {
	aEmpty, bEmpty := IsEmpty(a), IsEmpty(b)
	if aEmpty || bEmpty {
		return aEmpty == bEmpty
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

// Scale returns s*m.
func Scale(s float64, m *mat.Dense) *mat.Dense {
	if IsEmpty(m) {
		return Empty()
	}
	var out mat.Dense
	out.Scale(s, m)
	return &out
}

// Add returns a+b. Panics on shape mismatch (callers are expected to have
// already validated shapes via SameShape or the engine's own checks).
func Add(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Add(a, b)
	return &out
}

// Sub returns a-b.
func Sub(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Sub(a, b)
	return &out
}

// Mul returns a*b (matrix product).
func Mul(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

// Transpose returns a copy of the transpose of m.
func Transpose(m *mat.Dense) *mat.Dense {
	if IsEmpty(m) {
		return Empty()
	}
	var out mat.Dense
	out.CloneFrom(m.T())
	return &out
}

// Exp returns the elementwise exponential of m.
func Exp(m *mat.Dense) *mat.Dense {
	if IsEmpty(m) {
		return Empty()
	}
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, m)
	return &out
}

// Diag returns an n x n matrix with v on the diagonal.
func Diag(v []float64) *mat.Dense {
	n := len(v)
	out := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		out.Set(i, i, v[i])
	}
	return out
}

// ToSym returns the symmetric part of m, (m + m^T)/2, as a *mat.SymDense.
// Kalman innovation and posterior covariances are symmetric only up to
// floating-point round-off; factorization requires an exactly-symmetric
// type, so every place this engine hands a covariance to Cholesky goes
// through ToSym.
func ToSym(m *mat.Dense) *mat.SymDense {
	r, c := m.Dims()
	if r != c {
		panic("matrix: ToSym requires a square matrix")
	}
	sym := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			sym.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}
	return sym
}

// DenseOfSym copies a SymDense back into a plain Dense.
func DenseOfSym(s *mat.SymDense) *mat.Dense {
	n := s.SymmetricDim()
	out := mat.NewDense(n, n, nil)
	out.Copy(s)
	return out
}
