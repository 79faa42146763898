package matrix

import "gonum.org/v1/gonum/mat"

// Commutation returns the (mn x mn) commutation matrix T_{m,n} satisfying
// T_{m,n} * vec(A) = vec(A^T) for any m x n matrix A, where vec is the
// column-major flattening used throughout this package.
//
// Derivation: for A of shape (m,n), vec(A)[i+j*m] = A(i,j) and
// vec(A^T)[j+i*n] = A^T(j,i) = A(i,j). So the permutation moves the
// vec(A) index p=i+j*m to the vec(A^T) index q=j+i*n.
func Commutation(m, n int) *mat.Dense {
	d := m * n
	t := mat.NewDense(d, d, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			q := j + i*n
			p := i + j*m
			t.Set(q, p, 1)
		}
	}
	return t
}
