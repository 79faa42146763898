package matrix

import "gonum.org/v1/gonum/mat"

// Kron returns the Kronecker product a (x) b.
func Kron(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Kronecker(a, b)
	return &out
}
