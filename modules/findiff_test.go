package modules_test

import (
	"testing"

	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// numericJacobian returns the central-difference approximation of
// d(vec(f(x)))/d(vec(x)), as an (outputSize x inputSize) matrix matching
// this codebase's Jacobian convention. f must be side-effect free: it is
// called twice per input entry.
func numericJacobian(x *mat.Dense, f func(*mat.Dense) *mat.Dense, h float64) *mat.Dense {
	xv := matrix.Vec(x)
	rows, cols := x.Dims()
	base := f(x)
	outLen := matrix.NumEl(base)

	jac := matrix.Zeros(outLen, len(xv))
	for k := range xv {
		plus := append([]float64(nil), xv...)
		minus := append([]float64(nil), xv...)
		plus[k] += h
		minus[k] -= h
		fp := matrix.Vec(f(matrix.Unvec(rows, cols, plus)))
		fm := matrix.Vec(f(matrix.Unvec(rows, cols, minus)))
		for i := range fp {
			jac.Set(i, k, (fp[i]-fm[i])/(2*h))
		}
	}
	return jac
}

func assertJacobianClose(t *testing.T, name string, got, want *mat.Dense, tol float64) {
	t.Helper()
	if !matrix.Equal(got, want, tol) {
		t.Fatalf("%s jacobian mismatch:\ngot:\n%v\nwant:\n%v",
			name, mat.Formatted(got), mat.Formatted(want))
	}
}
