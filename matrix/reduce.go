package matrix

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrEmptySum is returned by Sum when every input matrix is empty.
var ErrEmptySum = errors.New("matrix: sum of empty inputs")

// Sum adds the non-empty matrices in mats, skipping empty ones. Returns
// ErrEmptySum if none are non-empty. All non-empty inputs must share a
// shape; a shape mismatch panics, mirroring the fatal nature of the
// underlying accumulator-shape invariant elsewhere in this engine.
func Sum(mats ...*mat.Dense) (*mat.Dense, error) {
	var out *mat.Dense
	for _, m := range mats {
		if IsEmpty(m) {
			continue
		}
		if out == nil {
			out = Clone(m)
			continue
		}
		if !SameShape(out, m) {
			panic("matrix: Sum shape mismatch across non-empty inputs")
		}
		out.Add(out, m)
	}
	if out == nil {
		return nil, ErrEmptySum
	}
	return out, nil
}

// HStack horizontally concatenates matrices sharing the same row count.
// Empty inputs are skipped. Returns Empty() if every input is empty.
func HStack(mats ...*mat.Dense) *mat.Dense {
	rows := -1
	totalCols := 0
	for _, m := range mats {
		if IsEmpty(m) {
			continue
		}
		r, c := m.Dims()
		if rows == -1 {
			rows = r
		} else if rows != r {
			panic("matrix: HStack row count mismatch")
		}
		totalCols += c
	}
	if rows == -1 || totalCols == 0 {
		return Empty()
	}
	out := mat.NewDense(rows, totalCols, nil)
	col := 0
	for _, m := range mats {
		if IsEmpty(m) {
			continue
		}
		_, c := m.Dims()
		out.Slice(0, rows, col, col+c).(*mat.Dense).Copy(m)
		col += c
	}
	return out
}

// FlattenVectors concatenates the column-major flattening of each matrix
// in order into a single column vector. Empty inputs contribute nothing.
func FlattenVectors(mats ...*mat.Dense) *mat.Dense {
	var all []float64
	for _, m := range mats {
		all = append(all, Vec(m)...)
	}
	if len(all) == 0 {
		return Empty()
	}
	return mat.NewDense(len(all), 1, all)
}
