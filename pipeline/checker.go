package pipeline

import (
	"fmt"

	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// Report is the outcome of TestDerivatives: the analytic Jacobian's
// maximum per-parameter absolute error against a central finite
// difference, and whether that error stayed within eps.
type Report struct {
	MaxAbsError []float64
	Pass        bool
}

// TestDerivatives sweeps each of p's parameters by +-step, comparing the
// analytic Jacobian columns from GetDerivative against the resulting
// central finite difference of GetOutput, and reports the maximum
// per-parameter absolute error against eps. p is left holding its
// original parameters and a stale internal state; call p.Invalidate()
// and p.Foreprop() again before reusing it.
func TestDerivatives(p *Pipeline, step, eps float64) (*Report, error) {
	theta := p.GetParams()
	n := matrix.NumEl(theta)

	if err := p.Foreprop(); err != nil {
		return nil, err
	}
	if err := p.Backprop(); err != nil {
		return nil, err
	}
	analytic := p.GetDerivative()
	rows, _ := analytic.Dims()

	report := &Report{MaxAbsError: make([]float64, n), Pass: true}
	flat := matrix.Vec(theta)

	for i := 0; i < n; i++ {
		plus := mat.NewVecDense(n, append([]float64(nil), flat...))
		plus.SetVec(i, plus.AtVec(i)+step)
		minus := mat.NewVecDense(n, append([]float64(nil), flat...))
		minus.SetVec(i, minus.AtVec(i)-step)

		yPlus, err := evalAt(p, matrix.Unvec(n, 1, plus.RawVector().Data))
		if err != nil {
			return nil, err
		}
		yMinus, err := evalAt(p, matrix.Unvec(n, 1, minus.RawVector().Data))
		if err != nil {
			return nil, err
		}

		maxErr := 0.0
		for r := 0; r < rows; r++ {
			numeric := (yPlus.At(r, 0) - yMinus.At(r, 0)) / (2 * step)
			diff := numeric - analytic.At(r, i)
			if diff < 0 {
				diff = -diff
			}
			if diff > maxErr {
				maxErr = diff
			}
		}
		report.MaxAbsError[i] = maxErr
		if maxErr > eps {
			report.Pass = false
		}
	}

	if err := p.SetParams(theta); err != nil {
		return nil, err
	}
	return report, nil
}

func evalAt(p *Pipeline, theta *mat.Dense) (*mat.Dense, error) {
	p.Invalidate()
	if err := p.SetParams(theta); err != nil {
		return nil, err
	}
	if err := p.Foreprop(); err != nil {
		return nil, err
	}
	out, err := p.GetOutput()
	if err != nil {
		return nil, err
	}
	p.Invalidate()
	return out, nil
}

// String renders a one-line summary suitable for cmd/modprop's output.
func (r *Report) String() string {
	return fmt.Sprintf("pass=%v maxAbsError=%v", r.Pass, r.MaxAbsError)
}
