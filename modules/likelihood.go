package modules

import (
	"math"

	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// GaussianLogLikelihood computes the log-density of a zero-mean Gaussian
// sample x under covariance S: -0.5*(N*log(2*pi) + log|S| + x^T S^-1 x).
// The Cholesky factorization computed during Foreprop is cached and reused
// during Backprop.
type GaussianLogLikelihood struct {
	engine.ModuleBase
	x, s *engine.InputPort
	ll   *engine.OutputPort

	chol *matrix.Cholesky
	sInv *mat.Dense
	xInv *mat.Dense
}

// NewGaussianLogLikelihood builds an unlinked GaussianLogLikelihood.
func NewGaussianLogLikelihood() *GaussianLogLikelihood {
	m := &GaussianLogLikelihood{}
	m.x = engine.NewInputPort(m)
	m.s = engine.NewInputPort(m)
	m.ll = engine.NewOutputPort(m)
	m.RegisterInput(m.x)
	m.RegisterInput(m.s)
	m.RegisterOutput(m.ll)
	return m
}

func (m *GaussianLogLikelihood) X() *engine.InputPort   { return m.x }
func (m *GaussianLogLikelihood) S() *engine.InputPort   { return m.s }
func (m *GaussianLogLikelihood) LL() *engine.OutputPort { return m.ll }

func (m *GaussianLogLikelihood) Foreprop() error {
	x, err := m.x.Value()
	if err != nil {
		return err
	}
	s, err := m.s.Value()
	if err != nil {
		return err
	}
	n := matrix.NumEl(x)
	xVec := matrix.VecAsColumn(x)

	chol, err := matrix.Factorize(s)
	if err != nil {
		return err
	}
	m.chol = chol
	m.sInv = chol.Inverse()
	m.xInv = chol.SolveVec(xVec)

	exponent := matrix.Mul(matrix.Transpose(xVec), m.xInv).At(0, 0)
	logdet := chol.LogDet()
	logz := float64(n) * math.Log(2*math.Pi)
	logpdf := -0.5 * (logz + logdet + exponent)

	return m.ll.Foreprop(mat.NewDense(1, 1, []float64{logpdf}))
}

func (m *GaussianLogLikelihood) Backprop() error {
	doDxin := m.ll.ChainBackprop(matrix.Scale(-1, matrix.Transpose(m.xInv)))

	sInvVecRow := matrix.Transpose(matrix.VecAsColumn(m.sInv))

	x, err := m.x.Value()
	if err != nil {
		return err
	}
	xVec := matrix.VecAsColumn(x)
	xxTfull := matrix.Mul(xVec, matrix.Transpose(xVec))
	xxTvecRow := matrix.Transpose(matrix.VecAsColumn(xxTfull))

	kron := matrix.Kron(matrix.Transpose(m.sInv), m.sInv)
	tempB := matrix.Mul(xxTvecRow, kron)
	dllDs := matrix.Add(matrix.Scale(-0.5, sInvVecRow), matrix.Scale(0.5, tempB))
	doDs := m.ll.ChainBackprop(dllDs)

	if err := m.x.Backprop(doDxin); err != nil {
		return err
	}
	return m.s.Backprop(doDs)
}
