package kalman

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// Predict is the Kalman time-update: it advances a prior x, P estimate
// through a linear (or linearized) transition x' = A(x - x0) + y0,
// P' = A*P*A^T + Q. x0/y0 default to zero, recovering the ordinary linear
// form; a nonlinear caller sets them to the linearization point and its
// image under the true transition.
//
// The source declares x_in/P_in/x_out/P_out ports on this module's header
// but its constructor only registers the Q input, and no getter bodies
// exist for those declared ports — an incompleteness in the distilled
// source. Here the x/P ports are real, registered KalmanInPorts and
// KalmanOutPorts fields from the start.
type Predict struct {
	engine.ModuleBase
	in  KalmanInPorts
	qIn *engine.InputPort
	out KalmanOutPorts

	a      *mat.Dense
	x0, y0 *mat.Dense
}

// NewPredict builds an unlinked Predict. Call SetLinearParams or
// SetNonlinearParams before the first foreprop.
func NewPredict() *Predict {
	m := &Predict{}
	m.in = NewKalmanInPorts(m)
	m.in.Register(&m.ModuleBase)
	m.qIn = engine.NewInputPort(m)
	m.RegisterInput(m.qIn)
	m.out = NewKalmanOutPorts(m)
	m.out.Register(&m.ModuleBase)
	return m
}

func (m *Predict) XIn() *engine.InputPort   { return m.in.X }
func (m *Predict) PIn() *engine.InputPort   { return m.in.P }
func (m *Predict) QIn() *engine.InputPort   { return m.qIn }
func (m *Predict) XOut() *engine.OutputPort { return m.out.X }
func (m *Predict) POut() *engine.OutputPort { return m.out.P }

// InPorts returns the x/P input pair, for use with LinkKalman and LinkScaled.
func (m *Predict) InPorts() KalmanInPorts { return m.in }

// OutPorts returns the x/P output pair, for use with LinkKalman and LinkScaled.
func (m *Predict) OutPorts() KalmanOutPorts { return m.out }

// SetLinearParams configures a plain linear transition x' = A*x, with the
// linearization offsets x0, y0 set to zero vectors sized to A. Invalidates
// the module.
func (m *Predict) SetLinearParams(a *mat.Dense) {
	n, _ := a.Dims()
	m.a = a
	m.x0 = matrix.Zeros(n, 1)
	m.y0 = matrix.Zeros(n, 1)
	m.Invalidate()
}

// SetNonlinearParams configures a linearized transition around
// linearization point x0 with image y0 under the true (nonlinear)
// transition and Jacobian a. Invalidates the module.
func (m *Predict) SetNonlinearParams(a, x0, y0 *mat.Dense) {
	m.a = a
	m.x0 = x0
	m.y0 = y0
	m.Invalidate()
}

// LinpointDelta returns x_in - x0, the deviation from the current
// linearization point that the transition is actually applied to.
func (m *Predict) LinpointDelta() (*mat.Dense, error) {
	x, err := m.in.X.Value()
	if err != nil {
		return nil, err
	}
	return matrix.Sub(x, m.x0), nil
}

func (m *Predict) Foreprop() error {
	if matrix.IsEmpty(m.a) {
		return engine.ErrUnsetParams
	}
	xIn, err := m.in.X.Value()
	if err != nil {
		return err
	}
	pIn, err := m.in.P.Value()
	if err != nil {
		return err
	}
	q, err := m.qIn.Value()
	if err != nil {
		return err
	}

	delta := matrix.Sub(xIn, m.x0)
	nextX := matrix.Add(matrix.Mul(m.a, delta), m.y0)
	nextP := matrix.Add(matrix.Mul(matrix.Mul(m.a, pIn), matrix.Transpose(m.a)), q)

	if err := m.out.X.Foreprop(nextX); err != nil {
		return err
	}
	return m.out.P.Foreprop(nextP)
}

// Backprop pushes the three Jacobians of a linear map through: x_out is
// linear in x_in with Jacobian A, P_out is linear in vec(P_in) with
// Jacobian kron(A,A), and P_out is linear in vec(Q) with the identity
// Jacobian (Q enters unchanged), so ChainBackprop(nil) passes the
// accumulator straight through.
func (m *Predict) Backprop() error {
	doDxin := m.out.X.ChainBackprop(m.a)
	if err := m.in.X.Backprop(doDxin); err != nil {
		return err
	}

	doDPin := m.out.P.ChainBackprop(matrix.Kron(m.a, m.a))
	if err := m.in.P.Backprop(doDPin); err != nil {
		return err
	}

	doDQ := m.out.P.ChainBackprop(nil)
	return m.qIn.Backprop(doDQ)
}
