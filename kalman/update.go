package kalman

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// Update is the Kalman correction step: it folds a linear (or linearized)
// measurement y = C*x + noise into a prior x, P estimate, producing a
// posterior x, P together with the innovation v = y - C*x, its covariance
// S = C*P*C^T + R, and the post-fit residual u = y - C*x'. All five
// outputs are differentiable with respect to x_in, P_in and R_in.
type Update struct {
	engine.ModuleBase
	in   KalmanInPorts
	rIn  *engine.InputPort
	out  KalmanOutPorts
	vOut *engine.OutputPort
	sOut *engine.OutputPort
	uOut *engine.OutputPort

	c, y, x0, y0 *mat.Dense

	chol *matrix.Cholesky
	k    *mat.Dense
	sv   *mat.Dense

	// dxoutDxin, dxoutDPin and dxoutDR are the three Jacobians of x_out
	// computed while backpropagating that output. u's post-fit residual
	// chains through the same posterior-state map, so BackpropUOut needs
	// them again; the source recomputes them as locals inside
	// BackpropXOut and then references those locals again inside
	// BackpropUOut without declaring them as class members, which is an
	// omission in the distilled source. Here they are real fields, set
	// once per backprop pass and reused.
	dxoutDxin *mat.Dense
	dxoutDPin *mat.Dense
	dxoutDR   *mat.Dense
}

// NewUpdate builds an unlinked Update. Call SetLinearParams or
// SetNonlinearParams before the first foreprop.
func NewUpdate() *Update {
	m := &Update{}
	m.in = NewKalmanInPorts(m)
	m.in.Register(&m.ModuleBase)
	m.rIn = engine.NewInputPort(m)
	m.RegisterInput(m.rIn)
	m.out = NewKalmanOutPorts(m)
	m.out.Register(&m.ModuleBase)
	m.vOut = engine.NewOutputPort(m)
	m.sOut = engine.NewOutputPort(m)
	m.uOut = engine.NewOutputPort(m)
	m.RegisterOutput(m.vOut)
	m.RegisterOutput(m.sOut)
	m.RegisterOutput(m.uOut)
	return m
}

func (m *Update) XIn() *engine.InputPort   { return m.in.X }
func (m *Update) PIn() *engine.InputPort   { return m.in.P }
func (m *Update) RIn() *engine.InputPort   { return m.rIn }
func (m *Update) XOut() *engine.OutputPort { return m.out.X }
func (m *Update) POut() *engine.OutputPort { return m.out.P }
func (m *Update) VOut() *engine.OutputPort { return m.vOut }
func (m *Update) SOut() *engine.OutputPort { return m.sOut }
func (m *Update) UOut() *engine.OutputPort { return m.uOut }

// InPorts returns the x/P input pair, for use with LinkKalman and LinkScaled.
func (m *Update) InPorts() KalmanInPorts { return m.in }

// OutPorts returns the x/P output pair, for use with LinkKalman and LinkScaled.
func (m *Update) OutPorts() KalmanOutPorts { return m.out }

// SetLinearParams configures a plain linear measurement model y = C*x
// with observed measurement y, and zero linearization offsets. Invalidates
// the module.
func (m *Update) SetLinearParams(c, y *mat.Dense) {
	rows, cols := c.Dims()
	m.c = c
	m.y = y
	m.x0 = matrix.Zeros(cols, 1)
	m.y0 = matrix.Zeros(rows, 1)
	m.Invalidate()
}

// SetNonlinearParams configures a linearized measurement model around
// linearization point x0 with predicted measurement y0 and Jacobian g.
// Invalidates the module.
func (m *Update) SetNonlinearParams(g, y, x0, y0 *mat.Dense) {
	m.c = g
	m.y = y
	m.x0 = x0
	m.y0 = y0
	m.Invalidate()
}

func (m *Update) Foreprop() error {
	if matrix.IsEmpty(m.c) {
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
	r, err := m.rIn.Value()
	if err != nil {
		return err
	}

	ct := matrix.Transpose(m.c)
	yhat := matrix.Add(matrix.Mul(m.c, matrix.Sub(xIn, m.x0)), m.y0)
	v := matrix.Sub(m.y, yhat)

	pct := matrix.Mul(pIn, ct)
	s := matrix.Add(matrix.Mul(m.c, pct), r)

	chol, err := matrix.Factorize(s)
	if err != nil {
		return err
	}
	m.chol = chol
	m.k = chol.SolveRight(pct)
	m.sv = chol.SolveVec(v)

	nextX := matrix.Add(xIn, matrix.Mul(m.k, v))
	nextP := matrix.Sub(pIn, matrix.Mul(matrix.Mul(m.k, m.c), pIn))

	postYhat := matrix.Add(matrix.Mul(m.c, matrix.Sub(nextX, m.x0)), m.y0)
	u := matrix.Sub(m.y, postYhat)

	if err := m.out.X.Foreprop(nextX); err != nil {
		return err
	}
	if err := m.out.P.Foreprop(nextP); err != nil {
		return err
	}
	if err := m.vOut.Foreprop(v); err != nil {
		return err
	}
	if err := m.sOut.Foreprop(s); err != nil {
		return err
	}
	return m.uOut.Foreprop(u)
}

func (m *Update) Backprop() error {
	pIn, err := m.in.P.Value()
	if err != nil {
		return err
	}
	nState, _ := pIn.Dims()

	ct := matrix.Transpose(m.c)
	ctSv := matrix.Mul(ct, m.sv)
	kc := matrix.Mul(m.k, m.c)

	m.dxoutDxin = matrix.Sub(matrix.Identity(nState), kc)
	m.dxoutDPin = matrix.Sub(
		matrix.Kron(matrix.Transpose(ctSv), matrix.Identity(nState)),
		matrix.Kron(matrix.Transpose(ctSv), kc),
	)
	m.dxoutDR = matrix.Scale(-1, matrix.Kron(matrix.Transpose(m.sv), m.k))

	doDxinX := m.out.X.ChainBackprop(m.dxoutDxin)
	doDPinX := m.out.X.ChainBackprop(m.dxoutDPin)
	doDRX := m.out.X.ChainBackprop(m.dxoutDR)

	ident := matrix.Identity(nState)
	identSq := matrix.Identity(nState * nState)
	tnn := matrix.Commutation(nState, nState)
	dPoutDPin := matrix.Add(
		matrix.Sub(identSq, matrix.Mul(matrix.Add(identSq, tnn), matrix.Kron(ident, kc))),
		matrix.Kron(kc, kc),
	)
	dPoutDRin := matrix.Kron(m.k, m.k)

	doDPinP := m.out.P.ChainBackprop(dPoutDPin)
	doDRP := m.out.P.ChainBackprop(dPoutDRin)

	dvoutDxin := matrix.Scale(-1, m.c)
	doDxinV := m.vOut.ChainBackprop(dvoutDxin)

	dSoutDPin := matrix.Kron(m.c, m.c)
	doDPinS := m.sOut.ChainBackprop(dSoutDPin)
	doDRS := m.sOut.ChainBackprop(nil)

	negC := matrix.Scale(-1, m.c)
	doDxinU := m.uOut.ChainBackprop(matrix.Mul(negC, m.dxoutDxin))
	doDPinU := m.uOut.ChainBackprop(matrix.Mul(negC, m.dxoutDPin))
	doDRU := m.uOut.ChainBackprop(matrix.Mul(negC, m.dxoutDR))

	doDxin, err := engine.SumMatrices(doDxinX, doDxinV, doDxinU)
	if err != nil {
		return err
	}
	doDPin, err := engine.SumMatrices(doDPinX, doDPinP, doDPinS, doDPinU)
	if err != nil {
		return err
	}
	doDR, err := engine.SumMatrices(doDRX, doDRP, doDRS, doDRU)
	if err != nil {
		return err
	}

	if err := m.in.X.Backprop(doDxin); err != nil {
		return err
	}
	if err := m.in.P.Backprop(doDPin); err != nil {
		return err
	}
	return m.rIn.Backprop(doDR)
}
