package modules

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// XTCX computes the quadratic form S = X^T C X for X of shape (n,k) and
// square C of shape (n,n), producing a (k,k) result. Its Jacobian w.r.t. X
// accounts for X appearing on both sides of the product; the commutation
// matrix folds the second occurrence back into vec-order.
type XTCX struct {
	engine.ModuleBase
	x, c *engine.InputPort
	s    *engine.OutputPort
}

// NewXTCX builds an unlinked XTCX.
func NewXTCX() *XTCX {
	m := &XTCX{}
	m.x = engine.NewInputPort(m)
	m.c = engine.NewInputPort(m)
	m.s = engine.NewOutputPort(m)
	m.RegisterInput(m.x)
	m.RegisterInput(m.c)
	m.RegisterOutput(m.s)
	return m
}

func (m *XTCX) X() *engine.InputPort       { return m.x }
func (m *XTCX) C() *engine.InputPort       { return m.c }
func (m *XTCX) Output() *engine.OutputPort { return m.s }

func (m *XTCX) Foreprop() error {
	x, err := m.x.Value()
	if err != nil {
		return err
	}
	c, err := m.c.Value()
	if err != nil {
		return err
	}
	xt := matrix.Transpose(x)
	return m.s.Foreprop(matrix.Mul(matrix.Mul(xt, c), x))
}

func (m *XTCX) Backprop() error {
	x, err := m.x.Value()
	if err != nil {
		return err
	}
	c, err := m.c.Value()
	if err != nil {
		return err
	}
	_, k := x.Dims()
	xt := matrix.Transpose(x)
	ik := matrix.Identity(k)
	tkk := matrix.Commutation(k, k)

	xtc := matrix.Mul(xt, c)
	xtct := matrix.Mul(xt, matrix.Transpose(c))
	dsDx := matrix.Add(
		matrix.Kron(ik, xtc),
		matrix.Mul(tkk, matrix.Kron(ik, xtct)),
	)
	if err := m.x.Backprop(m.s.ChainBackprop(dsDx)); err != nil {
		return err
	}

	dsDc := matrix.Kron(xt, xt)
	return m.c.Backprop(m.s.ChainBackprop(dsDc))
}

// InnerXTCX is XTCX with X held as fixed configuration rather than a port:
// S = X^T C X for a caller-supplied constant X. Used when X is not itself
// a differentiable quantity in the surrounding graph.
type InnerXTCX struct {
	engine.ModuleBase
	c *engine.InputPort
	s *engine.OutputPort
	x *mat.Dense
}

// NewInnerXTCX builds an unlinked InnerXTCX. Call SetX before the first
// foreprop.
func NewInnerXTCX() *InnerXTCX {
	m := &InnerXTCX{}
	m.c = engine.NewInputPort(m)
	m.s = engine.NewOutputPort(m)
	m.RegisterInput(m.c)
	m.RegisterOutput(m.s)
	return m
}

func (m *InnerXTCX) C() *engine.InputPort       { return m.c }
func (m *InnerXTCX) Output() *engine.OutputPort { return m.s }

// SetX sets the fixed X operand. Invalidates the module.
func (m *InnerXTCX) SetX(x *mat.Dense) {
	m.x = x
	m.Invalidate()
}

func (m *InnerXTCX) Foreprop() error {
	if matrix.IsEmpty(m.x) {
		return engine.ErrUnsetParams
	}
	c, err := m.c.Value()
	if err != nil {
		return err
	}
	xt := matrix.Transpose(m.x)
	return m.s.Foreprop(matrix.Mul(matrix.Mul(xt, c), m.x))
}

func (m *InnerXTCX) Backprop() error {
	xt := matrix.Transpose(m.x)
	dsDc := matrix.Kron(xt, xt)
	return m.c.Backprop(m.s.ChainBackprop(dsDc))
}
