package modules

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
)

// Addition computes left + right elementwise. Both inputs must have the
// same shape; the identity Jacobian on both branches means the same
// adjoint flows to left and right unchanged.
type Addition struct {
	engine.ModuleBase
	left, right *engine.InputPort
	out         *engine.OutputPort
}

// NewAddition builds an unlinked Addition.
func NewAddition() *Addition {
	m := &Addition{}
	m.left = engine.NewInputPort(m)
	m.right = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.left)
	m.RegisterInput(m.right)
	m.RegisterOutput(m.out)
	return m
}

func (m *Addition) Left() *engine.InputPort   { return m.left }
func (m *Addition) Right() *engine.InputPort  { return m.right }
func (m *Addition) Output() *engine.OutputPort { return m.out }

func (m *Addition) Foreprop() error {
	left, err := m.left.Value()
	if err != nil {
		return err
	}
	right, err := m.right.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Add(left, right))
}

func (m *Addition) Backprop() error {
	dody := m.out.ChainBackprop(nil)
	if err := m.left.Backprop(dody); err != nil {
		return err
	}
	return m.right.Backprop(dody)
}

// Subtraction computes left - right elementwise. The right branch receives
// the negated adjoint, since d(left-right)/d(right) = -I.
type Subtraction struct {
	engine.ModuleBase
	left, right *engine.InputPort
	out         *engine.OutputPort
}

// NewSubtraction builds an unlinked Subtraction.
func NewSubtraction() *Subtraction {
	m := &Subtraction{}
	m.left = engine.NewInputPort(m)
	m.right = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.left)
	m.RegisterInput(m.right)
	m.RegisterOutput(m.out)
	return m
}

func (m *Subtraction) Left() *engine.InputPort   { return m.left }
func (m *Subtraction) Right() *engine.InputPort  { return m.right }
func (m *Subtraction) Output() *engine.OutputPort { return m.out }

func (m *Subtraction) Foreprop() error {
	left, err := m.left.Value()
	if err != nil {
		return err
	}
	right, err := m.right.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Sub(left, right))
}

func (m *Subtraction) Backprop() error {
	dody := m.out.ChainBackprop(nil)
	if err := m.left.Backprop(dody); err != nil {
		return err
	}
	return m.right.Backprop(matrix.Scale(-1, dody))
}
