package modules

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
)

// OuterProduct computes left * right^T for column vectors left and right
// of the same length n, producing an n x n matrix.
type OuterProduct struct {
	engine.ModuleBase
	left, right *engine.InputPort
	out         *engine.OutputPort
}

// NewOuterProduct builds an unlinked OuterProduct.
func NewOuterProduct() *OuterProduct {
	m := &OuterProduct{}
	m.left = engine.NewInputPort(m)
	m.right = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.left)
	m.RegisterInput(m.right)
	m.RegisterOutput(m.out)
	return m
}

func (m *OuterProduct) Left() *engine.InputPort   { return m.left }
func (m *OuterProduct) Right() *engine.InputPort  { return m.right }
func (m *OuterProduct) Output() *engine.OutputPort { return m.out }

func (m *OuterProduct) Foreprop() error {
	left, err := m.left.Value()
	if err != nil {
		return err
	}
	right, err := m.right.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Mul(left, matrix.Transpose(right)))
}

func (m *OuterProduct) Backprop() error {
	left, err := m.left.Value()
	if err != nil {
		return err
	}
	right, err := m.right.Value()
	if err != nil {
		return err
	}
	n, _ := left.Dims()
	id := matrix.Identity(n)

	dyDl := matrix.Kron(right, id)
	dyDr := matrix.Kron(id, left)

	if err := m.left.Backprop(m.out.ChainBackprop(dyDl)); err != nil {
		return err
	}
	return m.right.Backprop(m.out.ChainBackprop(dyDr))
}

// RepOuterProduct computes x * x^T for a single column-vector input x,
// i.e. OuterProduct with both branches tied to the same value. Its
// Jacobian is the sum of OuterProduct's two branch Jacobians evaluated at
// left=right=x, since backprop must account for x's contribution through
// both factors.
type RepOuterProduct struct {
	engine.ModuleBase
	in  *engine.InputPort
	out *engine.OutputPort
}

// NewRepOuterProduct builds an unlinked RepOuterProduct.
func NewRepOuterProduct() *RepOuterProduct {
	m := &RepOuterProduct{}
	m.in = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.in)
	m.RegisterOutput(m.out)
	return m
}

func (m *RepOuterProduct) Input() *engine.InputPort   { return m.in }
func (m *RepOuterProduct) Output() *engine.OutputPort { return m.out }

func (m *RepOuterProduct) Foreprop() error {
	in, err := m.in.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Mul(in, matrix.Transpose(in)))
}

func (m *RepOuterProduct) Backprop() error {
	in, err := m.in.Value()
	if err != nil {
		return err
	}
	n, _ := in.Dims()
	id := matrix.Identity(n)

	dyDl := matrix.Kron(in, id)
	dyDr := matrix.Kron(id, in)

	return m.in.Backprop(m.out.ChainBackprop(matrix.Add(dyDl, dyDr)))
}
