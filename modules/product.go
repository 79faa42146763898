package modules

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
)

// Product computes the matrix product left * right. left has shape (p,m),
// right has shape (m,n); the output has shape (p,n).
//
// The Jacobians follow the standard vectorized-product identities:
//
//	d vec(LR)/d vec(L) = kron(R^T, I_p)
//	d vec(LR)/d vec(R) = kron(I_n, L)
type Product struct {
	engine.ModuleBase
	left, right *engine.InputPort
	out         *engine.OutputPort
}

// NewProduct builds an unlinked Product.
func NewProduct() *Product {
	m := &Product{}
	m.left = engine.NewInputPort(m)
	m.right = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.left)
	m.RegisterInput(m.right)
	m.RegisterOutput(m.out)
	return m
}

func (m *Product) Left() *engine.InputPort    { return m.left }
func (m *Product) Right() *engine.InputPort   { return m.right }
func (m *Product) Output() *engine.OutputPort { return m.out }

func (m *Product) Foreprop() error {
	left, err := m.left.Value()
	if err != nil {
		return err
	}
	right, err := m.right.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Mul(left, right))
}

func (m *Product) Backprop() error {
	left, err := m.left.Value()
	if err != nil {
		return err
	}
	right, err := m.right.Value()
	if err != nil {
		return err
	}
	p, _ := left.Dims()
	_, n := right.Dims()

	dyDl := matrix.Kron(matrix.Transpose(right), matrix.Identity(p))
	dyDr := matrix.Kron(matrix.Identity(n), left)

	if err := m.left.Backprop(m.out.ChainBackprop(dyDl)); err != nil {
		return err
	}
	return m.right.Backprop(m.out.ChainBackprop(dyDr))
}
