package modules

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
)

// Exponential applies the elementwise exponential. Its Jacobian is
// diagonal: d(exp(x))_i/dx_j is exp(x_i) when i==j and 0 otherwise, so the
// diagonal is exactly the flattened output value.
type Exponential struct {
	engine.ModuleBase
	in  *engine.InputPort
	out *engine.OutputPort
}

// NewExponential builds an unlinked Exponential.
func NewExponential() *Exponential {
	m := &Exponential{}
	m.in = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.in)
	m.RegisterOutput(m.out)
	return m
}

func (m *Exponential) Input() *engine.InputPort   { return m.in }
func (m *Exponential) Output() *engine.OutputPort { return m.out }

func (m *Exponential) Foreprop() error {
	in, err := m.in.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Exp(in))
}

func (m *Exponential) Backprop() error {
	val, err := m.out.Value()
	if err != nil {
		return err
	}
	dyDx := matrix.Diag(matrix.Vec(val))
	return m.in.Backprop(m.out.ChainBackprop(dyDx))
}
