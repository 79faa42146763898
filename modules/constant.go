// Package modules implements the reference library of arithmetic modules:
// small, single-purpose Module implementations that compose into larger
// dataflow graphs via engine.Link.
package modules

import (
	"github.com/Humhu/modprop/engine"
	"gonum.org/v1/gonum/mat"
)

// Constant is a zero-input module that foreprops a fixed value every time
// its owning graph is driven. It is the graph's leaf for parameters and
// literals: nothing links into it, so its Backprop does nothing; whatever
// adjoint reaches its output stays in that port's accumulator, readable
// through Output().BackpropValue().
type Constant struct {
	engine.ModuleBase
	out   *engine.OutputPort
	value *mat.Dense
}

// NewConstant builds a Constant holding val. val may be Empty().
func NewConstant(val *mat.Dense) *Constant {
	m := &Constant{value: val}
	m.out = engine.NewOutputPort(m)
	m.RegisterOutput(m.out)
	return m
}

// Output returns the module's single output port.
func (m *Constant) Output() *engine.OutputPort { return m.out }

// SetValue replaces the constant's value. Call only while the module is
// fully invalid; foreprop pushes whatever value is current at the time.
func (m *Constant) SetValue(val *mat.Dense) { m.value = val }

// Value returns the constant's currently configured value.
func (m *Constant) Value() *mat.Dense { return m.value }

func (m *Constant) Foreprop() error {
	return m.out.Foreprop(m.value)
}

// Backprop is a no-op: a constant has no upstream port to forward an
// adjoint to.
func (m *Constant) Backprop() error { return nil }
