package modules

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
)

// Scale computes y = s*x for a fixed scalar s, and backprops b*A where b
// defaults to s. Setting s (or b) invalidates the module: a scale factor
// is graph configuration, not a port value.
type Scale struct {
	engine.ModuleBase
	in  *engine.InputPort
	out *engine.OutputPort
	s   float64
	b   float64
	set bool
}

// NewScale builds an unlinked Scale with s=1 (and therefore b=1).
func NewScale() *Scale {
	m := &Scale{s: 1, b: 1}
	m.in = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.in)
	m.RegisterOutput(m.out)
	return m
}

func (m *Scale) Input() *engine.InputPort   { return m.in }
func (m *Scale) Output() *engine.OutputPort { return m.out }

// SetScale sets the forward scale s and, unless SetBackpropScale has been
// called explicitly, the backward scale b to match. Invalidates the module.
func (m *Scale) SetScale(s float64) {
	m.s = s
	if !m.set {
		m.b = s
	}
	m.Invalidate()
}

// SetBackpropScale overrides b independently of s. Invalidates the module.
func (m *Scale) SetBackpropScale(b float64) {
	m.b = b
	m.set = true
	m.Invalidate()
}

func (m *Scale) Foreprop() error {
	in, err := m.in.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Scale(m.s, in))
}

func (m *Scale) Backprop() error {
	dody := m.out.ChainBackprop(nil)
	return m.in.Backprop(matrix.Scale(m.b, dody))
}

// Scaling is the two-sided variant of Scale: forward and backward scale
// factors are set and reasoned about entirely independently, decoupling
// forward-pass magnitude from gradient magnitude for conditioning tricks.
type Scaling struct {
	engine.ModuleBase
	in  *engine.InputPort
	out *engine.OutputPort
	fS  float64
	bS  float64
}

// NewScaling builds an unlinked Scaling with fS=bS=1.
func NewScaling() *Scaling {
	m := &Scaling{fS: 1, bS: 1}
	m.in = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.in)
	m.RegisterOutput(m.out)
	return m
}

func (m *Scaling) Input() *engine.InputPort   { return m.in }
func (m *Scaling) Output() *engine.OutputPort { return m.out }

// SetForwardScale sets fS. Invalidates the module.
func (m *Scaling) SetForwardScale(fS float64) {
	m.fS = fS
	m.Invalidate()
}

// SetBackwardScale sets bS. Invalidates the module.
func (m *Scaling) SetBackwardScale(bS float64) {
	m.bS = bS
	m.Invalidate()
}

func (m *Scaling) Foreprop() error {
	in, err := m.in.Value()
	if err != nil {
		return err
	}
	return m.out.Foreprop(matrix.Scale(m.fS, in))
}

func (m *Scaling) Backprop() error {
	dody := m.out.ChainBackprop(nil)
	return m.in.Backprop(matrix.Scale(m.bS, dody))
}
