package kalman

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// Prior is a zero-input source of a state estimate: it foreprops a fixed
// x, P pair every time the graph is driven. It is the Kalman analogue of
// modules.Constant, anchoring the first stage of a filter chain.
type Prior struct {
	engine.ModuleBase
	out  KalmanOutPorts
	x, p *mat.Dense
}

// NewPrior builds an unlinked Prior. Call SetX and SetP before the first foreprop.
func NewPrior() *Prior {
	m := &Prior{}
	m.out = NewKalmanOutPorts(m)
	m.out.Register(&m.ModuleBase)
	return m
}

func (m *Prior) X() *engine.OutputPort { return m.out.X }
func (m *Prior) P() *engine.OutputPort { return m.out.P }

// Ports returns the x/P output pair, for use with LinkKalman and LinkScaled.
func (m *Prior) Ports() KalmanOutPorts { return m.out }

// SetX sets the fixed state mean. Invalidates the module.
func (m *Prior) SetX(x *mat.Dense) {
	m.x = x
	m.Invalidate()
}

// SetP sets the fixed state covariance. Invalidates the module.
func (m *Prior) SetP(p *mat.Dense) {
	m.p = p
	m.Invalidate()
}

func (m *Prior) Foreprop() error {
	if matrix.IsEmpty(m.x) || matrix.IsEmpty(m.p) {
		return engine.ErrUnsetParams
	}
	if err := m.out.X.Foreprop(m.x); err != nil {
		return err
	}
	return m.out.P.Foreprop(m.p)
}

// Backprop is a no-op: a prior has no upstream port to forward an adjoint to.
func (m *Prior) Backprop() error { return nil }
