package kalman

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// Posterior is a zero-output sink for a state estimate: the Kalman
// analogue of modules.Sink. x and P are seeded and backpropped
// independently, since a caller differentiating a scalar loss may care
// about only one of the two axes; the unseeded axis is zero-filled to the
// right shape automatically.
type Posterior struct {
	engine.ModuleBase
	in           KalmanInPorts
	seedX, seedP *mat.Dense
}

// NewPosterior builds an unlinked Posterior.
func NewPosterior() *Posterior {
	m := &Posterior{}
	m.in = NewKalmanInPorts(m)
	m.in.Register(&m.ModuleBase)
	return m
}

func (m *Posterior) X() *engine.InputPort { return m.in.X }
func (m *Posterior) P() *engine.InputPort { return m.in.P }

// Ports returns the x/P input pair, for use with LinkKalman and LinkScaled.
func (m *Posterior) Ports() KalmanInPorts { return m.in }

// ValueX returns the posterior's current x value.
func (m *Posterior) ValueX() (*mat.Dense, error) { return m.in.X.Value() }

// ValueP returns the posterior's current P value.
func (m *Posterior) ValueP() (*mat.Dense, error) { return m.in.P.Value() }

// SeedBackprop records adjoints for both axes ahead of the next Backprop.
func (m *Posterior) SeedBackprop(dodx, dodP *mat.Dense) {
	m.seedX = dodx
	m.seedP = dodP
}

// SeedBackpropX seeds only the x axis; P is zero-filled at Backprop time.
func (m *Posterior) SeedBackpropX(dodx *mat.Dense) {
	m.seedX = dodx
	m.seedP = nil
}

// SeedBackpropP seeds only the P axis; x is zero-filled at Backprop time.
func (m *Posterior) SeedBackpropP(dodP *mat.Dense) {
	m.seedP = dodP
	m.seedX = nil
}

// Foreprop does nothing: a posterior has no output to push a value to.
func (m *Posterior) Foreprop() error { return nil }

// Backprop pushes the current seeds to both inputs, zero-filling whichever
// axis was not explicitly seeded so a caller differentiating only x (or
// only P) doesn't have to hand-construct a zero matrix of the right shape.
func (m *Posterior) Backprop() error {
	xVal, err := m.in.X.Value()
	if err != nil {
		return err
	}
	pVal, err := m.in.P.Value()
	if err != nil {
		return err
	}

	dodx := m.seedX
	dodP := m.seedP

	rows := 0
	switch {
	case !matrix.IsEmpty(dodx):
		rows, _ = dodx.Dims()
	case !matrix.IsEmpty(dodP):
		rows, _ = dodP.Dims()
	}

	if matrix.IsEmpty(dodx) && rows > 0 {
		dodx = matrix.Zeros(rows, matrix.NumEl(xVal))
	}
	if matrix.IsEmpty(dodP) && rows > 0 {
		dodP = matrix.Zeros(rows, matrix.NumEl(pVal))
	}

	if err := m.in.X.Backprop(dodx); err != nil {
		return err
	}
	return m.in.P.Backprop(dodP)
}
