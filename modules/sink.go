package modules

import (
	"github.com/Humhu/modprop/engine"
	"gonum.org/v1/gonum/mat"
)

// Sink is a one-input, zero-output module: the graph's terminal node for a
// scalar or matrix output of interest. It never fires on its own — a
// pipeline seeds it explicitly with SeedBackprop, then calls Backprop to
// push that seed upstream through its input.
type Sink struct {
	engine.ModuleBase
	in   *engine.InputPort
	seed *mat.Dense
}

// NewSink builds an unlinked Sink.
func NewSink() *Sink {
	m := &Sink{}
	m.in = engine.NewInputPort(m)
	m.RegisterInput(m.in)
	return m
}

// Input returns the module's single input port.
func (m *Sink) Input() *engine.InputPort { return m.in }

// Value returns the sink's current input value, or engine.ErrUseOfInvalid
// if the pass hasn't reached it yet.
func (m *Sink) Value() (*mat.Dense, error) { return m.in.Value() }

// SeedBackprop records the adjoint to push upstream on the next Backprop
// call. Typically the identity matrix (or a single row of it) sized to the
// sink's value, selecting which scalar outputs of interest this pass is
// differentiating.
func (m *Sink) SeedBackprop(dodx *mat.Dense) { m.seed = dodx }

// BackpropValue returns the seed most recently set by SeedBackprop.
func (m *Sink) BackpropValue() *mat.Dense { return m.seed }

// Foreprop does nothing: a sink has no output to push a value to.
func (m *Sink) Foreprop() error { return nil }

// Backprop pushes the current seed to the sink's input. A pipeline calls
// this directly, rather than relying on port-readiness, because a Sink has
// no output ports for BackpropReady to key off of.
func (m *Sink) Backprop() error {
	return m.in.Backprop(m.seed)
}
