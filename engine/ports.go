package engine

import (
	"fmt"
	"math"

	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// InputPort carries one matrix value into a module. It has at most one
// source OutputPort at any time. See spec.md section 4.1.
type InputPort struct {
	owner  Module
	valid  bool
	source *OutputPort
	value  *mat.Dense
}

// NewInputPort constructs an input port owned by owner. owner is normally
// the module being constructed, obtained as a pointer before its own
// Foreprop/Backprop methods are invoked for the first time; Go resolves
// the interface's method set statically, so this is safe even though the
// module struct is not yet fully initialized.
func NewInputPort(owner Module) *InputPort {
	return &InputPort{owner: owner}
}

// Valid reports whether this port currently holds a value delivered by a
// foreprop not yet undone by an invalidation.
func (p *InputPort) Valid() bool { return p.valid }

// Value returns the port's cached value. Returns ErrUseOfInvalid if the
// port is not valid.
func (p *InputPort) Value() (*mat.Dense, error) {
	if !p.valid {
		return nil, ErrUseOfInvalid
	}
	return p.value, nil
}

// Source returns the port's current source, or nil if unset.
func (p *InputPort) Source() *OutputPort { return p.source }

// RegisterSource attaches src as this port's single source. Replaces any
// previously registered source without unlinking it; callers that want
// symmetric bookkeeping should go through Link/Unlink instead of calling
// RegisterSource directly.
func (p *InputPort) RegisterSource(src *OutputPort) {
	p.source = src
}

// UnregisterSource detaches this port's source. When recurse is true, the
// reciprocal consumer registration on the source is also removed; recurse
// is false only for the reciprocal half of an unlink call, to avoid
// infinite recursion between the two peers.
func (p *InputPort) UnregisterSource(recurse bool) {
	src := p.source
	p.source = nil
	if recurse && src != nil {
		_ = src.UnregisterConsumer(p, false)
	}
}

// Foreprop delivers a value to this port. It is an error to foreprop a
// port that is already valid (ErrDoubleForeprop). Once the value is
// stored, if the owning module now has every input valid, the module's
// own Foreprop is invoked — this is the push that drives forward
// evaluation.
func (p *InputPort) Foreprop(val *mat.Dense) error {
	if p.valid {
		return ErrDoubleForeprop
	}
	p.value = val
	p.valid = true
	if p.owner.FullyValid() {
		return p.owner.Foreprop()
	}
	return nil
}

// Backprop forwards an adjoint to this port's source, if any. A port with
// no source silently discards the adjoint (an unconnected parameter input
// contributes nothing); in practice every input has a source by the time
// backprop runs.
func (p *InputPort) Backprop(dodx *mat.Dense) error {
	if p.source == nil {
		return nil
	}
	return p.source.Backprop(dodx)
}

// Invalidate clears this port's value and cascades: it invalidates the
// owning module (unless already fully invalid) and, if the source is
// still valid, invalidates the source too. Idempotent.
func (p *InputPort) Invalidate() {
	if !p.valid {
		return
	}
	p.value = nil
	p.valid = false
	if !p.owner.FullyInvalid() {
		p.owner.Invalidate()
	}
	if p.source != nil && p.source.Valid() {
		p.source.Invalidate()
	}
}

// OutputPort carries one matrix value out of a module to zero or more
// consumer InputPorts, and accumulates backpropagated adjoints from them.
// See spec.md section 4.1.
type OutputPort struct {
	owner     Module
	consumers []*InputPort
	valid     bool
	value     *mat.Dense
	acc       *mat.Dense
	numBacks  int
}

// NewOutputPort constructs an output port owned by owner.
func NewOutputPort(owner Module) *OutputPort {
	return &OutputPort{owner: owner}
}

// Valid reports whether this port currently holds a foreprop'd value.
func (p *OutputPort) Valid() bool { return p.valid }

// NumConsumers returns the number of registered consumer input ports.
func (p *OutputPort) NumConsumers() int { return len(p.consumers) }

// Value returns the port's cached value, or ErrUseOfInvalid if invalid.
func (p *OutputPort) Value() (*mat.Dense, error) {
	if !p.valid {
		return nil, ErrUseOfInvalid
	}
	return p.value, nil
}

// RegisterConsumer appends in to this port's consumer list, in the order
// consumers are registered — the order foreprop pushes values downstream.
func (p *OutputPort) RegisterConsumer(in *InputPort) {
	p.consumers = append(p.consumers, in)
}

// UnregisterConsumer removes in from this port's consumer list. Returns
// ErrUnregisterMissing if in was not registered. When recurse is true, the
// reciprocal source registration on in is also cleared.
func (p *OutputPort) UnregisterConsumer(in *InputPort, recurse bool) error {
	for i, c := range p.consumers {
		if c == in {
			p.consumers = append(p.consumers[:i], p.consumers[i+1:]...)
			if recurse {
				in.UnregisterSource(false)
			}
			return nil
		}
	}
	return ErrUnregisterMissing
}

// UnregisterAllConsumers detaches every consumer currently registered.
func (p *OutputPort) UnregisterAllConsumers(recurse bool) {
	consumers := p.consumers
	p.consumers = nil
	if recurse {
		for _, c := range consumers {
			c.UnregisterSource(false)
		}
	}
}

// Foreprop stores val, marks the port valid, and pushes val to every
// registered consumer in registration order. If any consumer's foreprop
// fails, the remaining consumers are still not notified — the pass aborts
// immediately, per the error propagation policy.
func (p *OutputPort) Foreprop(val *mat.Dense) error {
	p.value = val
	p.valid = true
	for _, c := range p.consumers {
		if err := c.Foreprop(val); err != nil {
			return err
		}
	}
	return nil
}

// BackpropReady reports whether this port has received one adjoint
// contribution per consumer. A port with zero consumers is trivially
// ready — this is how a pipeline sink's terminal output is detected.
func (p *OutputPort) BackpropReady() bool {
	return p.numBacks == len(p.consumers)
}

// BackpropValue returns the currently accumulated adjoint (possibly
// Empty() if nothing has been backpropped yet this pass).
func (p *OutputPort) BackpropValue() *mat.Dense { return p.acc }

// ChainBackprop returns acc * jacobian, applying the module-level
// right-multiplication convention: the accumulator's rows index the
// scalar outputs of interest and its columns index this port's flattened
// value, so multiplying by the local d(this value)/d(x) Jacobian on the
// right yields the adjoint to push upstream to x. Returns Empty() if the
// accumulator is empty; returns the accumulator unchanged if jacobian is
// empty.
func (p *OutputPort) ChainBackprop(jacobian *mat.Dense) *mat.Dense {
	if matrix.IsEmpty(p.acc) {
		return matrix.Empty()
	}
	if matrix.IsEmpty(jacobian) {
		return matrix.Clone(p.acc)
	}
	return matrix.Mul(p.acc, jacobian)
}

// Backprop accumulates dodx into this port's adjoint and, once every
// consumer has contributed and the owning module's other outputs are all
// backprop-ready too, invokes the owning module's Backprop.
func (p *OutputPort) Backprop(dodx *mat.Dense) error {
	if !p.valid {
		return ErrBackpropOnInvalid
	}
	if err := checkFinite(dodx); err != nil {
		return err
	}

	valueLen := matrix.NumEl(p.value)
	dodxCols := 0
	if !matrix.IsEmpty(dodx) {
		_, dodxCols = dodx.Dims()
	}
	if dodxCols != valueLen {
		return NewAdjointShapeError(
			fmt.Sprintf("cols=%d", dodxCols),
			fmt.Sprintf("cols=%d", valueLen),
			"dodx.cols() must equal numel(value)",
		)
	}
	if matrix.NumEl(dodx) == 0 {
		return ErrEmptyAdjoint
	}

	if matrix.IsEmpty(p.acc) {
		p.acc = matrix.Clone(dodx)
	} else {
		if !matrix.SameShape(p.acc, dodx) {
			ar, ac := p.acc.Dims()
			dr, dc := dodx.Dims()
			return NewAdjointShapeError(
				fmt.Sprintf("%dx%d", dr, dc),
				fmt.Sprintf("%dx%d", ar, ac),
				"accumulated adjoint shape must match new contribution",
			)
		}
		p.acc.Add(p.acc, dodx)
	}
	p.numBacks++

	if p.numBacks > len(p.consumers) {
		return ErrTooManyBackprops
	}

	if p.BackpropReady() && p.owner.BackpropReady() {
		return p.owner.Backprop()
	}
	return nil
}

// Invalidate clears this port's value and adjoint accumulator, resets its
// backprop counter, and cascades to the owning module and every currently
// valid consumer. Idempotent.
func (p *OutputPort) Invalidate() {
	if !p.valid {
		return
	}
	p.acc = nil
	p.numBacks = 0
	p.value = nil
	p.valid = false
	if !p.owner.FullyInvalid() {
		p.owner.Invalidate()
	}
	for _, c := range p.consumers {
		if c.Valid() {
			c.Invalidate()
		}
	}
}

func checkFinite(m *mat.Dense) error {
	if matrix.IsEmpty(m) {
		return nil
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrNonFiniteAdjoint
			}
		}
	}
	return nil
}
