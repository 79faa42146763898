package modules

import (
	"errors"

	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
)

// ErrNoInputs is returned by Mean.Foreprop when no sources have been
// registered.
var ErrNoInputs = errors.New("modules: mean over no inputs")

// Mean is a variadic fan-in module: it averages every currently registered
// source elementwise. Unlike the fixed-arity modules, its input set can
// grow and shrink at runtime via RegisterSource/UnregisterSource, so
// unlike them it must guard against rewiring while any input already
// holds a value — doing so mid-pass would silently change what "fully
// valid" means out from under the pending foreprop.
type Mean struct {
	engine.ModuleBase
	inputs  []*engine.InputPort
	sources []*engine.OutputPort
	out     *engine.OutputPort
}

// NewMean builds an unlinked Mean with no sources registered.
func NewMean() *Mean {
	m := &Mean{}
	m.out = engine.NewOutputPort(m)
	m.RegisterOutput(m.out)
	return m
}

func (m *Mean) Output() *engine.OutputPort { return m.out }

// NumSources returns the number of currently registered sources.
func (m *Mean) NumSources() int { return len(m.inputs) }

func (m *Mean) anyInputValid() bool {
	for _, in := range m.inputs {
		if in.Valid() {
			return true
		}
	}
	return false
}

// RegisterSource adds a new input wired to out. Returns
// engine.ErrRewireWhileValid if any existing input currently holds a
// value.
func (m *Mean) RegisterSource(out *engine.OutputPort) error {
	if m.anyInputValid() {
		return engine.ErrRewireWhileValid
	}
	in := engine.NewInputPort(m)
	m.RegisterInput(in)
	m.inputs = append(m.inputs, in)
	m.sources = append(m.sources, out)
	engine.Link(out, in)
	return nil
}

// UnregisterSource removes the input wired to out. Returns
// engine.ErrUnregisterMissing if out was never registered, or
// engine.ErrRewireWhileValid if any input currently holds a value.
func (m *Mean) UnregisterSource(out *engine.OutputPort) error {
	if m.anyInputValid() {
		return engine.ErrRewireWhileValid
	}
	for i, src := range m.sources {
		if src == out {
			in := m.inputs[i]
			if err := engine.Unlink(out, in); err != nil {
				return err
			}
			_ = m.UnregisterInput(in)
			m.inputs = append(m.inputs[:i], m.inputs[i+1:]...)
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			return nil
		}
	}
	return engine.ErrUnregisterMissing
}

func (m *Mean) Foreprop() error {
	if len(m.inputs) == 0 {
		return ErrNoInputs
	}
	n := float64(len(m.inputs))
	first, err := m.inputs[0].Value()
	if err != nil {
		return err
	}
	sum := matrix.Clone(first)
	for i := 1; i < len(m.inputs); i++ {
		v, err := m.inputs[i].Value()
		if err != nil {
			return err
		}
		sum = matrix.Add(sum, v)
	}
	return m.out.Foreprop(matrix.Scale(1/n, sum))
}

func (m *Mean) Backprop() error {
	n := float64(len(m.inputs))
	val, err := m.out.Value()
	if err != nil {
		return err
	}
	size := matrix.NumEl(val)
	dyDx := matrix.Scale(1/n, matrix.Identity(size))
	dodx := m.out.ChainBackprop(dyDx)
	for _, in := range m.inputs {
		if err := in.Backprop(dodx); err != nil {
			return err
		}
	}
	return nil
}
