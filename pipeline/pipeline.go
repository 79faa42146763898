// Package pipeline implements the harness that pins constant-source
// modules at a graph's parameter inputs and sink modules at its outputs,
// exposing the get/set-params and foreprop/backprop drivers an
// application (or the derivative checker in checker.go) needs without
// hand-wiring modules.Constant and modules.Sink itself.
package pipeline

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"github.com/Humhu/modprop/modules"
	"github.com/Humhu/modprop/telemetry"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

type paramSlot struct {
	value *modules.Constant
	port  *engine.InputPort
}

type sinkSlot struct {
	sink *modules.Sink
	port *engine.OutputPort
}

// Pipeline pins a set of parameter constants at a graph's entry points
// and a set of sinks at its exit points, and drives foreprop/backprop
// passes across the whole thing as a unit.
type Pipeline struct {
	params []*paramSlot
	sinks  []*sinkSlot
	log    zerolog.Logger
	passID int
}

// New builds an empty Pipeline logging through telemetry.Default.
func New() *Pipeline {
	return &Pipeline{log: telemetry.Default}
}

// SetLogger overrides the pipeline's logger.
func (p *Pipeline) SetLogger(l zerolog.Logger) { p.log = l }

// RegisterInput allocates a modules.Constant holding initial and links
// its output to port, registering it as the pipeline's next parameter in
// order.
func (p *Pipeline) RegisterInput(port *engine.InputPort, initial *mat.Dense) {
	c := modules.NewConstant(initial)
	engine.Link(c.Output(), port)
	p.params = append(p.params, &paramSlot{value: c, port: port})
}

// RegisterOutput allocates a modules.Sink taking port as its only input,
// registering it as the pipeline's next output in order.
func (p *Pipeline) RegisterOutput(port *engine.OutputPort) {
	s := modules.NewSink()
	engine.Link(port, s.Input())
	p.sinks = append(p.sinks, &sinkSlot{sink: s, port: port})
}

// Foreprop drives every parameter's foreprop in registration order.
// Push-based propagation carries the rest of the graph along.
func (p *Pipeline) Foreprop() error {
	p.passID++
	p.log.Debug().Int("pass", p.passID).Int("params", len(p.params)).Msg("pipeline foreprop start")
	for _, s := range p.params {
		if err := s.value.Foreprop(); err != nil {
			p.log.Error().Int("pass", p.passID).Err(err).Msg("pipeline foreprop failed")
			return err
		}
	}
	p.log.Debug().Int("pass", p.passID).Msg("pipeline foreprop done")
	return nil
}

// Backprop computes the total output width T = sum of numel(sink value)
// across all sinks, then seeds each sink's input with the T x T identity
// block aligned at that sink's offset — pushing the identity Jacobian of
// the concatenated output vector back through the graph so every
// parameter's accumulator ends the pass holding its column slice of the
// full Jacobian.
func (p *Pipeline) Backprop() error {
	total := 0
	sizes := make([]int, len(p.sinks))
	for i, s := range p.sinks {
		v, err := s.sink.Value()
		if err != nil {
			p.log.Error().Int("pass", p.passID).Err(err).Msg("pipeline backprop failed")
			return err
		}
		sizes[i] = matrix.NumEl(v)
		total += sizes[i]
	}

	p.log.Debug().Int("pass", p.passID).Int("width", total).Msg("pipeline backprop start")

	offset := 0
	for i, s := range p.sinks {
		block := matrix.Zeros(sizes[i], total)
		for r := 0; r < sizes[i]; r++ {
			block.Set(r, offset+r, 1)
		}
		s.sink.SeedBackprop(block)
		if err := s.sink.Backprop(); err != nil {
			p.log.Error().Int("pass", p.passID).Err(err).Msg("pipeline backprop failed")
			return err
		}
		offset += sizes[i]
	}

	p.log.Debug().Int("pass", p.passID).Msg("pipeline backprop done")
	return nil
}

// Invalidate resets every parameter and every sink, cascading through the
// whole graph.
func (p *Pipeline) Invalidate() {
	for _, s := range p.params {
		s.value.Invalidate()
	}
	for _, s := range p.sinks {
		s.sink.Invalidate()
	}
}

// GetOutput concatenates every sink's cached value, in registration
// order, into a single column vector.
func (p *Pipeline) GetOutput() (*mat.Dense, error) {
	vals := make([]*mat.Dense, len(p.sinks))
	for i, s := range p.sinks {
		v, err := s.sink.Value()
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return matrix.FlattenVectors(vals...), nil
}

// GetDerivative horizontally stacks every parameter's accumulated
// adjoint, in registration order, into a single T x (sum numel(param))
// Jacobian.
func (p *Pipeline) GetDerivative() *mat.Dense {
	accs := make([]*mat.Dense, len(p.params))
	for i, s := range p.params {
		accs[i] = s.value.Output().BackpropValue()
	}
	return matrix.HStack(accs...)
}

// GetParams flattens every parameter's current value, in registration
// order, into a single column vector.
func (p *Pipeline) GetParams() *mat.Dense {
	vals := make([]*mat.Dense, len(p.params))
	for i, s := range p.params {
		vals[i] = s.value.Value()
	}
	return matrix.FlattenVectors(vals...)
}

// ParamDim returns the total element count across every registered
// parameter, the length SetParams requires.
func (p *Pipeline) ParamDim() int {
	total := 0
	for _, s := range p.params {
		total += matrix.NumEl(s.value.Value())
	}
	return total
}

// SetParams restores every parameter's value by unflattening v against
// each parameter's own current shape, in registration order. Returns a
// *ParamDimError if v's length disagrees with ParamDim(). Does not
// invalidate the pipeline; callers cycling set_params -> foreprop must
// call Invalidate() first, per spec.md's Open Question resolution
// requiring an explicit invalidate between cycles.
func (p *Pipeline) SetParams(v *mat.Dense) error {
	want := p.ParamDim()
	have := matrix.NumEl(v)
	if have != want {
		return &ParamDimError{Have: have, Want: want}
	}
	flat := matrix.Vec(v)
	offset := 0
	for _, s := range p.params {
		cur := s.value.Value()
		n := matrix.NumEl(cur)
		rows, cols := cur.Dims()
		s.value.SetValue(matrix.Unvec(rows, cols, flat[offset:offset+n]))
		offset += n
	}
	return nil
}
