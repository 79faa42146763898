package engine

// Module is the interface every concrete module satisfies. ModuleBase
// implements everything except Foreprop and Backprop, which encode the
// module's actual matrix operation and must be supplied by the concrete
// type that embeds ModuleBase.
type Module interface {
	// Foreprop is called once all registered input ports are valid. It
	// must call Foreprop(value) on each registered output port exactly
	// once.
	Foreprop() error

	// Backprop is called once every registered output port is
	// backprop-ready. It must call Backprop(adjoint) on each registered
	// input port at most once.
	Backprop() error

	// Invalidate resets every port owned by this module to invalid.
	Invalidate()

	// FullyValid reports whether every input port is valid.
	FullyValid() bool

	// FullyInvalid reports whether every input and output port is invalid.
	FullyInvalid() bool

	// BackpropReady reports whether every output port is backprop-ready.
	BackpropReady() bool
}

// ModuleBase is embedded by every concrete module. It owns the module's
// registered ports and implements the shared validity/invalidation
// bookkeeping of spec.md's ModuleBase; only Foreprop and Backprop are left
// for the embedding type to define.
//
// ModuleBase must never be copied after any port has been registered:
// ports hold a Module reference obtained from the embedding type at
// construction time, and copying would leave that reference pointing at a
// stale value. Concrete module constructors always return a pointer.
type ModuleBase struct {
	inputs  []*InputPort
	outputs []*OutputPort
}

// RegisterInput adds an input port to this module's tracked set. Called
// once per port, from the concrete module's constructor.
func (b *ModuleBase) RegisterInput(p *InputPort) {
	b.inputs = append(b.inputs, p)
}

// RegisterOutput adds an output port to this module's tracked set.
func (b *ModuleBase) RegisterOutput(p *OutputPort) {
	b.outputs = append(b.outputs, p)
}

// UnregisterInput removes a previously registered input port. Returns
// ErrUnregisterMissing if p was never registered.
func (b *ModuleBase) UnregisterInput(p *InputPort) error {
	for i, in := range b.inputs {
		if in == p {
			b.inputs = append(b.inputs[:i], b.inputs[i+1:]...)
			return nil
		}
	}
	return ErrUnregisterMissing
}

// UnregisterOutput removes a previously registered output port.
func (b *ModuleBase) UnregisterOutput(p *OutputPort) error {
	for i, out := range b.outputs {
		if out == p {
			b.outputs = append(b.outputs[:i], b.outputs[i+1:]...)
			return nil
		}
	}
	return ErrUnregisterMissing
}

// Inputs returns the module's registered input ports, in registration order.
func (b *ModuleBase) Inputs() []*InputPort { return b.inputs }

// Outputs returns the module's registered output ports, in registration order.
func (b *ModuleBase) Outputs() []*OutputPort { return b.outputs }

// FullyValid reports whether every registered input port is valid.
func (b *ModuleBase) FullyValid() bool {
	for _, in := range b.inputs {
		if !in.Valid() {
			return false
		}
	}
	return true
}

// FullyInvalid reports whether every registered input and output port is invalid.
func (b *ModuleBase) FullyInvalid() bool {
	for _, in := range b.inputs {
		if in.Valid() {
			return false
		}
	}
	for _, out := range b.outputs {
		if out.Valid() {
			return false
		}
	}
	return true
}

// BackpropReady reports whether every registered output port is backprop-ready.
func (b *ModuleBase) BackpropReady() bool {
	for _, out := range b.outputs {
		if !out.BackpropReady() {
			return false
		}
	}
	return true
}

// Invalidate resets every registered port to invalid. Idempotent: a
// fully-invalid module is left untouched.
func (b *ModuleBase) Invalidate() {
	if b.FullyInvalid() {
		return
	}
	for _, in := range b.inputs {
		in.Invalidate()
	}
	for _, out := range b.outputs {
		out.Invalidate()
	}
}

// DisconnectAll unlinks every port this module owns from its peers,
// standing in for the C++ destructor's obligation to break all links
// touching a module's ports before the module itself goes away. Go's
// garbage collector reclaims the module regardless, but leaving links
// dangling into a logically-dead module would let a live peer keep
// pushing values or adjoints into it, so callers that discard a module
// mid-graph should call this first.
func (b *ModuleBase) DisconnectAll() {
	for _, in := range b.inputs {
		in.UnregisterSource(true)
	}
	for _, out := range b.outputs {
		out.UnregisterAllConsumers(true)
	}
}
