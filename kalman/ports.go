// Package kalman implements the reference Kalman-filter modules: predict,
// update, and the state-estimate source/sink pair that anchors a filter
// pipeline. Every module here composes the arithmetic building blocks in
// package modules with the engine's port/module substrate; none of them
// introduce new propagation machinery.
package kalman

import "github.com/Humhu/modprop/engine"

// KalmanInPorts groups the x and P input ports shared by every module
// that consumes a state estimate. The source expresses "has x,P input
// ports" as a KalmanIn mixin base class; composition serves the same
// purpose without virtual inheritance, so every Kalman module embeds one
// of these as a plain field instead.
type KalmanInPorts struct {
	X *engine.InputPort
	P *engine.InputPort
}

// NewKalmanInPorts builds a fresh, unregistered x/P input pair owned by
// owner. Call Register to add both ports to the owning module's tracked set.
func NewKalmanInPorts(owner engine.Module) KalmanInPorts {
	return KalmanInPorts{
		X: engine.NewInputPort(owner),
		P: engine.NewInputPort(owner),
	}
}

// Register adds both ports to b's tracked input set.
func (p KalmanInPorts) Register(b *engine.ModuleBase) {
	b.RegisterInput(p.X)
	b.RegisterInput(p.P)
}

// KalmanOutPorts groups the x and P output ports shared by every module
// that produces a state estimate.
type KalmanOutPorts struct {
	X *engine.OutputPort
	P *engine.OutputPort
}

// NewKalmanOutPorts builds a fresh, unregistered x/P output pair owned by
// owner.
func NewKalmanOutPorts(owner engine.Module) KalmanOutPorts {
	return KalmanOutPorts{
		X: engine.NewOutputPort(owner),
		P: engine.NewOutputPort(owner),
	}
}

// Register adds both ports to b's tracked output set.
func (p KalmanOutPorts) Register(b *engine.ModuleBase) {
	b.RegisterOutput(p.X)
	b.RegisterOutput(p.P)
}

// LinkKalman links both the x and P axes from pre to post in one call.
func LinkKalman(pre KalmanOutPorts, post KalmanInPorts) {
	engine.Link(pre.X, post.X)
	engine.Link(pre.P, post.P)
}

// UnlinkKalman unlinks both axes. The source's unlink_kalman_ports calls
// link_ports twice instead of unlink_ports, leaving both links in place;
// that is treated as a bug here, so both axes are genuinely unlinked.
func UnlinkKalman(pre KalmanOutPorts, post KalmanInPorts) error {
	if err := engine.Unlink(pre.X, post.X); err != nil {
		return err
	}
	return engine.Unlink(pre.P, post.P)
}
