package kalman

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/modules"
)

// ScaledLink holds the two Scaling modules interposed between a Kalman
// output pair and a Kalman input pair by LinkScaled.
type ScaledLink struct {
	X *modules.Scaling
	P *modules.Scaling
}

// LinkScaled links pre to post the way LinkKalman does, but passes each
// axis through its own modules.Scaling module first, giving the link
// independent forward and backward scale factors per axis. The source
// mixes KalmanIn and KalmanOut into a single KalmanScalingModule for this;
// composing two ordinary Scaling modules and linking one per axis gives
// the same behavior without a Kalman-specific scaling module type.
func LinkScaled(pre KalmanOutPorts, post KalmanInPorts) *ScaledLink {
	link := &ScaledLink{
		X: modules.NewScaling(),
		P: modules.NewScaling(),
	}
	engine.Link(pre.X, link.X.Input())
	engine.Link(link.X.Output(), post.X)
	engine.Link(pre.P, link.P.Input())
	engine.Link(link.P.Output(), post.P)
	return link
}
