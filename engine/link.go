package engine

import (
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// Link connects an OutputPort to an InputPort, registering both peers
// symmetrically. in must not already have a source; Link does not check
// this (matching spec.md's "creating it registers both peers
// symmetrically" — the single-source invariant is the caller's
// responsibility when assembling a graph, since a module's constructor
// controls how many times each of its input ports is linked).
func Link(out *OutputPort, in *InputPort) {
	in.RegisterSource(out)
	out.RegisterConsumer(in)
}

// Unlink removes the link between out and in, if one exists. Returns
// ErrUnregisterMissing if in was not a registered consumer of out.
func Unlink(out *OutputPort, in *InputPort) error {
	return out.UnregisterConsumer(in, true)
}

// SumMatrices sums the non-empty matrices in mats, skipping empty ones.
// Returns matrix.ErrEmptySum if none are non-empty. This is the
// sum_matrices free function used by modules that aggregate adjoint
// contributions arriving on several output ports (e.g. kalman.Update).
func SumMatrices(mats ...*mat.Dense) (*mat.Dense, error) {
	return matrix.Sum(mats...)
}
