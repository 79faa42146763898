package modules

import (
	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"gonum.org/v1/gonum/mat"
)

// IndexPair maps one column-major-flattened index of a Reshape module's
// input to one column-major-flattened index of its output.
type IndexPair struct {
	From int
	To   int
}

// Reshape copies scattered entries of its input into a template output,
// leaving every unmapped output entry at its BaseOut value. This is the
// general index-scatter behind vector-to-diagonal embedding, dense-to-
// diagonal extraction, and packed-triangular expansion; use the
// DiagEmbedIndices, DenseToDiagIndices, and SubDiagIndices generators
// below to build the common index sets.
type Reshape struct {
	engine.ModuleBase
	in      *engine.InputPort
	out     *engine.OutputPort
	baseOut *mat.Dense
	inds    []IndexPair
}

// NewReshape builds an unlinked Reshape. Call SetShapeParams before the
// first foreprop.
func NewReshape() *Reshape {
	m := &Reshape{}
	m.in = engine.NewInputPort(m)
	m.out = engine.NewOutputPort(m)
	m.RegisterInput(m.in)
	m.RegisterOutput(m.out)
	return m
}

func (m *Reshape) Input() *engine.InputPort   { return m.in }
func (m *Reshape) Output() *engine.OutputPort { return m.out }

// SetShapeParams sets the output template and the index scatter. Every
// output entry not named by inds keeps baseOut's value on every pass;
// baseOut is never mutated. Invalidates the module.
func (m *Reshape) SetShapeParams(baseOut *mat.Dense, inds []IndexPair) {
	m.baseOut = baseOut
	m.inds = inds
	m.Invalidate()
}

func (m *Reshape) Foreprop() error {
	if m.baseOut == nil {
		return engine.ErrUnsetParams
	}
	in, err := m.in.Value()
	if err != nil {
		return err
	}
	rows, cols := m.baseOut.Dims()
	outVec := matrix.Vec(m.baseOut)
	inVec := matrix.Vec(in)
	for _, p := range m.inds {
		outVec[p.To] = inVec[p.From]
	}
	return m.out.Foreprop(matrix.Unvec(rows, cols, outVec))
}

func (m *Reshape) Backprop() error {
	in, err := m.in.Value()
	if err != nil {
		return err
	}
	outLen := matrix.NumEl(m.baseOut)
	inLen := matrix.NumEl(in)
	dLdl := matrix.Zeros(outLen, inLen)
	for _, p := range m.inds {
		dLdl.Set(p.To, p.From, 1)
	}
	return m.in.Backprop(m.out.ChainBackprop(dLdl))
}

func ravelIndex(i, j, rows int) int { return i + j*rows }

// DiagEmbedIndices builds the index set that embeds a length-n input
// vector as the diagonal of an n x n output (paired with a zero baseOut).
func DiagEmbedIndices(n int) []IndexPair {
	inds := make([]IndexPair, n)
	for i := 0; i < n; i++ {
		inds[i] = IndexPair{From: i, To: ravelIndex(i, i, n)}
	}
	return inds
}

// DenseToDiagIndices builds the index set that keeps only the diagonal of
// an n x n dense input, pairing with a zero baseOut so off-diagonal
// entries of the output are forced to zero.
func DenseToDiagIndices(n int) []IndexPair {
	inds := make([]IndexPair, n)
	for i := 0; i < n; i++ {
		d := ravelIndex(i, i, n)
		inds[i] = IndexPair{From: d, To: d}
	}
	return inds
}

// SubDiagIndices builds the index set that expands a packed vector of the
// n x n entries (i,j) with i >= j+d, read column-major, into the
// corresponding n x n dense positions. d=0 covers the lower triangle
// including the diagonal; d=1 covers the strictly lower part.
func SubDiagIndices(n, d int) []IndexPair {
	var inds []IndexPair
	for j := 0; j < n-d; j++ {
		for i := j + d; i < n; i++ {
			inds = append(inds, IndexPair{From: len(inds), To: ravelIndex(i, j, n)})
		}
	}
	return inds
}
