package pipeline_test

import (
	"testing"

	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"github.com/Humhu/modprop/modules"
	"github.com/Humhu/modprop/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// buildProductPipeline wires a single Product module behind the harness:
// two registered inputs (L, R) feeding one registered output.
func buildProductPipeline(l, r *mat.Dense) *pipeline.Pipeline {
	p := pipeline.New()
	prod := modules.NewProduct()
	p.RegisterInput(prod.Left(), l)
	p.RegisterInput(prod.Right(), r)
	p.RegisterOutput(prod.Output())
	return p
}

// TestProductPipelineMatchesFiniteDifference covers spec.md scenario 1:
// L in R^{3x4}, R in R^{4x3}.
func TestProductPipelineMatchesFiniteDifference(t *testing.T) {
	l := mat.NewDense(3, 4, []float64{
		0.1, -0.2, 0.3, 0.4,
		-0.5, 0.6, -0.7, 0.8,
		0.9, -1.0, 0.2, -0.3,
	})
	r := mat.NewDense(4, 3, []float64{
		0.2, -0.1, 0.4,
		0.3, 0.5, -0.6,
		-0.7, 0.8, 0.1,
		0.9, -0.2, 0.3,
	})
	p := buildProductPipeline(l, r)

	report, err := pipeline.TestDerivatives(p, 1e-6, 1e-7)
	require.NoError(t, err)
	assert.True(t, report.Pass, "max errors: %v", report.MaxAbsError)
}

// TestExponentialPipelineAtZeroGivesIdentityJacobian covers spec.md
// scenario 2: X = 0 gives output all ones and Jacobian I_9.
func TestExponentialPipelineAtZeroGivesIdentityJacobian(t *testing.T) {
	p := pipeline.New()
	exp := modules.NewExponential()
	xPort := exp.Input()
	p.RegisterInput(xPort, matrix.Zeros(3, 3))
	p.RegisterOutput(exp.Output())

	require.NoError(t, p.Foreprop())
	out, err := p.GetOutput()
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		assert.InDelta(t, 1.0, out.At(i, 0), 1e-12)
	}

	require.NoError(t, p.Backprop())
	deriv := p.GetDerivative()
	assert.True(t, matrix.Equal(deriv, matrix.Identity(9), 1e-9))
}

// TestInvalidateClearsAccumulatorsBeforeReuse covers the fan-out boundary
// behaviour: seeding backprop twice without an intervening Invalidate
// doubles the accumulator and reports ErrTooManyBackprops (spec.md's
// "catches missing invalidate" case), while Invalidate between passes
// resets it.
func TestInvalidateClearsAccumulatorsBeforeReuse(t *testing.T) {
	c := modules.NewConstant(mat.NewDense(2, 1, []float64{1, 2}))
	sink := modules.NewSink()
	engine.Link(c.Output(), sink.Input())

	require.NoError(t, c.Foreprop())
	sink.SeedBackprop(matrix.Identity(2))
	require.NoError(t, sink.Backprop())
	first := matrix.Clone(c.Output().BackpropValue())

	sink.SeedBackprop(matrix.Identity(2))
	require.ErrorIs(t, sink.Backprop(), engine.ErrTooManyBackprops)
	doubled := c.Output().BackpropValue()
	assert.True(t, matrix.Equal(doubled, matrix.Scale(2, first), 1e-12))

	c.Invalidate()
	sink.Invalidate()
	require.NoError(t, c.Foreprop())
	sink.SeedBackprop(matrix.Identity(2))
	require.NoError(t, sink.Backprop())
	assert.True(t, matrix.Equal(c.Output().BackpropValue(), first, 1e-12))
}

// TestGetSetParamsRoundTrip exercises GetParams/SetParams and
// ParamDim, and confirms a length mismatch surfaces a *ParamDimError.
func TestGetSetParamsRoundTrip(t *testing.T) {
	l := matrix.Identity(2)
	r := matrix.Identity(2)
	p := buildProductPipeline(l, r)

	assert.Equal(t, 8, p.ParamDim())

	updated := mat.NewDense(2, 2, []float64{2, 0, 0, 2})
	flat := matrix.FlattenVectors(matrix.VecAsColumn(updated), matrix.VecAsColumn(r))
	require.NoError(t, p.SetParams(flat))
	require.NoError(t, p.Foreprop())
	out, err := p.GetOutput()
	require.NoError(t, err)
	assert.True(t, matrix.Equal(out, matrix.VecAsColumn(updated), 1e-12))

	badLen := mat.NewDense(3, 1, []float64{1, 2, 3})
	err = p.SetParams(badLen)
	require.Error(t, err)
	var dimErr *pipeline.ParamDimError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Have)
	assert.Equal(t, 8, dimErr.Want)
}

// TestRewireAfterUnlinkMatchesOriginal covers the "link then unlink then
// re-link" boundary behaviour: the rebuilt pipeline reproduces the same
// output and Jacobian as before the rewire.
func TestRewireAfterUnlinkMatchesOriginal(t *testing.T) {
	l := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	r := mat.NewDense(2, 2, []float64{5, 6, 7, 8})

	before := buildProductPipeline(l, r)
	require.NoError(t, before.Foreprop())
	wantOut, err := before.GetOutput()
	require.NoError(t, err)
	require.NoError(t, before.Backprop())
	wantDeriv := before.GetDerivative()

	prod := modules.NewProduct()
	scratch := modules.NewConstant(matrix.Identity(2))
	engine.Link(scratch.Output(), prod.Left())
	require.NoError(t, engine.Unlink(scratch.Output(), prod.Left()))

	after := pipeline.New()
	after.RegisterInput(prod.Left(), matrix.Clone(l))
	after.RegisterInput(prod.Right(), matrix.Clone(r))
	after.RegisterOutput(prod.Output())

	require.NoError(t, after.Foreprop())
	gotOut, err := after.GetOutput()
	require.NoError(t, err)
	assert.True(t, matrix.Equal(gotOut, wantOut, 1e-12))

	require.NoError(t, after.Backprop())
	assert.True(t, matrix.Equal(after.GetDerivative(), wantDeriv, 1e-12))
}
