package kalman_test

import (
	"testing"

	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/kalman"
	"github.com/Humhu/modprop/matrix"
	"github.com/Humhu/modprop/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// TestPredictMatchesClosedForm covers the forward half of n=3, A=I, x=0,
// P=I, Q=I: expected x'=0, P'=2I. The adjoint half is checked by
// TestPredictAdjointOfOnesGivesOnesOnQ below.
func TestPredictMatchesClosedForm(t *testing.T) {
	n := 3
	prior := kalman.NewPrior()
	prior.SetX(matrix.Zeros(n, 1))
	prior.SetP(matrix.Identity(n))

	q := modules.NewConstant(matrix.Identity(n))

	predict := kalman.NewPredict()
	predict.SetLinearParams(matrix.Identity(n))
	kalman.LinkKalman(prior.Ports(), predict.InPorts())
	engine.Link(q.Output(), predict.QIn())

	post := kalman.NewPosterior()
	kalman.LinkKalman(predict.OutPorts(), post.Ports())

	require.NoError(t, prior.Foreprop())
	require.NoError(t, q.Foreprop())

	nextX, err := post.ValueX()
	require.NoError(t, err)
	assert.True(t, matrix.Equal(nextX, matrix.Zeros(n, 1), 1e-12))

	nextP, err := post.ValueP()
	require.NoError(t, err)
	assert.True(t, matrix.Equal(nextP, matrix.Scale(2, matrix.Identity(n)), 1e-12))
}

// TestPredictAdjointOfOnesGivesOnesOnQ separately drives the P-only seed
// (a row of ones, matching the "adjoint of ones" scenario) through to Q's
// accumulated gradient.
func TestPredictAdjointOfOnesGivesOnesOnQ(t *testing.T) {
	n := 3
	prior := kalman.NewPrior()
	prior.SetX(matrix.Zeros(n, 1))
	prior.SetP(matrix.Identity(n))

	q := modules.NewConstant(matrix.Identity(n))

	predict := kalman.NewPredict()
	predict.SetLinearParams(matrix.Identity(n))
	kalman.LinkKalman(prior.Ports(), predict.InPorts())
	engine.Link(q.Output(), predict.QIn())

	post := kalman.NewPosterior()
	kalman.LinkKalman(predict.OutPorts(), post.Ports())

	require.NoError(t, prior.Foreprop())
	require.NoError(t, q.Foreprop())

	ones := matrix.Zeros(1, n*n)
	for j := 0; j < n*n; j++ {
		ones.Set(0, j, 1)
	}
	post.SeedBackprop(matrix.Zeros(1, n), ones)
	require.NoError(t, post.Backprop())

	want := ones
	assert.True(t, matrix.Equal(q.Output().BackpropValue(), want, 1e-9))
}

// TestUpdateThenLikelihoodMatchesFiniteDifference covers n=3, m=2, a fixed
// non-trivial C, y = ones, P = R = I: the gradient of the Gaussian
// log-likelihood of the innovation with respect to the prior mean x
// matches a central finite difference.
func TestUpdateThenLikelihoodMatchesFiniteDifference(t *testing.T) {
	n, mDim := 3, 2
	c := mat.NewDense(mDim, n, []float64{1, 0.2, -0.3, 0.4, 1, 0.1})
	y := mat.NewDense(mDim, 1, []float64{1, 1})

	run := func(x, p, r *mat.Dense) float64 {
		prior := kalman.NewPrior()
		prior.SetX(x)
		prior.SetP(p)
		rMod := modules.NewConstant(r)

		upd := kalman.NewUpdate()
		upd.SetLinearParams(matrix.Clone(c), matrix.Clone(y))
		kalman.LinkKalman(prior.Ports(), upd.InPorts())
		engine.Link(rMod.Output(), upd.RIn())

		ll := modules.NewGaussianLogLikelihood()
		engine.Link(upd.VOut(), ll.X())
		engine.Link(upd.SOut(), ll.S())
		sink := modules.NewSink()
		engine.Link(ll.LL(), sink.Input())

		require.NoError(t, prior.Foreprop())
		require.NoError(t, rMod.Foreprop())

		v, err := sink.Value()
		require.NoError(t, err)
		return v.At(0, 0)
	}

	x0 := mat.NewDense(n, 1, []float64{0.1, -0.2, 0.3})
	p0 := matrix.Identity(n)
	r0 := matrix.Identity(mDim)

	// Build the graph once to seed and pull the analytic gradient with
	// respect to x_in.
	prior := kalman.NewPrior()
	prior.SetX(matrix.Clone(x0))
	prior.SetP(matrix.Clone(p0))
	rMod := modules.NewConstant(matrix.Clone(r0))

	upd := kalman.NewUpdate()
	upd.SetLinearParams(matrix.Clone(c), matrix.Clone(y))
	kalman.LinkKalman(prior.Ports(), upd.InPorts())
	engine.Link(rMod.Output(), upd.RIn())

	ll := modules.NewGaussianLogLikelihood()
	engine.Link(upd.VOut(), ll.X())
	engine.Link(upd.SOut(), ll.S())
	sink := modules.NewSink()
	engine.Link(ll.LL(), sink.Input())

	require.NoError(t, prior.Foreprop())
	require.NoError(t, rMod.Foreprop())

	sink.SeedBackprop(matrix.Identity(1))
	require.NoError(t, sink.Backprop())

	analyticDx := prior.X().BackpropValue()

	h := 1e-6
	numDx := matrix.Zeros(1, n)
	for i := 0; i < n; i++ {
		plus := matrix.Clone(x0)
		minus := matrix.Clone(x0)
		plus.Set(i, 0, plus.At(i, 0)+h)
		minus.Set(i, 0, minus.At(i, 0)-h)
		fp := run(plus, matrix.Clone(p0), matrix.Clone(r0))
		fm := run(minus, matrix.Clone(p0), matrix.Clone(r0))
		numDx.Set(0, i, (fp-fm)/(2*h))
	}

	for i := 0; i < n; i++ {
		assert.InDelta(t, numDx.At(0, i), analyticDx.At(0, i), 1e-4)
	}
}

func TestPosteriorSeedBackpropXZeroFillsP(t *testing.T) {
	prior := kalman.NewPrior()
	prior.SetX(mat.NewDense(2, 1, []float64{1, 2}))
	prior.SetP(matrix.Identity(2))
	post := kalman.NewPosterior()
	kalman.LinkKalman(prior.Ports(), post.Ports())

	require.NoError(t, prior.Foreprop())

	post.SeedBackpropX(matrix.Identity(2))
	require.NoError(t, post.Backprop())

	pAdj := prior.P().BackpropValue()
	assert.True(t, matrix.Equal(pAdj, matrix.Zeros(2, 4), 1e-12))
}

func TestLinkScaledAppliesScaleFactors(t *testing.T) {
	prior := kalman.NewPrior()
	prior.SetX(mat.NewDense(2, 1, []float64{1, 2}))
	prior.SetP(matrix.Identity(2))

	post := kalman.NewPosterior()
	link := kalman.LinkScaled(prior.Ports(), post.Ports())
	link.X.SetForwardScale(2)
	link.P.SetForwardScale(3)

	require.NoError(t, prior.Foreprop())

	xv, err := post.ValueX()
	require.NoError(t, err)
	assert.True(t, matrix.Equal(xv, mat.NewDense(2, 1, []float64{2, 4}), 1e-12))

	pv, err := post.ValueP()
	require.NoError(t, err)
	assert.True(t, matrix.Equal(pv, matrix.Scale(3, matrix.Identity(2)), 1e-12))
}

func TestPredictUnsetParamsErrors(t *testing.T) {
	prior := kalman.NewPrior()
	prior.SetX(mat.NewDense(1, 1, []float64{1}))
	prior.SetP(mat.NewDense(1, 1, []float64{1}))
	q := modules.NewConstant(mat.NewDense(1, 1, []float64{1}))

	predict := kalman.NewPredict()
	kalman.LinkKalman(prior.Ports(), predict.InPorts())
	engine.Link(q.Output(), predict.QIn())

	require.NoError(t, prior.Foreprop())
	err := q.Foreprop()
	assert.ErrorIs(t, err, engine.ErrUnsetParams)
}

func TestUnlinkKalmanBreaksBothAxes(t *testing.T) {
	prior := kalman.NewPrior()
	post := kalman.NewPosterior()
	kalman.LinkKalman(prior.Ports(), post.Ports())
	require.NoError(t, kalman.UnlinkKalman(prior.Ports(), post.Ports()))
	assert.Nil(t, post.X().Source())
	assert.Nil(t, post.P().Source())
}
