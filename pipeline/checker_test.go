package pipeline_test

import (
	"testing"

	"github.com/Humhu/modprop/kalman"
	"github.com/Humhu/modprop/matrix"
	"github.com/Humhu/modprop/modules"
	"github.com/Humhu/modprop/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKalmanPredictPipelineDerivativesMatchFiniteDifference drives
// spec.md scenario 5 (n=3, A=I, x=0, P=I, Q=I) through the full
// Pipeline/TestDerivatives harness rather than a hand-seeded backprop,
// registering Q as the only learnable parameter.
func TestKalmanPredictPipelineDerivativesMatchFiniteDifference(t *testing.T) {
	n := 3
	prior := kalman.NewPrior()
	prior.SetX(matrix.Zeros(n, 1))
	prior.SetP(matrix.Identity(n))

	predict := kalman.NewPredict()
	predict.SetLinearParams(matrix.Identity(n))
	kalman.LinkKalman(prior.Ports(), predict.InPorts())

	post := kalman.NewPosterior()
	kalman.LinkKalman(predict.OutPorts(), post.Ports())

	p := pipeline.New()
	p.RegisterInput(predict.QIn(), matrix.Identity(n))
	p.RegisterOutput(predict.OutPorts().X)
	p.RegisterOutput(predict.OutPorts().P)

	report, err := pipeline.TestDerivatives(p, 1e-6, 1e-7)
	require.NoError(t, err)
	assert.True(t, report.Pass, "max errors: %v", report.MaxAbsError)
}

// TestDerivativeCheckerFailsOnWrongJacobian sanity-checks that
// TestDerivatives actually distinguishes a broken derivative: Scaling
// decouples its forward and backward scale factors, so setting a
// backward scale that disagrees with the forward one makes its analytic
// Jacobian wrong on purpose, and the check must catch it.
func TestDerivativeCheckerFailsOnWrongJacobian(t *testing.T) {
	p := pipeline.New()
	sc := modules.NewScaling()
	sc.SetForwardScale(2)
	sc.SetBackwardScale(5)
	p.RegisterInput(sc.Input(), matrix.Identity(2))
	p.RegisterOutput(sc.Output())

	report, err := pipeline.TestDerivatives(p, 1e-6, 1e-7)
	require.NoError(t, err)
	assert.False(t, report.Pass, "expected mismatched forward/backward scale to fail derivative check")
}
