// Package config loads a declarative description of a Kalman chain from
// YAML and wires it into a pipeline.Pipeline, mirroring the teacher's
// internal/loader/models.go pattern of a typed config struct plus a
// single Load function.
package config

import (
	"fmt"
	"os"

	"github.com/Humhu/modprop/kalman"
	"github.com/Humhu/modprop/matrix"
	"github.com/Humhu/modprop/pipeline"
	"gopkg.in/yaml.v3"
)

// StageConfig describes one predict-then-update step of a Kalman chain.
// A stage with no Observation skips the update half and only predicts.
// All matrix fields are flattened column-major, matching matrix.Vec's
// convention throughout the rest of this module.
type StageConfig struct {
	Transition     []float64 `yaml:"transition"`
	TransitionRows int       `yaml:"transition_rows"`
	TransitionCols int       `yaml:"transition_cols"`

	// ProcessNoise is the predict step's initial Q, registered as a
	// pipeline parameter so it can be learned.
	ProcessNoise     []float64 `yaml:"process_noise"`
	ProcessNoiseRows int       `yaml:"process_noise_rows"`
	ProcessNoiseCols int       `yaml:"process_noise_cols"`

	// Observation is the update step's C matrix. Omit to skip the update
	// half of this stage.
	Observation     []float64 `yaml:"observation,omitempty"`
	ObservationRows int       `yaml:"observation_rows,omitempty"`
	ObservationCols int       `yaml:"observation_cols,omitempty"`

	// Measurement is the observed y for this stage's update, required
	// when Observation is set.
	Measurement []float64 `yaml:"measurement,omitempty"`

	// ObservationNoise is the update step's initial R, registered as a
	// pipeline parameter.
	ObservationNoise     []float64 `yaml:"observation_noise,omitempty"`
	ObservationNoiseRows int       `yaml:"observation_noise_rows,omitempty"`
	ObservationNoiseCols int       `yaml:"observation_noise_cols,omitempty"`
}

// KalmanChain describes an entire Kalman pipeline: an initial prior and a
// sequence of predict/update stages chained one after another.
type KalmanChain struct {
	InitialX     []float64     `yaml:"initial_x"`
	InitialXRows int           `yaml:"initial_x_rows"`
	InitialP     []float64     `yaml:"initial_p"`
	InitialPRows int           `yaml:"initial_p_rows"`
	Stages       []StageConfig `yaml:"stages"`
}

// Load parses a KalmanChain from the YAML file at path.
func Load(path string) (*KalmanChain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var chain KalmanChain
	if err := yaml.Unmarshal(data, &chain); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &chain, nil
}

// BuildPipeline wires chain into a fresh pipeline.Pipeline: a
// kalman.Prior seeded from InitialX/InitialP, one kalman.Predict per
// stage (its Q registered as a pipeline parameter), one kalman.Update
// per stage that sets an Observation (its R registered as a parameter
// and its innovation/covariance registered as pipeline outputs), and a
// terminal kalman.Posterior fed by whichever module produced the
// chain's final x, P — giving a caller direct programmatic access to
// the final state alongside the pipeline's own flattened output vector.
// Returns the pipeline and that terminal Posterior.
func BuildPipeline(chain *KalmanChain) (*pipeline.Pipeline, *kalman.Posterior, error) {
	p := pipeline.New()

	prior := kalman.NewPrior()
	prior.SetX(matrix.Unvec(chain.InitialXRows, 1, chain.InitialX))
	prior.SetP(matrix.Unvec(chain.InitialPRows, chain.InitialPRows, chain.InitialP))

	pre := prior.Ports()

	for i, stage := range chain.Stages {
		if len(stage.Transition) == 0 {
			return nil, nil, fmt.Errorf("config: stage %d: transition matrix required", i)
		}
		predict := kalman.NewPredict()
		predict.SetLinearParams(matrix.Unvec(stage.TransitionRows, stage.TransitionCols, stage.Transition))
		kalman.LinkKalman(pre, predict.InPorts())

		q := matrix.Zeros(stage.TransitionRows, stage.TransitionRows)
		if len(stage.ProcessNoise) > 0 {
			q = matrix.Unvec(stage.ProcessNoiseRows, stage.ProcessNoiseCols, stage.ProcessNoise)
		}
		p.RegisterInput(predict.QIn(), q)

		pre = predict.OutPorts()

		if len(stage.Observation) == 0 {
			continue
		}
		update := kalman.NewUpdate()
		c := matrix.Unvec(stage.ObservationRows, stage.ObservationCols, stage.Observation)
		y := matrix.Unvec(len(stage.Measurement), 1, stage.Measurement)
		update.SetLinearParams(c, y)
		kalman.LinkKalman(pre, update.InPorts())

		r := matrix.Unvec(stage.ObservationNoiseRows, stage.ObservationNoiseCols, stage.ObservationNoise)
		p.RegisterInput(update.RIn(), r)

		p.RegisterOutput(update.VOut())
		p.RegisterOutput(update.SOut())

		pre = update.OutPorts()
	}

	post := kalman.NewPosterior()
	kalman.LinkKalman(pre, post.Ports())
	p.RegisterOutput(pre.X)
	p.RegisterOutput(pre.P)

	return p, post, nil
}
