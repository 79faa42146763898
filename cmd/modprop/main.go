// Package main provides the modprop CLI: it loads a Kalman chain config,
// builds the pipeline, checks its analytic derivatives against finite
// difference, and prints the report.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Humhu/modprop/config"
	"github.com/Humhu/modprop/pipeline"
	"github.com/Humhu/modprop/telemetry"
)

var (
	configPath = flag.String("config", "", "Path to a Kalman chain YAML config")
	step       = flag.Float64("step", 1e-6, "Finite-difference step size")
	eps        = flag.Float64("eps", 1e-7, "Maximum tolerated per-parameter error")
	logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()
	log := telemetry.Configure(*logLevel)

	if *configPath == "" {
		fmt.Println("modprop - differentiable Kalman pipeline checker")
		fmt.Println("Usage: modprop -config chain.yaml [-step 1e-6] [-eps 1e-7]")
		os.Exit(2)
	}

	chain, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}

	p, _, err := config.BuildPipeline(chain)
	if err != nil {
		log.Error().Err(err).Msg("failed to build pipeline")
		os.Exit(1)
	}

	report, err := pipeline.TestDerivatives(p, *step, *eps)
	if err != nil {
		log.Error().Err(err).Msg("derivative check failed")
		os.Exit(1)
	}

	fmt.Println(report.String())
	if !report.Pass {
		os.Exit(1)
	}
}
