package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/phaseforge/hgn/go-trainer/internal/config"
	"github.com/phaseforge/hgn/go-trainer/internal/dataset"
	"github.com/phaseforge/hgn/go-trainer/internal/persist"
	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
	"github.com/phaseforge/hgn/go-trainer/internal/train"
)

// #region main
func main() {
	configPath := flag.String("config", "", "path to the experiment YAML (defaults built in when empty)")
	modelDir := flag.String("model-dir", "", "directory with a saved model (fresh weights when empty)")
	mode := flag.String("mode", "reconstruct", "rollout mode: reconstruct | generate")
	steps := flag.Int("steps", 0, "rollout length (canonical sequence length when 0)")
	flag.Parse()

	exp, err := loadExperiment(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	model, err := train.BuildModel(exp)
	if err != nil {
		log.Fatalf("failed to build model: %v", err)
	}
	if *modelDir != "" {
		if err := persist.Load(*modelDir, model, config.ResolveDevice(exp.Device)); err != nil {
			log.Fatalf("failed to load model from %s: %v", *modelDir, err)
		}
	}
	engine := train.BuildEngine(exp, model, rand.New(rand.NewSource(exp.Networks.Seed+2)))

	switch *mode {
	case "generate":
		rec := engine.Generate(rolloutSteps(*steps, exp), exp.Dataset.ImgSize, exp.Dataset.ImgSize)
		fmt.Printf("generated rollout: %d states, %d reconstructions\n", len(rec.States()), len(rec.Reconstructions()))

	case "reconstruct":
		gen, err := dataset.NewGenerator(dataset.Config{
			Environment: exp.Dataset.Environment,
			SeqLen:      exp.Dataset.SeqLen,
			Channels:    exp.Dataset.Channels,
			Height:      exp.Dataset.ImgSize,
			Width:       exp.Dataset.ImgSize,
			Dt:          exp.Dataset.Dt,
			BlobRadius:  exp.Dataset.BlobRadius,
			Seed:        exp.Dataset.Seed,
		})
		if err != nil {
			log.Fatalf("failed to build dataset: %v", err)
		}
		frames := gen.SampleBatch(1)
		rec := engine.Reconstruct(frames, *steps, false)
		if rec.Steps() == exp.Dataset.SeqLen {
			fmt.Printf("reconstruction error: %.6f\n", tensor.MSE(rec.Input(), rec.ReconstructedRollout()))
		} else {
			fmt.Printf("extrapolated %d steps from a %d-step observation\n", rec.Steps(), exp.Dataset.SeqLen)
		}
		fmt.Println("per-step energies:")
		for i, e := range rec.Energies() {
			fmt.Printf("  step %2d: %.6f\n", i, e)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (want reconstruct or generate)\n", *mode)
		os.Exit(2)
	}
}

// #endregion main

// #region helpers
func rolloutSteps(steps int, exp *config.Experiment) int {
	if steps > 0 {
		return steps
	}
	return exp.Dataset.SeqLen
}

func loadExperiment(path string) (*config.Experiment, error) {
	if path == "" {
		exp := config.Default()
		if err := exp.Validate(); err != nil {
			return nil, err
		}
		return &exp, nil
	}
	return config.Load(path)
}

// #endregion helpers
