package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/phaseforge/hgn/go-trainer/internal/config"
	"github.com/phaseforge/hgn/go-trainer/internal/dataset"
)

// datagen renders a batch of simulated physics rollouts to disk so
// training and evaluation can run against a fixed dataset instead of
// sampling fresh trajectories every batch.

func main() {
	configPath := flag.String("config", "", "experiment config YAML (optional)")
	out := flag.String("out", "rollouts.bin", "output dataset path")
	count := flag.Int("count", 64, "number of rollouts to render")
	flag.Parse()

	if *count <= 0 {
		fmt.Fprintln(os.Stderr, "usage: datagen [--config exp.yaml] [--out rollouts.bin] [--count N]")
		os.Exit(2)
	}

	exp, err := loadExperiment(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	gen, err := dataset.NewGenerator(datasetConfig(exp))
	if err != nil {
		log.Fatalf("dataset generator: %v", err)
	}

	rollouts := gen.SampleBatch(*count)
	if err := dataset.SaveRollouts(*out, rollouts); err != nil {
		log.Fatalf("save rollouts: %v", err)
	}
	log.Printf("wrote %d rollouts of %d steps (%s, %dx%d) to %s",
		*count, exp.Dataset.SeqLen, exp.Dataset.Environment,
		exp.Dataset.ImgSize, exp.Dataset.ImgSize, *out)
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

func datasetConfig(exp *config.Experiment) dataset.Config {
	return dataset.Config{
		Environment: exp.Dataset.Environment,
		SeqLen:      exp.Dataset.SeqLen,
		Channels:    exp.Dataset.Channels,
		Height:      exp.Dataset.ImgSize,
		Width:       exp.Dataset.ImgSize,
		Dt:          exp.Dataset.Dt,
		BlobRadius:  exp.Dataset.BlobRadius,
		Seed:        exp.Dataset.Seed,
	}
}
