package main

import (
	"flag"
	"log"
	"os"

	"github.com/phaseforge/hgn/go-trainer/internal/config"
	"github.com/phaseforge/hgn/go-trainer/internal/runlog"
	"github.com/phaseforge/hgn/go-trainer/internal/train"
)

// #region main
func main() {
	configPath := flag.String("config", "", "path to the experiment YAML (defaults built in when empty)")
	dbPath := flag.String("db", envOr("HGN_DB", "hgn_runs.db"), "path to the run database")
	modelDir := flag.String("model-dir", envOr("HGN_MODEL_DIR", "saved_models/default"), "directory for model checkpoints")
	flag.Parse()

	exp, err := loadExperiment(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := runlog.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer store.Close()

	trainer, err := train.New(exp, store)
	if err != nil {
		log.Fatalf("failed to build trainer: %v", err)
	}

	log.Printf("training %s: %d epochs × %d batches, variational=%v",
		exp.ExperimentID, exp.Optimization.Epochs, exp.Optimization.BatchesPerEpoch, exp.Networks.Variational)
	if err := trainer.Fit(*modelDir); err != nil {
		log.Fatalf("training failed: %v", err)
	}
	log.Printf("model saved to %s", *modelDir)
}

// #endregion main

// #region helpers
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

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers
