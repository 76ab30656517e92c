package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/phaseforge/hgn/go-trainer/internal/config"
	"github.com/phaseforge/hgn/go-trainer/internal/replay"
	"github.com/phaseforge/hgn/go-trainer/internal/runlog"
)

// fixture-export turns a recorded run's constraint series into a replay
// fixture: the controller constants from the run's stored config, the
// per-batch constraint values, and the expected multiplier/moving-average
// trajectory recomputed by the replay harness.

func main() {
	dbPath := flag.String("db", "", "path to the run database")
	runID := flag.String("run", "", "run to export")
	out := flag.String("out", "fixture.json", "output fixture path")
	desc := flag.String("desc", "", "fixture description (defaults to run id)")
	flag.Parse()

	if *dbPath == "" || *runID == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/hgn_runs.db --run id [--out fixture.json]")
		os.Exit(2)
	}

	if err := export(*dbPath, *runID, *out, *desc); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func export(dbPath, runID, out, desc string) error {
	store, err := runlog.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}

	var exp config.Experiment
	if err := json.Unmarshal([]byte(run.ConfigJSON), &exp); err != nil {
		return fmt.Errorf("parse stored config for run %s: %w", runID, err)
	}

	// SQLite treats LIMIT -1 as no limit.
	batches, err := store.ListBatches(runID, -1)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return fmt.Errorf("run %s has no logged batches", runID)
	}

	constraints := make([]float64, len(batches))
	for i, b := range batches {
		constraints[i] = b.Constraint
	}

	fc := replay.FixtureConfig{
		Tolerance:     exp.Geco.Tolerance,
		Alpha:         exp.Geco.Alpha,
		Kappa:         exp.Geco.Kappa,
		MultiplierMin: exp.Geco.MultiplierMin,
		MultiplierMax: exp.Geco.MultiplierMax,
	}

	results, err := replay.Replay(constraints, fc.ToControllerConfig())
	if err != nil {
		return err
	}
	expected := make([]replay.FixtureExpected, len(results))
	for i, r := range results {
		expected[i] = replay.FixtureExpected{
			Batch:      r.Batch,
			Multiplier: r.Multiplier,
			MovingAvg:  r.MovingAvg,
		}
	}

	if desc == "" {
		desc = fmt.Sprintf("controller trajectory for run %s (%s)", run.RunID, run.ExperimentID)
	}
	fixture := &replay.Fixture{
		Description: desc,
		Config:      fc,
		Constraints: constraints,
		Expected:    expected,
	}
	if err := replay.SaveFixture(out, fixture); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d batches)\n", out, len(constraints))
	return nil
}
