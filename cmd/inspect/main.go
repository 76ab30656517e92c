package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/phaseforge/hgn/go-trainer/internal/runlog"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to the run database")
	last := flag.Int("last", 20, "show N most recent runs / batches")
	runID := flag.String("run", "", "show single run detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/hgn_runs.db [--last N] [--run id] [--json]")
		os.Exit(2)
	}

	store, err := runlog.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *runID != "" {
		err = runDetailMode(store, *runID, *last, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type runRow struct {
	RunID        string   `json:"run_id"`
	ExperimentID string   `json:"experiment_id"`
	TestError    *float64 `json:"test_error,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

func runListMode(store *runlog.Store, last int, jsonOut bool) error {
	runs, err := store.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	rows := make([]runRow, len(runs))
	for i, r := range runs {
		row := runRow{
			RunID:        r.RunID,
			ExperimentID: r.ExperimentID,
			CreatedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if r.HasTestError {
			te := r.TestError
			row.TestError = &te
		}
		rows[i] = row
	}

	if jsonOut {
		return printJSON(rows)
	}
	fmt.Printf("%-36s  %-20s  %10s  %s\n", "Run", "Experiment", "Test Err", "Time")
	for _, row := range rows {
		te := "-"
		if row.TestError != nil {
			te = fmt.Sprintf("%.6f", *row.TestError)
		}
		fmt.Printf("%-36s  %-20s  %10s  %s\n", row.RunID, row.ExperimentID, te, row.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOut struct {
	Run         runRow                    `json:"run"`
	Batches     []runlog.BatchEntry       `json:"batches"`
	Checkpoints []runlog.CheckpointRecord `json:"checkpoints"`
}

func runDetailMode(store *runlog.Store, runID string, last int, jsonOut bool) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	batches, err := store.ListBatches(runID, last)
	if err != nil {
		return err
	}
	checkpoints, err := store.ListCheckpoints(runID)
	if err != nil {
		return err
	}

	if jsonOut {
		row := runRow{
			RunID:        run.RunID,
			ExperimentID: run.ExperimentID,
			CreatedAt:    run.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if run.HasTestError {
			te := run.TestError
			row.TestError = &te
		}
		return printJSON(detailOut{Run: row, Batches: batches, Checkpoints: checkpoints})
	}

	fmt.Printf("Run %s (%s)\n", run.RunID, run.ExperimentID)
	if run.HasTestError {
		fmt.Printf("Test error: %.6f\n", run.TestError)
	}
	fmt.Printf("\n%5s %5s  %12s  %12s  %12s  %12s  %12s\n",
		"Epoch", "Batch", "Loss", "Rec", "KLD", "C (ma)", "Multiplier")
	for _, b := range batches {
		fmt.Printf("%5d %5d  %12.6f  %12.6f  %12.6f  %12.6f  %12.4g\n",
			b.Epoch, b.Batch, b.Loss, b.ReconError, b.KLD, b.MovingAvg, b.Multiplier)
	}
	if len(checkpoints) > 0 {
		fmt.Println("\nCheckpoints:")
		for _, c := range checkpoints {
			fmt.Printf("  epoch %d → %s\n", c.Epoch, c.Directory)
		}
	}
	return nil
}

// #endregion detail-mode

// #region helpers
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers
