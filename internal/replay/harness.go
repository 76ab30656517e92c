// Package replay re-runs the constrained-optimization controller's
// bookkeeping over a recorded sequence of per-batch constraint values,
// entirely in memory. Fixtures pin the expected multiplier and
// moving-average trajectories so controller changes are caught
// deterministically.
package replay

import (
	"fmt"
	"math"

	"github.com/phaseforge/hgn/go-trainer/internal/geco"
)

// #region types

// StepResult is the controller state after replaying one batch.
type StepResult struct {
	Batch      int
	Constraint float64
	Multiplier float64
	MovingAvg  float64
}

// Summary aggregates a replay run.
type Summary struct {
	TotalBatches int
	Saturated    int // batches whose multiplier sat on a clamp bound
	FinalState   geco.State
}

// #endregion types

// #region replay

// Replay drives the controller state through the recorded constraint
// sequence, starting from the run-start state.
func Replay(constraints []float64, config geco.Config) ([]StepResult, error) {
	ctrl, err := geco.NewController(config)
	if err != nil {
		return nil, fmt.Errorf("replay config: %w", err)
	}

	st := geco.InitialState()
	results := make([]StepResult, 0, len(constraints))
	for i, c := range constraints {
		st = ctrl.AdvanceState(st, c)
		results = append(results, StepResult{
			Batch:      i,
			Constraint: c,
			Multiplier: st.Multiplier,
			MovingAvg:  st.MovingAvg,
		})
	}
	return results, nil
}

// Verify compares replay results against a fixture's expectations within
// tol. It returns the first mismatch as an error, or nil.
func Verify(results []StepResult, expected []FixtureExpected, tol float64) error {
	byBatch := make(map[int]StepResult, len(results))
	for _, r := range results {
		byBatch[r.Batch] = r
	}
	for _, exp := range expected {
		r, ok := byBatch[exp.Batch]
		if !ok {
			return fmt.Errorf("batch %d expected but not replayed", exp.Batch)
		}
		if math.Abs(r.Multiplier-exp.Multiplier) > tol {
			return fmt.Errorf("batch %d: multiplier %.10g, expected %.10g", exp.Batch, r.Multiplier, exp.Multiplier)
		}
		if math.Abs(r.MovingAvg-exp.MovingAvg) > tol {
			return fmt.Errorf("batch %d: moving average %.10g, expected %.10g", exp.Batch, r.MovingAvg, exp.MovingAvg)
		}
	}
	return nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []StepResult, config geco.Config) Summary {
	s := Summary{TotalBatches: len(results)}
	for _, r := range results {
		if r.Multiplier == config.MultiplierMin || r.Multiplier == config.MultiplierMax {
			s.Saturated++
		}
	}
	if len(results) > 0 {
		last := results[len(results)-1]
		s.FinalState = geco.State{
			Multiplier:   last.Multiplier,
			MovingAvg:    last.MovingAvg,
			HasMovingAvg: true,
		}
	}
	return s
}

// #endregion replay
