package runlog

import "time"

// #region run-record
// RunRecord identifies one training run.
type RunRecord struct {
	RunID        string
	ExperimentID string
	ConfigJSON   string
	TestError    float64
	HasTestError bool
	CreatedAt    time.Time
}

// #endregion run-record

// #region batch-entry
// BatchEntry is one per-batch row of the loss log. Variational-mode runs
// fill every field; deterministic runs leave the controller terms zero.
type BatchEntry struct {
	Epoch      int
	Batch      int
	Loss       float64
	ReconError float64
	KLD        float64
	Constraint float64
	MovingAvg  float64
	Multiplier float64
	CreatedAt  time.Time
}

// #endregion batch-entry

// #region checkpoint-record
// CheckpointRecord links a run to a saved model directory.
type CheckpointRecord struct {
	CheckpointID string
	RunID        string
	Epoch        int
	Directory    string
	CreatedAt    time.Time
}

// #endregion checkpoint-record
