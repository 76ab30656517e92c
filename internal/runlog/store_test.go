package runlog

import (
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBeginAndGetRun(t *testing.T) {
	store := testStore(t)

	run, err := store.BeginRun("pendulum-small", `{"epochs": 3}`)
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if run.RunID == "" {
		t.Fatal("run id should be assigned")
	}

	got, err := store.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.ExperimentID != "pendulum-small" {
		t.Fatalf("experiment = %s", got.ExperimentID)
	}
	if got.ConfigJSON != `{"epochs": 3}` {
		t.Fatalf("config = %s", got.ConfigJSON)
	}
	if got.HasTestError {
		t.Fatal("fresh run should have no test error")
	}
}

func TestSetTestError(t *testing.T) {
	store := testStore(t)
	run, err := store.BeginRun("exp", "{}")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	if err := store.SetTestError(run.RunID, 0.042); err != nil {
		t.Fatalf("set test error: %v", err)
	}
	got, err := store.GetRun(run.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !got.HasTestError || got.TestError != 0.042 {
		t.Fatalf("test error = %v (has=%v), want 0.042", got.TestError, got.HasTestError)
	}
}

func TestLogAndListBatches(t *testing.T) {
	store := testStore(t)
	run, err := store.BeginRun("exp", "{}")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	for i := 0; i < 3; i++ {
		entry := BatchEntry{
			Epoch:      0,
			Batch:      i,
			Loss:       float64(i) + 0.5,
			ReconError: 0.1,
			KLD:        0.2,
			Constraint: -0.05,
			MovingAvg:  -0.04,
			Multiplier: 1.1,
		}
		if err := store.LogBatch(run.RunID, entry); err != nil {
			t.Fatalf("log batch %d: %v", i, err)
		}
	}

	batches, err := store.ListBatches(run.RunID, 10)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	// Insertion order.
	for i, b := range batches {
		if b.Batch != i {
			t.Fatalf("batch %d has index %d", i, b.Batch)
		}
	}
	if batches[1].Loss != 1.5 || batches[1].Constraint != -0.05 {
		t.Fatalf("batch row = %+v", batches[1])
	}

	// SQLite LIMIT -1 means no limit.
	all, err := store.ListBatches(run.RunID, -1)
	if err != nil {
		t.Fatalf("list all batches: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d batches with no limit, want 3", len(all))
	}
}

func TestCheckpoints(t *testing.T) {
	store := testStore(t)
	run, err := store.BeginRun("exp", "{}")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}

	ck, err := store.RecordCheckpoint(run.RunID, 2, "/tmp/model-epoch2")
	if err != nil {
		t.Fatalf("record checkpoint: %v", err)
	}
	if ck.CheckpointID == "" {
		t.Fatal("checkpoint id should be assigned")
	}

	list, err := store.ListCheckpoints(run.RunID)
	if err != nil {
		t.Fatalf("list checkpoints: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d checkpoints, want 1", len(list))
	}
	if list[0].Epoch != 2 || list[0].Directory != "/tmp/model-epoch2" {
		t.Fatalf("checkpoint = %+v", list[0])
	}
}

func TestListRuns(t *testing.T) {
	store := testStore(t)
	for i := 0; i < 3; i++ {
		if _, err := store.BeginRun("exp", "{}"); err != nil {
			t.Fatalf("begin run %d: %v", i, err)
		}
	}

	runs, err := store.ListRuns(2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
}

func TestGetMissingRun(t *testing.T) {
	store := testStore(t)
	if _, err := store.GetRun("no-such-run"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
