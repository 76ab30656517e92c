package runlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS training_runs (
	run_id         TEXT PRIMARY KEY,
	experiment_id  TEXT NOT NULL,
	config_json    TEXT NOT NULL,
	test_error     REAL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS loss_log (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL,
	epoch            INTEGER NOT NULL,
	batch            INTEGER NOT NULL,
	loss             REAL NOT NULL,
	rec_error        REAL NOT NULL,
	kld              REAL NOT NULL,
	constraint_value REAL NOT NULL,
	moving_avg       REAL NOT NULL,
	multiplier       REAL NOT NULL,
	created_at       TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES training_runs(run_id)
);

CREATE TABLE IF NOT EXISTS checkpoints (
	checkpoint_id  TEXT PRIMARY KEY,
	run_id         TEXT NOT NULL,
	epoch          INTEGER NOT NULL,
	directory      TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES training_runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store persists training runs, per-batch loss rows, and checkpoint
// locations in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region begin-run
// BeginRun registers a new training run and returns its record.
func (s *Store) BeginRun(experimentID, configJSON string) (RunRecord, error) {
	rec := RunRecord{
		RunID:        uuid.New().String(),
		ExperimentID: experimentID,
		ConfigJSON:   configJSON,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO training_runs (run_id, experiment_id, config_json, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.RunID, rec.ExperimentID, rec.ConfigJSON, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// SetTestError records the final test reconstruction error for a run.
func (s *Store) SetTestError(runID string, testError float64) error {
	_, err := s.db.Exec(`UPDATE training_runs SET test_error = ? WHERE run_id = ?`, testError, runID)
	if err != nil {
		return fmt.Errorf("set test error: %w", err)
	}
	return nil
}

// #endregion begin-run

// #region log-batch
// LogBatch appends one per-batch loss row for a run.
func (s *Store) LogBatch(runID string, e BatchEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO loss_log (run_id, epoch, batch, loss, rec_error, kld, constraint_value, moving_avg, multiplier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, e.Epoch, e.Batch, e.Loss, e.ReconError, e.KLD, e.Constraint, e.MovingAvg, e.Multiplier,
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log batch: %w", err)
	}
	return nil
}

// #endregion log-batch

// #region record-checkpoint
// RecordCheckpoint registers a saved model directory for a run.
func (s *Store) RecordCheckpoint(runID string, epoch int, directory string) (CheckpointRecord, error) {
	rec := CheckpointRecord{
		CheckpointID: uuid.New().String(),
		RunID:        runID,
		Epoch:        epoch,
		Directory:    directory,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO checkpoints (checkpoint_id, run_id, epoch, directory, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.CheckpointID, rec.RunID, rec.Epoch, rec.Directory, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return CheckpointRecord{}, fmt.Errorf("insert checkpoint: %w", err)
	}
	return rec, nil
}

// #endregion record-checkpoint

// #region queries
// ListRuns returns the most recent training runs.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, experiment_id, config_json, test_error, created_at
		 FROM training_runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var testErr sql.NullFloat64
		var createdStr string
		if err := rows.Scan(&rec.RunID, &rec.ExperimentID, &rec.ConfigJSON, &testErr, &createdStr); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if testErr.Valid {
			rec.TestError = testErr.Float64
			rec.HasTestError = true
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRun retrieves one training run by ID.
func (s *Store) GetRun(runID string) (RunRecord, error) {
	var rec RunRecord
	var testErr sql.NullFloat64
	var createdStr string
	err := s.db.QueryRow(
		`SELECT run_id, experiment_id, config_json, test_error, created_at
		 FROM training_runs WHERE run_id = ?`, runID,
	).Scan(&rec.RunID, &rec.ExperimentID, &rec.ConfigJSON, &testErr, &createdStr)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	if testErr.Valid {
		rec.TestError = testErr.Float64
		rec.HasTestError = true
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// ListBatches returns a run's loss rows in training order.
func (s *Store) ListBatches(runID string, limit int) ([]BatchEntry, error) {
	rows, err := s.db.Query(
		`SELECT epoch, batch, loss, rec_error, kld, constraint_value, moving_avg, multiplier, created_at
		 FROM loss_log WHERE run_id = ? ORDER BY id ASC LIMIT ?`, runID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var entries []BatchEntry
	for rows.Next() {
		var e BatchEntry
		var createdStr string
		if err := rows.Scan(&e.Epoch, &e.Batch, &e.Loss, &e.ReconError, &e.KLD, &e.Constraint, &e.MovingAvg, &e.Multiplier, &createdStr); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListCheckpoints returns a run's checkpoints in creation order.
func (s *Store) ListCheckpoints(runID string) ([]CheckpointRecord, error) {
	rows, err := s.db.Query(
		`SELECT checkpoint_id, run_id, epoch, directory, created_at
		 FROM checkpoints WHERE run_id = ? ORDER BY created_at ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	var records []CheckpointRecord
	for rows.Next() {
		var rec CheckpointRecord
		var createdStr string
		if err := rows.Scan(&rec.CheckpointID, &rec.RunID, &rec.Epoch, &rec.Directory, &createdStr); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion queries
