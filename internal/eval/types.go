package eval

// #region eval-config
// Config holds thresholds for post-rollout validation.
type Config struct {
	// MaxEnergyDrift bounds |energy[i] - energy[0]| across a rollout.
	MaxEnergyDrift float64
}

// DefaultConfig returns sensible validation thresholds.
func DefaultConfig() Config {
	return Config{
		MaxEnergyDrift: 100.0,
	}
}

// #endregion eval-config

// #region eval-metric
// Metric captures a single validation check result.
type Metric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// Result is the output of post-rollout validation. A failed result is
// guidance for the caller (skip the batch or abort the run); the core
// never retries.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}

// #endregion eval-result
