package geco

import "fmt"

// #region config
// ConstraintFunc turns a reconstruction error and a tolerance into the
// controlled constraint value C. C <= 0 means the constraint is satisfied.
type ConstraintFunc func(reconError, tolerance float64) float64

// Config holds the controller's tuning constants.
type Config struct {
	// Variational selects constrained variational training; when false the
	// loss is the bare reconstruction error and no controller state is
	// touched.
	Variational bool

	// Tolerance parameterizes the constraint function. Must be positive.
	Tolerance float64

	// Alpha is the moving-average decay rate, in (0, 1).
	Alpha float64

	// Kappa is the multiplier update rate constant.
	Kappa float64

	// MultiplierMin and MultiplierMax bound the Lagrange multiplier.
	// Values at the bounds are silently clamped, not errors.
	MultiplierMin float64
	MultiplierMax float64

	// Constraint overrides the default rec - tol² constraint when set.
	Constraint ConstraintFunc
}

// DefaultConfig returns the standard controller constants.
func DefaultConfig() Config {
	return Config{
		Variational:   true,
		Tolerance:     0.01,
		Alpha:         0.99,
		Kappa:         0.1,
		MultiplierMin: 1e-10,
		MultiplierMax: 1e10,
	}
}

// Validate rejects configurations the constraint function is undefined
// for. Checked once at construction, never per batch.
func (c Config) Validate() error {
	if !c.Variational {
		return nil
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("geco: tolerance must be positive, got %v", c.Tolerance)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("geco: alpha must be in (0, 1), got %v", c.Alpha)
	}
	if c.MultiplierMin <= 0 || c.MultiplierMax <= c.MultiplierMin {
		return fmt.Errorf("geco: invalid multiplier bounds [%v, %v]", c.MultiplierMin, c.MultiplierMax)
	}
	return nil
}

// #endregion config

// #region state
// State is the controller's cross-batch memory: the exponentially
// smoothed constraint estimate and the Lagrange multiplier. It is an
// explicit value passed into and returned from every Step, owned by the
// training run and reset at run start. It is never persisted.
type State struct {
	Multiplier   float64
	MovingAvg    float64
	HasMovingAvg bool
}

// InitialState returns the run-start controller state: multiplier 1,
// moving average unset.
func InitialState() State {
	return State{Multiplier: 1}
}

// #endregion state

// #region outcome
// Outcome reports every term of one batch's loss computation.
type Outcome struct {
	Loss       float64
	ReconError float64

	// Variational-mode terms; zero in deterministic mode.
	KLD        float64
	Constraint float64 // live C for this batch
	MovingAvg  float64 // smoothed estimate after this batch
	Multiplier float64 // multiplier used in this batch's loss
}

// #endregion outcome
