// Package eval runs lightweight health checks on a finished rollout and
// its batch loss before an optimization step is taken on it.
package eval

import (
	"fmt"
	"math"

	"github.com/phaseforge/hgn/go-trainer/internal/trajectory"
)

// #region harness
// Harness validates trajectory records after a rollout.
type Harness struct {
	config Config
}

// NewHarness creates a harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Run checks one trajectory record and its batch loss. Returns pass/fail
// with per-check metrics.
func (h *Harness) Run(rec *trajectory.Record, loss float64) Result {
	var metrics []Metric
	passed := true
	var failReasons []string

	// 1. Loss must be a finite number.
	lossFinite := !math.IsNaN(loss) && !math.IsInf(loss, 0)
	metrics = append(metrics, Metric{Name: "loss_finite", Value: loss, Pass: lossFinite})
	if !lossFinite {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("loss is %v", loss))
	}

	// 2. Every reconstructed frame must be finite.
	framesFinite := true
	for _, frame := range rec.Reconstructions() {
		if !frame.AllFinite() {
			framesFinite = false
			break
		}
	}
	metrics = append(metrics, Metric{Name: "reconstructions_finite", Pass: framesFinite})
	if !framesFinite {
		passed = false
		failReasons = append(failReasons, "non-finite reconstruction")
	}

	// 3. Energy drift across the rollout stays bounded.
	if energies := rec.Energies(); len(energies) > 1 {
		drift := 0.0
		for _, e := range energies[1:] {
			if d := math.Abs(e - energies[0]); d > drift {
				drift = d
			}
		}
		driftPass := drift <= h.config.MaxEnergyDrift && !math.IsNaN(drift)
		metrics = append(metrics, Metric{Name: "energy_drift", Value: drift, Pass: driftPass})
		if !driftPass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("energy drift %.4f exceeds %.4f", drift, h.config.MaxEnergyDrift))
		}
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{Passed: passed, Metrics: metrics, Reason: reason}
}

// #endregion harness
