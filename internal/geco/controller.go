// Package geco implements the constrained-optimization training
// controller: reconstruction quality below a tolerance is treated as a
// constraint, weighted by an adaptively updated Lagrange multiplier,
// rather than as a fixed-weight loss term. The multiplier grows while the
// constraint is violated and shrinks while it is comfortably satisfied.
package geco

import (
	"math"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
	"github.com/phaseforge/hgn/go-trainer/internal/trajectory"
)

// #region controller
// Controller computes the scalar training loss for one batch's trajectory
// record. It holds no mutable state: the cross-batch memory travels as an
// explicit State value.
type Controller struct {
	config Config
}

// NewController validates the configuration and builds a controller.
func NewController(config Config) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Constraint == nil {
		config.Constraint = defaultConstraint
	}
	return &Controller{config: config}, nil
}

// defaultConstraint is the tolerance-adjusted reconstruction error
// C = rec - tol².
func defaultConstraint(reconError, tolerance float64) float64 {
	return reconError - tolerance*tolerance
}

// #endregion controller

// #region step
// Step performs the per-batch controller pass: it computes the loss terms
// for rec under the incoming state and returns the outcome together with
// the updated state. The multiplier update happens after the loss, driven
// by the detached (plain numeric) moving average.
//
// In deterministic mode the loss is the reconstruction error alone and
// the state passes through untouched.
func (c *Controller) Step(rec *trajectory.Record, st State) (Outcome, State) {
	out := c.evaluate(rec, st)
	if !c.config.Variational {
		return out, st
	}
	return out, c.AdvanceState(st, out.Constraint)
}

// AdvanceState applies one batch's bookkeeping to the controller state
// given the batch's live constraint value: blend the moving average, then
// update and clamp the multiplier from the detached estimate. Step uses
// this internally; replay harnesses drive it directly from recorded
// constraint sequences.
func (c *Controller) AdvanceState(st State, cLive float64) State {
	movingAvg := cLive
	if st.HasMovingAvg {
		movingAvg = c.config.Alpha*st.MovingAvg + (1-c.config.Alpha)*cLive
	}
	return State{
		MovingAvg:    movingAvg,
		HasMovingAvg: true,
		Multiplier:   clamp(st.Multiplier*math.Exp(c.config.Kappa*movingAvg), c.config.MultiplierMin, c.config.MultiplierMax),
	}
}

// LossAt re-evaluates the batch loss under a fixed controller state
// without any bookkeeping. Gradient estimation calls this on perturbed
// parameters; the constraint stays live while the state stays frozen.
func (c *Controller) LossAt(rec *trajectory.Record, st State) float64 {
	return c.evaluate(rec, st).Loss
}

func (c *Controller) evaluate(rec *trajectory.Record, st State) Outcome {
	if rec.Input() == nil {
		panic("geco: training requires a reconstruction-mode record with input frames")
	}
	reconError := tensor.MSE(rec.Input(), rec.ReconstructedRollout())

	if !c.config.Variational {
		return Outcome{Loss: reconError, ReconError: reconError}
	}

	cLive := c.config.Constraint(reconError, c.config.Tolerance)
	kld := KLDivergence(rec.LatentMean(), rec.LatentLogvar())

	// First observation seeds the moving average with C itself; later
	// batches blend the detached estimate with the live constraint.
	movingAvg := cLive
	if st.HasMovingAvg {
		movingAvg = c.config.Alpha*st.MovingAvg + (1-c.config.Alpha)*cLive
	}

	// Recentered constraint C' = C + (movingAvg - C): the live value
	// carries the gradient, the smoothed estimate sets the magnitude.
	cRecentered := cLive + (movingAvg - cLive)

	return Outcome{
		Loss:       kld + st.Multiplier*cRecentered,
		ReconError: reconError,
		KLD:        kld,
		Constraint: cLive,
		MovingAvg:  movingAvg,
		Multiplier: st.Multiplier,
	}
}

// #endregion step

// #region kld
// KLDivergence computes the KL divergence between N(mean, exp(logvar))
// and the standard normal prior, averaged over all elements:
// -0.5 * mean(1 + logvar - mean² - exp(logvar)).
func KLDivergence(mean, logvar *tensor.Tensor) float64 {
	if mean == nil || logvar == nil {
		panic("geco: variational training requires encoder mean and logvar")
	}
	tensor.MustMatch(mean, logvar, "kld")
	var sum float64
	for i := range mean.Data {
		m := float64(mean.Data[i])
		lv := float64(logvar.Data[i])
		sum += 1 + lv - m*m - math.Exp(lv)
	}
	return -0.5 * sum / float64(len(mean.Data))
}

// #endregion kld

// #region helpers
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
