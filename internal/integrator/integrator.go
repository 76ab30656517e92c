// Package integrator provides steppers satisfying the rollout engine's
// integrator port. Hamilton's equations give dq/dt = ∂H/∂p and
// dp/dt = -∂H/∂q; each stepper advances one timestep and remembers the
// energy of the state it stepped from.
package integrator

import (
	"fmt"

	"github.com/phaseforge/hgn/go-trainer/internal/rollout"
	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region leapfrog
// Leapfrog is the symplectic kick-drift-kick stepper.
type Leapfrog struct {
	dt     float32
	energy float64
}

// NewLeapfrog creates a leapfrog stepper with timestep dt.
func NewLeapfrog(dt float32) *Leapfrog {
	if dt <= 0 {
		panic(fmt.Sprintf("integrator: non-positive timestep %v", dt))
	}
	return &Leapfrog{dt: dt}
}

// Step advances (q, p) one timestep under hnn.
func (l *Leapfrog) Step(q, p *tensor.Tensor, hnn rollout.Hamiltonian) (*tensor.Tensor, *tensor.Tensor) {
	l.energy = hnn.Energy(q, p)

	// Half kick
	dHdq, _ := hnn.Gradients(q, p)
	pHalf := p.Clone()
	pHalf.AddScaled(dHdq, -l.dt/2)

	// Drift
	_, dHdp := hnn.Gradients(q, pHalf)
	qNext := q.Clone()
	qNext.AddScaled(dHdp, l.dt)

	// Half kick
	dHdq, _ = hnn.Gradients(qNext, pHalf)
	pNext := pHalf.Clone()
	pNext.AddScaled(dHdq, -l.dt/2)

	return qNext, pNext
}

// Energy returns the energy associated with the step just performed,
// evaluated at the state the step departed from.
func (l *Leapfrog) Energy() float64 {
	return l.energy
}

// #endregion leapfrog

// #region euler
// Euler is the explicit first-order stepper. Not symplectic; kept for
// comparison runs.
type Euler struct {
	dt     float32
	energy float64
}

// NewEuler creates an explicit Euler stepper with timestep dt.
func NewEuler(dt float32) *Euler {
	if dt <= 0 {
		panic(fmt.Sprintf("integrator: non-positive timestep %v", dt))
	}
	return &Euler{dt: dt}
}

// Step advances (q, p) one timestep under hnn.
func (e *Euler) Step(q, p *tensor.Tensor, hnn rollout.Hamiltonian) (*tensor.Tensor, *tensor.Tensor) {
	e.energy = hnn.Energy(q, p)

	dHdq, dHdp := hnn.Gradients(q, p)
	qNext := q.Clone()
	qNext.AddScaled(dHdp, e.dt)
	pNext := p.Clone()
	pNext.AddScaled(dHdq, -e.dt)

	return qNext, pNext
}

// Energy returns the energy associated with the step just performed.
func (e *Euler) Energy() float64 {
	return e.energy
}

// #endregion euler
