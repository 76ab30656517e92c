package rollout

import "github.com/phaseforge/hgn/go-trainer/internal/tensor"

// The four function approximators and the integrator are capability ports:
// the engine depends only on these contracts, concrete variants are
// swappable without touching it.

// #region ports

// Encoder maps a channel-concatenated frame sequence to a latent
// distribution. With sample=true it returns a reparameterized draw plus
// the distribution's mean and log-variance; with sample=false it returns
// the mean as the sample.
type Encoder interface {
	Encode(frames *tensor.Tensor, sample bool) (z, mean, logvar *tensor.Tensor)
	// LatentChannels is the channel count of the latent representation,
	// used to shape prior draws in generative mode.
	LatentChannels() int
}

// Transformer maps a latent sample to the initial phase-space state.
type Transformer interface {
	Transform(z *tensor.Tensor) (q, p *tensor.Tensor)
}

// Hamiltonian maps a phase-space state to the system's scalar energy and
// exposes the energy's gradients with respect to position and momentum,
// which the integrator needs to evolve the state.
type Hamiltonian interface {
	Energy(q, p *tensor.Tensor) float64
	Gradients(q, p *tensor.Tensor) (dq, dp *tensor.Tensor)
}

// Decoder renders a position back to an image frame.
type Decoder interface {
	Decode(q *tensor.Tensor) *tensor.Tensor
}

// Integrator advances a phase-space state one timestep under a
// Hamiltonian. Energy reports the system energy associated with the step
// just performed.
type Integrator interface {
	Step(q, p *tensor.Tensor, hnn Hamiltonian) (*tensor.Tensor, *tensor.Tensor)
	Energy() float64
}

// #endregion ports
