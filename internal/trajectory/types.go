package trajectory

import "github.com/phaseforge/hgn/go-trainer/internal/tensor"

// #region phase-state
// PhaseState is one (position, momentum) pair of the latent dynamical
// system. Q and P always share a shape.
type PhaseState struct {
	Q *tensor.Tensor
	P *tensor.Tensor
}

// #endregion phase-state

// #region latent
// Latent holds the encoder's stochastic output. Mean and Logvar are nil
// when the encoder ran in sampling-only mode or when the sample was drawn
// from the prior (generative mode).
type Latent struct {
	Sample *tensor.Tensor
	Mean   *tensor.Tensor
	Logvar *tensor.Tensor
}

// #endregion latent
