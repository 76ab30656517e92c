package nets

import (
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region hamiltonian
// HamiltonianNet maps a phase-space state (q, p) to a scalar energy per
// sample. Besides the forward pass it exposes the analytic gradients
// ∂H/∂q and ∂H/∂p that the integrator consumes.
type HamiltonianNet struct {
	net      *MLP
	stateDim int
}

// NewHamiltonianNet builds the energy net for the config's state size.
func NewHamiltonianNet(config Config, rng *rand.Rand) *HamiltonianNet {
	return &HamiltonianNet{
		net:      NewMLP(rng, []int{2 * config.StateDim, config.HiddenSize, config.HiddenSize, 1}, ActTanh, ActIdentity),
		stateDim: config.StateDim,
	}
}

// Energy returns the batch-mean scalar energy of (q, p).
func (h *HamiltonianNet) Energy(q, p *tensor.Tensor) float64 {
	return h.net.Forward(tensor.ConcatCols(q, p)).Mean()
}

// Gradients returns (∂H/∂q, ∂H/∂p), per sample, for the integrator.
func (h *HamiltonianNet) Gradients(q, p *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor) {
	x := tensor.ConcatCols(q, p)
	ones := tensor.New(x.Shape[0], 1)
	for i := range ones.Data {
		ones.Data[i] = 1
	}
	grad := h.net.InputGradient(x, ones)
	return tensor.SplitCols(grad, h.stateDim)
}

// Parameters returns the energy net's learnable tensors.
func (h *HamiltonianNet) Parameters() []*tensor.Tensor {
	return h.net.Parameters()
}

// #endregion hamiltonian
