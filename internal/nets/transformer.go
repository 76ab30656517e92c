package nets

import (
	"fmt"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region transformer
// TransformerNet maps a latent sample (batch, latentChannels, h, w) to the
// initial phase-space state: two (batch, stateDim) tensors for position
// and momentum.
type TransformerNet struct {
	net      *MLP
	inDim    int
	stateDim int
}

// NewTransformerNet builds the transformer for the config's geometry.
func NewTransformerNet(config Config, rng *rand.Rand) *TransformerNet {
	inDim := config.LatentChannels * config.Height * config.Width
	return &TransformerNet{
		net:      NewMLP(rng, []int{inDim, config.HiddenSize, 2 * config.StateDim}, ActTanh, ActIdentity),
		inDim:    inDim,
		stateDim: config.StateDim,
	}
}

// Transform returns the initial (q, p) for a latent sample.
func (t *TransformerNet) Transform(z *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor) {
	batch := z.Shape[0]
	flat := z.Reshape(batch, z.Len()/batch)
	if flat.Shape[1] != t.inDim {
		panic(fmt.Sprintf("nets: transformer expects %d inputs per sample, got %d", t.inDim, flat.Shape[1]))
	}
	qp := t.net.Forward(flat)
	return tensor.SplitCols(qp, t.stateDim)
}

// Parameters returns the transformer's learnable tensors.
func (t *TransformerNet) Parameters() []*tensor.Tensor {
	return t.net.Parameters()
}

// #endregion transformer
