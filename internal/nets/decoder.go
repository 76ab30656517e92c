package nets

import (
	"fmt"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region decoder
// DecoderNet renders a position (batch, stateDim) back to an image frame
// (batch, channels, h, w). Sigmoid output keeps pixels in [0, 1].
type DecoderNet struct {
	net      *MLP
	stateDim int
	channels int
	height   int
	width    int
}

// NewDecoderNet builds the decoder for the config's frame geometry.
func NewDecoderNet(config Config, rng *rand.Rand) *DecoderNet {
	outDim := config.Channels * config.Height * config.Width
	return &DecoderNet{
		net:      NewMLP(rng, []int{config.StateDim, config.HiddenSize, outDim}, ActTanh, ActSigmoid),
		stateDim: config.StateDim,
		channels: config.Channels,
		height:   config.Height,
		width:    config.Width,
	}
}

// Decode renders one frame per position in the batch.
func (d *DecoderNet) Decode(q *tensor.Tensor) *tensor.Tensor {
	if len(q.Shape) != 2 || q.Shape[1] != d.stateDim {
		panic(fmt.Sprintf("nets: decoder expects (batch, %d) positions, got %v", d.stateDim, q.Shape))
	}
	out := d.net.Forward(q)
	return out.Reshape(q.Shape[0], d.channels, d.height, d.width)
}

// Parameters returns the decoder's learnable tensors.
func (d *DecoderNet) Parameters() []*tensor.Tensor {
	return d.net.Parameters()
}

// #endregion decoder
