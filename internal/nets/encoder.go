package nets

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region encoder
// EncoderNet maps a channel-concatenated frame sequence
// (batch, seq*channels, h, w) to a latent distribution shaped
// (batch, latentChannels, h, w): a shared trunk feeds separate mean and
// log-variance heads.
type EncoderNet struct {
	trunk      *MLP
	meanHead   *Linear
	logvarHead *Linear

	inDim     int
	latentCh  int
	latentDim int
	height    int
	width     int
	rng       *rand.Rand
}

// NewEncoderNet builds the encoder for the config's frame geometry.
func NewEncoderNet(config Config, rng *rand.Rand) *EncoderNet {
	inDim := config.SeqLen * config.Channels * config.Height * config.Width
	latentDim := config.LatentChannels * config.Height * config.Width
	return &EncoderNet{
		trunk:      NewMLP(rng, []int{inDim, config.HiddenSize}, ActTanh, ActTanh),
		meanHead:   newLinear(rng, config.HiddenSize, latentDim),
		logvarHead: newLinear(rng, config.HiddenSize, latentDim),
		inDim:      inDim,
		latentCh:   config.LatentChannels,
		latentDim:  latentDim,
		height:     config.Height,
		width:      config.Width,
		rng:        rng,
	}
}

// Encode returns (z, mean, logvar). With sample=true, z is a
// reparameterized draw mean + exp(logvar/2)·ε; otherwise z is the mean.
func (e *EncoderNet) Encode(frames *tensor.Tensor, sample bool) (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor) {
	if len(frames.Shape) != 4 {
		panic(fmt.Sprintf("nets: encoder expects 4-D channel-stacked frames, got %v", frames.Shape))
	}
	batch := frames.Shape[0]
	flat := frames.Reshape(batch, frames.Len()/batch)
	if flat.Shape[1] != e.inDim {
		panic(fmt.Sprintf("nets: encoder expects %d inputs per sample, got %d", e.inDim, flat.Shape[1]))
	}

	h := e.trunk.Forward(flat)
	mean := e.meanHead.forward(h).Reshape(batch, e.latentCh, e.height, e.width)
	logvar := e.logvarHead.forward(h).Reshape(batch, e.latentCh, e.height, e.width)

	z := mean.Clone()
	if sample {
		for i := range z.Data {
			std := float32(math.Exp(float64(logvar.Data[i]) / 2))
			z.Data[i] += std * float32(e.rng.NormFloat64())
		}
	}
	return z, mean, logvar
}

// LatentChannels reports the latent channel count for prior draws.
func (e *EncoderNet) LatentChannels() int {
	return e.latentCh
}

// ReseedNoise resets the reparameterization noise stream. Paired loss
// evaluations reseed with the same value so the latent draw is common
// across them and their difference reflects only the parameter change.
func (e *EncoderNet) ReseedNoise(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// Parameters returns the encoder's learnable tensors.
func (e *EncoderNet) Parameters() []*tensor.Tensor {
	params := e.trunk.Parameters()
	params = append(params, e.meanHead.W, e.meanHead.B, e.logvarHead.W, e.logvarHead.B)
	return params
}

// #endregion encoder
