package rollout

import (
	"fmt"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
	"github.com/phaseforge/hgn/go-trainer/internal/trajectory"
)

// #region engine
// Engine orchestrates encode → transform → iterative state evolution →
// decode into a full trajectory record. It has two modes: Reconstruct is
// conditioned on observed frames, Generate on a prior draw.
type Engine struct {
	encoder     Encoder
	transformer Transformer
	hnn         Hamiltonian
	decoder     Decoder
	integrator  Integrator

	seqLen   int
	channels int
	rng      *rand.Rand
}

// NewEngine builds an engine over the given ports. seqLen is the canonical
// rollout length used when a step count is not requested explicitly;
// channels is the image channel count. rng drives prior sampling in
// generative mode.
func NewEngine(enc Encoder, tr Transformer, hnn Hamiltonian, dec Decoder, integ Integrator, seqLen, channels int, rng *rand.Rand) *Engine {
	if seqLen <= 0 || channels <= 0 {
		panic(fmt.Sprintf("rollout: invalid engine dims (seqLen=%d channels=%d)", seqLen, channels))
	}
	return &Engine{
		encoder:     enc,
		transformer: tr,
		hnn:         hnn,
		decoder:     dec,
		integrator:  integ,
		seqLen:      seqLen,
		channels:    channels,
		rng:         rng,
	}
}

// SeqLen returns the canonical rollout length.
func (e *Engine) SeqLen() int { return e.seqLen }

// #endregion engine

// #region reconstruct
// Reconstruct runs a full rollout conditioned on an observed frame batch
// shaped (batch, seqLen, channels, height, width). stepCount <= 0 selects
// the canonical sequence length. useSampling selects a reparameterized
// draw from the encoder distribution instead of its mean.
func (e *Engine) Reconstruct(frames *tensor.Tensor, stepCount int, useSampling bool) *trajectory.Record {
	if len(frames.Shape) != 5 {
		panic(fmt.Sprintf("rollout: frames must be 5-D (batch, seq, c, h, w), got %v", frames.Shape))
	}
	if frames.Shape[2] != e.channels {
		panic(fmt.Sprintf("rollout: frames have %d channels, engine expects %d", frames.Shape[2], e.channels))
	}
	if stepCount <= 0 {
		stepCount = e.seqLen
	}
	batch, height, width := frames.Shape[0], frames.Shape[3], frames.Shape[4]

	rec := trajectory.NewRecord(batch, stepCount, e.channels, height, width)
	rec.SetInput(frames)

	// Latent distribution over the channel-concatenated sequence.
	z, mean, logvar := e.encoder.Encode(ConcatChannels(frames), useSampling)
	rec.SetLatent(z, mean, logvar)

	// Initial state and its reconstruction.
	q, p := e.transformer.Transform(z)
	rec.AppendState(q, p)
	rec.AppendReconstruction(e.decoder.Decode(q))

	for i := 0; i < stepCount-1; i++ {
		q, p = e.integrator.Step(q, p, e.hnn)
		rec.AppendState(q, p)
		// Energy of the previous timestep: the integrator reports the
		// energy of the transition just taken, one index behind the
		// state it produced.
		rec.AppendEnergy(e.integrator.Energy())
		rec.AppendReconstruction(e.decoder.Decode(q))
	}

	// Direct evaluation on the final state aligns the energy sequence
	// with states and reconstructions. Diagnostic only; energies never
	// feed the training loss.
	rec.AppendEnergy(e.hnn.Energy(q, p))
	return rec
}

// #endregion reconstruct

// #region generate
// Generate samples a rollout from the prior: the latent is drawn from a
// standard normal shaped to the encoder's latent channel count and the
// requested image size. No observation exists, so no energies are
// recorded.
func (e *Engine) Generate(stepCount, height, width int) *trajectory.Record {
	if stepCount <= 0 {
		panic(fmt.Sprintf("rollout: invalid step count %d", stepCount))
	}
	rec := trajectory.NewRecord(1, stepCount, e.channels, height, width)

	z := tensor.Randn(e.rng, 1, 1, e.encoder.LatentChannels(), height, width)
	rec.SetLatent(z, nil, nil)

	q, p := e.transformer.Transform(z)
	rec.AppendState(q, p)
	rec.AppendReconstruction(e.decoder.Decode(q))

	for i := 0; i < stepCount-1; i++ {
		q, p = e.integrator.Step(q, p, e.hnn)
		rec.AppendState(q, p)
		rec.AppendReconstruction(e.decoder.Decode(q))
	}
	return rec
}

// #endregion generate
