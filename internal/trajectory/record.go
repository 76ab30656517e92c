package trajectory

import (
	"fmt"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region record
// Record accumulates one rollout: the observed input (if any), the latent
// sample, the per-step phase-space states, their reconstructions, and the
// per-step energies. It is owned by a single rollout call, mutated only by
// the rollout engine during that call, and read-only afterwards.
//
// Every field is write-once and every append is bounded by the step count
// declared at construction. Violations are precondition bugs and panic.
type Record struct {
	batch    int
	steps    int
	channels int
	height   int
	width    int

	input  *tensor.Tensor
	latent *Latent

	states          []PhaseState
	reconstructions []*tensor.Tensor
	energies        []float64
}

// NewRecord declares the rollout's batch shape up front: batch size,
// requested step count, and the image dimensions each reconstruction must
// have.
func NewRecord(batch, steps, channels, height, width int) *Record {
	if batch <= 0 || steps <= 0 || channels <= 0 || height <= 0 || width <= 0 {
		panic(fmt.Sprintf("trajectory: invalid record shape (batch=%d steps=%d c=%d h=%d w=%d)",
			batch, steps, channels, height, width))
	}
	return &Record{
		batch:           batch,
		steps:           steps,
		channels:        channels,
		height:          height,
		width:           width,
		states:          make([]PhaseState, 0, steps),
		reconstructions: make([]*tensor.Tensor, 0, steps),
		energies:        make([]float64, 0, steps),
	}
}

// #endregion record

// #region writers
// SetInput records the observed frame batch, shaped
// (batch, seqLen, channels, height, width). The sequence length of the
// input may differ from the requested step count.
func (r *Record) SetInput(frames *tensor.Tensor) {
	if r.input != nil {
		panic("trajectory: input already set")
	}
	if len(frames.Shape) != 5 || frames.Shape[0] != r.batch ||
		frames.Shape[2] != r.channels || frames.Shape[3] != r.height || frames.Shape[4] != r.width {
		panic(fmt.Sprintf("trajectory: input shape %v does not match record (batch=%d c=%d h=%d w=%d)",
			frames.Shape, r.batch, r.channels, r.height, r.width))
	}
	r.input = frames
}

// SetLatent records the encoder output (or prior sample). Mean and logvar
// may be nil; when present they must match the sample's shape.
func (r *Record) SetLatent(sample, mean, logvar *tensor.Tensor) {
	if r.latent != nil {
		panic("trajectory: latent already set")
	}
	if sample == nil {
		panic("trajectory: latent sample is required")
	}
	if mean != nil {
		tensor.MustMatch(sample, mean, "latent mean")
	}
	if logvar != nil {
		tensor.MustMatch(sample, logvar, "latent logvar")
	}
	r.latent = &Latent{Sample: sample, Mean: mean, Logvar: logvar}
}

// AppendState appends the next (q, p) pair. Index 0 is the initial,
// un-evolved state. All states in one rollout share a shape.
func (r *Record) AppendState(q, p *tensor.Tensor) {
	if len(r.states) >= r.steps {
		panic(fmt.Sprintf("trajectory: state %d exceeds declared step count %d", len(r.states), r.steps))
	}
	tensor.MustMatch(q, p, "phase state")
	if len(r.states) > 0 {
		tensor.MustMatch(q, r.states[0].Q, "phase state sequence")
	}
	r.states = append(r.states, PhaseState{Q: q, P: p})
}

// AppendReconstruction appends the frame decoded from the most recent
// state, shaped (batch, channels, height, width).
func (r *Record) AppendReconstruction(frame *tensor.Tensor) {
	if len(r.reconstructions) >= r.steps {
		panic(fmt.Sprintf("trajectory: reconstruction %d exceeds declared step count %d", len(r.reconstructions), r.steps))
	}
	if len(frame.Shape) != 4 || frame.Shape[0] != r.batch || frame.Shape[1] != r.channels ||
		frame.Shape[2] != r.height || frame.Shape[3] != r.width {
		panic(fmt.Sprintf("trajectory: reconstruction shape %v does not match record (batch=%d c=%d h=%d w=%d)",
			frame.Shape, r.batch, r.channels, r.height, r.width))
	}
	r.reconstructions = append(r.reconstructions, frame)
}

// AppendEnergy appends one scalar system energy. Energy at index i belongs
// to the transition into state i+1; the final entry is evaluated directly
// on the last state.
func (r *Record) AppendEnergy(e float64) {
	if len(r.energies) >= r.steps {
		panic(fmt.Sprintf("trajectory: energy %d exceeds declared step count %d", len(r.energies), r.steps))
	}
	r.energies = append(r.energies, e)
}

// #endregion writers

// #region readers
// Batch returns the declared batch size.
func (r *Record) Batch() int { return r.batch }

// Steps returns the declared step count.
func (r *Record) Steps() int { return r.steps }

// Input returns the observed frame batch, or nil in generative mode.
func (r *Record) Input() *tensor.Tensor { return r.input }

// LatentSample returns the recorded latent sample, or nil if unset.
func (r *Record) LatentSample() *tensor.Tensor {
	if r.latent == nil {
		return nil
	}
	return r.latent.Sample
}

// LatentMean returns the encoder mean, or nil.
func (r *Record) LatentMean() *tensor.Tensor {
	if r.latent == nil {
		return nil
	}
	return r.latent.Mean
}

// LatentLogvar returns the encoder log-variance, or nil.
func (r *Record) LatentLogvar() *tensor.Tensor {
	if r.latent == nil {
		return nil
	}
	return r.latent.Logvar
}

// States returns the recorded phase-space trajectory.
func (r *Record) States() []PhaseState { return r.states }

// Reconstructions returns the per-step decoded frames.
func (r *Record) Reconstructions() []*tensor.Tensor { return r.reconstructions }

// Energies returns the per-step energies (empty in generative mode).
func (r *Record) Energies() []float64 { return r.energies }

// ReconstructedRollout stacks the reconstructions into one tensor shaped
// (batch, steps, channels, height, width), index-aligned with the states.
func (r *Record) ReconstructedRollout() *tensor.Tensor {
	if len(r.reconstructions) != r.steps {
		panic(fmt.Sprintf("trajectory: rollout incomplete: %d of %d reconstructions", len(r.reconstructions), r.steps))
	}
	out := tensor.New(r.batch, r.steps, r.channels, r.height, r.width)
	frameLen := r.channels * r.height * r.width
	for s, frame := range r.reconstructions {
		for b := 0; b < r.batch; b++ {
			dst := (b*r.steps + s) * frameLen
			src := b * frameLen
			copy(out.Data[dst:dst+frameLen], frame.Data[src:src+frameLen])
		}
	}
	return out
}

// #endregion readers
