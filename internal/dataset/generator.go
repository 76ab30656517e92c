// Package dataset generates synthetic physics rollouts rendered as image
// sequences: a single body evolving under pendulum or mass-spring
// dynamics, drawn as a Gaussian blob. It stands in for the offline
// datasets the trainer would otherwise load from disk.
package dataset

import (
	"math"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region generator
// Generator samples frame-sequence batches for one environment.
type Generator struct {
	config Config
	rng    *rand.Rand
}

// NewGenerator validates the configuration and builds a generator.
func NewGenerator(config Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Generator{config: config, rng: rand.New(rand.NewSource(config.Seed))}, nil
}

// Config returns the generator's configuration.
func (g *Generator) Config() Config {
	return g.config
}

// SampleBatch renders a batch of fresh rollouts shaped
// (batch, seqLen, channels, height, width).
func (g *Generator) SampleBatch(batch int) *tensor.Tensor {
	c := g.config
	out := tensor.New(batch, c.SeqLen, c.Channels, c.Height, c.Width)
	frameLen := c.Channels * c.Height * c.Width
	for b := 0; b < batch; b++ {
		xs, ys := g.simulate()
		for s := 0; s < c.SeqLen; s++ {
			offset := (b*c.SeqLen + s) * frameLen
			g.renderFrame(out.Data[offset:offset+frameLen], xs[s], ys[s])
		}
	}
	return out
}

// #endregion generator

// #region dynamics
// simulate integrates one trajectory and returns per-frame body
// positions in [-1, 1] coordinates.
func (g *Generator) simulate() ([]float64, []float64) {
	c := g.config
	xs := make([]float64, c.SeqLen)
	ys := make([]float64, c.SeqLen)

	switch c.Environment {
	case "pendulum":
		// θ'' = -(g/l)·sin θ, semi-implicit Euler.
		theta := (g.rng.Float64() - 0.5) * math.Pi
		omega := (g.rng.Float64() - 0.5) * 2
		const gl = 9.8
		for s := 0; s < c.SeqLen; s++ {
			xs[s] = 0.8 * math.Sin(theta)
			ys[s] = -0.8 * math.Cos(theta)
			omega -= gl * math.Sin(theta) * c.Dt
			theta += omega * c.Dt
		}
	case "spring":
		// x'' = -k·x, closed form.
		const k = 4.0
		amp := 0.3 + 0.5*g.rng.Float64()
		phase := g.rng.Float64() * 2 * math.Pi
		w := math.Sqrt(k)
		for s := 0; s < c.SeqLen; s++ {
			t := float64(s) * c.Dt
			xs[s] = amp * math.Cos(w*t+phase)
			ys[s] = 0
		}
	}
	return xs, ys
}

// #endregion dynamics

// #region render
// renderFrame draws a Gaussian blob at (x, y) ∈ [-1, 1]² into one frame's
// flat (channels, height, width) buffer.
func (g *Generator) renderFrame(frame []float32, x, y float64) {
	c := g.config
	cx := (x + 1) / 2 * float64(c.Width-1)
	cy := (y + 1) / 2 * float64(c.Height-1)
	twoSigmaSq := 2 * c.BlobRadius * c.BlobRadius

	plane := c.Height * c.Width
	for i := 0; i < c.Height; i++ {
		for j := 0; j < c.Width; j++ {
			di := float64(i) - cy
			dj := float64(j) - cx
			v := float32(math.Exp(-(di*di + dj*dj) / twoSigmaSq))
			for ch := 0; ch < c.Channels; ch++ {
				frame[ch*plane+i*c.Width+j] = v
			}
		}
	}
}

// #endregion render
