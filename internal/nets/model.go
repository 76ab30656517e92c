package nets

import (
	"fmt"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region config
// Config fixes the dimensions shared by the four nets. The encoder input
// is the channel-concatenated sequence, so SeqLen and Channels are part of
// its geometry.
type Config struct {
	SeqLen         int
	Channels       int
	Height         int
	Width          int
	LatentChannels int
	StateDim       int
	HiddenSize     int
	Seed           int64
}

// DefaultConfig returns the dimensions used by the synthetic experiments.
func DefaultConfig() Config {
	return Config{
		SeqLen:         8,
		Channels:       3,
		Height:         32,
		Width:          32,
		LatentChannels: 2,
		StateDim:       16,
		HiddenSize:     64,
		Seed:           1,
	}
}

// Validate rejects impossible geometries.
func (c Config) Validate() error {
	if c.SeqLen <= 0 || c.Channels <= 0 || c.Height <= 0 || c.Width <= 0 {
		return fmt.Errorf("nets: invalid frame geometry (seq=%d c=%d h=%d w=%d)", c.SeqLen, c.Channels, c.Height, c.Width)
	}
	if c.LatentChannels <= 0 || c.StateDim <= 0 || c.HiddenSize <= 0 {
		return fmt.Errorf("nets: invalid net dims (latentCh=%d stateDim=%d hidden=%d)", c.LatentChannels, c.StateDim, c.HiddenSize)
	}
	return nil
}

// #endregion config

// #region model
// Model bundles the four function approximators as one unit. They are
// persisted and loaded together, all-or-nothing.
type Model struct {
	Encoder     *EncoderNet
	Transformer *TransformerNet
	Hamiltonian *HamiltonianNet
	Decoder     *DecoderNet
	Config      Config
}

// NewModel builds all four nets deterministically from the config seed.
func NewModel(config Config) (*Model, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(config.Seed))
	return &Model{
		Encoder:     NewEncoderNet(config, rng),
		Transformer: NewTransformerNet(config, rng),
		Hamiltonian: NewHamiltonianNet(config, rng),
		Decoder:     NewDecoderNet(config, rng),
		Config:      config,
	}, nil
}

// ParameterGroups returns the four parameter sets keyed by module name,
// in the fixed persistence order.
func (m *Model) ParameterGroups() []ParameterGroup {
	return []ParameterGroup{
		{Name: "encoder", Params: m.Encoder.Parameters()},
		{Name: "transformer", Params: m.Transformer.Parameters()},
		{Name: "hamiltonian", Params: m.Hamiltonian.Parameters()},
		{Name: "decoder", Params: m.Decoder.Parameters()},
	}
}

// ParameterGroup is one module's learnable tensors.
type ParameterGroup struct {
	Name   string
	Params []*tensor.Tensor
}

// #endregion model
