package dataset

import "fmt"

// #region config
// Config describes a synthetic environment and the rendered frame
// geometry.
type Config struct {
	// Environment selects the dynamics: "pendulum" or "spring".
	Environment string
	SeqLen      int
	Channels    int
	Height      int
	Width       int
	// Dt is the physics timestep between rendered frames.
	Dt float64
	// BlobRadius is the Gaussian radius of the rendered body, in pixels.
	BlobRadius float64
	Seed       int64
}

// DefaultConfig returns the standard synthetic pendulum setup.
func DefaultConfig() Config {
	return Config{
		Environment: "pendulum",
		SeqLen:      8,
		Channels:    3,
		Height:      32,
		Width:       32,
		Dt:          0.1,
		BlobRadius:  2.5,
		Seed:        1,
	}
}

// Validate rejects unusable dataset configurations.
func (c Config) Validate() error {
	switch c.Environment {
	case "pendulum", "spring":
	default:
		return fmt.Errorf("dataset: unknown environment %q", c.Environment)
	}
	if c.SeqLen <= 0 || c.Channels <= 0 || c.Height <= 0 || c.Width <= 0 {
		return fmt.Errorf("dataset: invalid frame geometry (seq=%d c=%d h=%d w=%d)", c.SeqLen, c.Channels, c.Height, c.Width)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dataset: non-positive timestep %v", c.Dt)
	}
	if c.BlobRadius <= 0 {
		return fmt.Errorf("dataset: non-positive blob radius %v", c.BlobRadius)
	}
	return nil
}

// #endregion config
