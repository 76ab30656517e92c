// Package config loads and validates YAML experiment configurations: the
// knobs for the networks, the constrained-optimization controller, the
// optimizer, the integrator, and the synthetic dataset.
package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// #region experiment
// Experiment is one training experiment's full configuration surface.
type Experiment struct {
	ExperimentID string `yaml:"experiment_id"`
	Device       string `yaml:"device"`
	Dtype        string `yaml:"dtype"`

	Networks     Networks     `yaml:"networks"`
	Geco         Geco         `yaml:"geco"`
	Optimization Optimization `yaml:"optimization"`
	Integrator   Integrator   `yaml:"integrator"`
	Dataset      Dataset      `yaml:"dataset"`
}

// Networks configures the four function approximators.
type Networks struct {
	Variational    bool  `yaml:"variational"`
	LatentChannels int   `yaml:"latent_channels"`
	StateDim       int   `yaml:"state_dim"`
	HiddenSize     int   `yaml:"hidden_size"`
	Seed           int64 `yaml:"seed"`
}

// Geco configures the constrained-optimization controller.
type Geco struct {
	Tolerance     float64 `yaml:"tol"`
	Alpha         float64 `yaml:"alpha"`
	Kappa         float64 `yaml:"langrange_multiplier_param"`
	MultiplierMin float64 `yaml:"multiplier_min"`
	MultiplierMax float64 `yaml:"multiplier_max"`
}

// Optimization configures the training loop and the gradient estimator.
type Optimization struct {
	Epochs          int     `yaml:"epochs"`
	BatchSize       int     `yaml:"batch_size"`
	BatchesPerEpoch int     `yaml:"batches_per_epoch"`
	TestBatches     int     `yaml:"test_batches"`
	EncoderLR       float64 `yaml:"encoder_lr"`
	TransformerLR   float64 `yaml:"transformer_lr"`
	HnnLR           float64 `yaml:"hnn_lr"`
	DecoderLR       float64 `yaml:"decoder_lr"`
	Perturbation    float64 `yaml:"perturbation"`
	GradSamples     int     `yaml:"grad_samples"`
	MaxGradNorm     float64 `yaml:"max_grad_norm"`
}

// Integrator selects the stepper and its timestep.
type Integrator struct {
	Method string  `yaml:"method"`
	Dt     float64 `yaml:"dt"`
}

// Dataset configures the synthetic environment.
type Dataset struct {
	Environment string  `yaml:"environment"`
	SeqLen      int     `yaml:"rollout_steps"`
	Channels    int     `yaml:"channels"`
	ImgSize     int     `yaml:"img_size"`
	Dt          float64 `yaml:"dt"`
	BlobRadius  float64 `yaml:"blob_radius"`
	Seed        int64   `yaml:"seed"`
}

// #endregion experiment

// #region defaults
// Default returns a complete experiment configuration for the synthetic
// pendulum environment.
func Default() Experiment {
	return Experiment{
		ExperimentID: "pendulum-default",
		Device:       "cpu",
		Dtype:        "float32",
		Networks: Networks{
			Variational:    true,
			LatentChannels: 2,
			StateDim:       16,
			HiddenSize:     64,
			Seed:           1,
		},
		Geco: Geco{
			Tolerance:     0.01,
			Alpha:         0.99,
			Kappa:         0.1,
			MultiplierMin: 1e-10,
			MultiplierMax: 1e10,
		},
		Optimization: Optimization{
			Epochs:          1,
			BatchSize:       4,
			BatchesPerEpoch: 16,
			TestBatches:     4,
			EncoderLR:       1e-3,
			TransformerLR:   1e-3,
			HnnLR:           1e-3,
			DecoderLR:       1e-3,
			Perturbation:    1e-3,
			GradSamples:     2,
			MaxGradNorm:     10,
		},
		Integrator: Integrator{
			Method: "leapfrog",
			Dt:     0.1,
		},
		Dataset: Dataset{
			Environment: "pendulum",
			SeqLen:      8,
			Channels:    3,
			ImgSize:     32,
			Dt:          0.1,
			BlobRadius:  2.5,
			Seed:        1,
		},
	}
}

// #endregion defaults

// #region load
// Load reads a YAML experiment file over the defaults and validates it.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	exp := Default()
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Validate fails fast on configurations the run could not survive. The
// constraint tolerance in particular is checked here, once, never per
// batch.
func (e *Experiment) Validate() error {
	if e.ExperimentID == "" {
		return fmt.Errorf("config: experiment_id is required")
	}
	if e.Networks.Variational && e.Geco.Tolerance <= 0 {
		return fmt.Errorf("config: geco.tol must be positive, got %v", e.Geco.Tolerance)
	}
	if e.Networks.Variational && (e.Geco.Alpha <= 0 || e.Geco.Alpha >= 1) {
		return fmt.Errorf("config: geco.alpha must be in (0, 1), got %v", e.Geco.Alpha)
	}
	if e.Optimization.Epochs <= 0 || e.Optimization.BatchSize <= 0 || e.Optimization.BatchesPerEpoch <= 0 {
		return fmt.Errorf("config: optimization needs positive epochs, batch_size, batches_per_epoch")
	}
	switch e.Integrator.Method {
	case "leapfrog", "euler":
	default:
		return fmt.Errorf("config: unknown integrator method %q", e.Integrator.Method)
	}
	if e.Integrator.Dt <= 0 {
		return fmt.Errorf("config: integrator.dt must be positive, got %v", e.Integrator.Dt)
	}
	if e.Dataset.SeqLen <= 0 || e.Dataset.ImgSize <= 0 || e.Dataset.Channels <= 0 {
		return fmt.Errorf("config: dataset needs positive rollout_steps, img_size, channels")
	}
	return nil
}

// #endregion load

// #region compute-target
// ResolveDevice maps a requested compute-target identifier to one this
// build supports. Unknown targets degrade to the CPU with a warning;
// training continues.
func ResolveDevice(id string) string {
	if id == "" || id == "cpu" {
		return "cpu"
	}
	log.Printf("config: compute target %q is not available, falling back to cpu", id)
	return "cpu"
}

// ResolvePrecision maps a requested numeric precision identifier to one
// this build supports.
func ResolvePrecision(id string) string {
	if id == "" || id == "float32" {
		return "float32"
	}
	log.Printf("config: precision %q is not available, falling back to float32", id)
	return "float32"
}

// #endregion compute-target
