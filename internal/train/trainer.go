// Package train runs a full training pass: synthetic batches through the
// rollout engine, the constrained-optimization controller, and the
// gradient estimator, with every batch logged to the run store and the
// model persisted each epoch.
package train

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/config"
	"github.com/phaseforge/hgn/go-trainer/internal/dataset"
	"github.com/phaseforge/hgn/go-trainer/internal/eval"
	"github.com/phaseforge/hgn/go-trainer/internal/geco"
	"github.com/phaseforge/hgn/go-trainer/internal/integrator"
	"github.com/phaseforge/hgn/go-trainer/internal/nets"
	"github.com/phaseforge/hgn/go-trainer/internal/optim"
	"github.com/phaseforge/hgn/go-trainer/internal/persist"
	"github.com/phaseforge/hgn/go-trainer/internal/rollout"
	"github.com/phaseforge/hgn/go-trainer/internal/runlog"
	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region construction
// Trainer owns one training run, including the controller's cross-batch
// state. That state is reset at run start and never persisted; the run
// store keeps a per-batch record of it instead.
type Trainer struct {
	config *config.Experiment
	device string

	model      *nets.Model
	engine     *rollout.Engine
	controller *geco.Controller
	spsa       *optim.SPSA
	groups     []optim.Group
	generator  *dataset.Generator
	health     *eval.Harness
	store      *runlog.Store // optional

	ctrlState geco.State
	noiseRng  *rand.Rand
}

// BuildModel constructs the four function approximators for an
// experiment.
func BuildModel(exp *config.Experiment) (*nets.Model, error) {
	return nets.NewModel(nets.Config{
		SeqLen:         exp.Dataset.SeqLen,
		Channels:       exp.Dataset.Channels,
		Height:         exp.Dataset.ImgSize,
		Width:          exp.Dataset.ImgSize,
		LatentChannels: exp.Networks.LatentChannels,
		StateDim:       exp.Networks.StateDim,
		HiddenSize:     exp.Networks.HiddenSize,
		Seed:           exp.Networks.Seed,
	})
}

// BuildEngine wires a model into a rollout engine per the experiment's
// integrator settings.
func BuildEngine(exp *config.Experiment, model *nets.Model, rng *rand.Rand) *rollout.Engine {
	var integ rollout.Integrator
	switch exp.Integrator.Method {
	case "euler":
		integ = integrator.NewEuler(float32(exp.Integrator.Dt))
	default:
		integ = integrator.NewLeapfrog(float32(exp.Integrator.Dt))
	}
	return rollout.NewEngine(
		model.Encoder, model.Transformer, model.Hamiltonian, model.Decoder, integ,
		exp.Dataset.SeqLen, exp.Dataset.Channels, rng,
	)
}

// New builds a trainer for the experiment. store may be nil to train
// without a run database.
func New(exp *config.Experiment, store *runlog.Store) (*Trainer, error) {
	model, err := BuildModel(exp)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}

	controller, err := geco.NewController(geco.Config{
		Variational:   exp.Networks.Variational,
		Tolerance:     exp.Geco.Tolerance,
		Alpha:         exp.Geco.Alpha,
		Kappa:         exp.Geco.Kappa,
		MultiplierMin: exp.Geco.MultiplierMin,
		MultiplierMax: exp.Geco.MultiplierMax,
	})
	if err != nil {
		return nil, fmt.Errorf("build controller: %w", err)
	}

	spsa, err := optim.NewSPSA(optim.Config{
		Perturbation: exp.Optimization.Perturbation,
		Samples:      exp.Optimization.GradSamples,
		MaxGradNorm:  exp.Optimization.MaxGradNorm,
	}, rand.New(rand.NewSource(exp.Networks.Seed+1)))
	if err != nil {
		return nil, fmt.Errorf("build optimizer: %w", err)
	}

	generator, err := dataset.NewGenerator(dataset.Config{
		Environment: exp.Dataset.Environment,
		SeqLen:      exp.Dataset.SeqLen,
		Channels:    exp.Dataset.Channels,
		Height:      exp.Dataset.ImgSize,
		Width:       exp.Dataset.ImgSize,
		Dt:          exp.Dataset.Dt,
		BlobRadius:  exp.Dataset.BlobRadius,
		Seed:        exp.Dataset.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("build dataset: %w", err)
	}

	groups := modelGroups(model, exp)

	return &Trainer{
		config:     exp,
		device:     config.ResolveDevice(exp.Device),
		model:      model,
		engine:     BuildEngine(exp, model, rand.New(rand.NewSource(exp.Networks.Seed+2))),
		controller: controller,
		spsa:       spsa,
		groups:     groups,
		generator:  generator,
		health:     eval.NewHarness(eval.DefaultConfig()),
		store:      store,
		ctrlState:  geco.InitialState(),
		noiseRng:   rand.New(rand.NewSource(exp.Networks.Seed + 3)),
	}, nil
}

// modelGroups maps the model's parameter sets to optimizer groups with
// their per-module learning rates.
func modelGroups(model *nets.Model, exp *config.Experiment) []optim.Group {
	lrs := map[string]float64{
		"encoder":     exp.Optimization.EncoderLR,
		"transformer": exp.Optimization.TransformerLR,
		"hamiltonian": exp.Optimization.HnnLR,
		"decoder":     exp.Optimization.DecoderLR,
	}
	var groups []optim.Group
	for _, pg := range model.ParameterGroups() {
		groups = append(groups, optim.Group{Name: pg.Name, Params: pg.Params, LR: lrs[pg.Name]})
	}
	return groups
}

// Model returns the model under training.
func (t *Trainer) Model() *nets.Model {
	return t.model
}

// ControllerState returns the controller's current cross-batch state.
func (t *Trainer) ControllerState() geco.State {
	return t.ctrlState
}

// #endregion construction

// #region training-step
// TrainingStep runs one batch: rollout, controller pass, health check,
// and one optimization step. A failed health check skips the batch
// without touching parameters or controller state; the caller sees the
// outcome either way.
func (t *Trainer) TrainingStep(frames *tensor.Tensor) (geco.Outcome, bool) {
	variational := t.config.Networks.Variational

	// One noise seed per batch: every forward pass in this step reuses
	// the same reparameterization draw, so the paired perturbed
	// evaluations differ only through the parameters.
	noiseSeed := t.noiseRng.Int63()
	t.model.Encoder.ReseedNoise(noiseSeed)

	rec := t.engine.Reconstruct(frames, 0, variational)
	out, next := t.controller.Step(rec, t.ctrlState)

	if health := t.health.Run(rec, out.Loss); !health.Passed {
		log.Printf("train: skipping batch: %s", health.Reason)
		return out, false
	}

	// The gradient estimator re-runs the forward pass under perturbed
	// parameters; the controller state stays frozen at its pre-update
	// value for every evaluation.
	st := t.ctrlState
	t.spsa.Step(t.groups, func() float64 {
		t.model.Encoder.ReseedNoise(noiseSeed)
		return t.controller.LossAt(t.engine.Reconstruct(frames, 0, variational), st)
	})

	t.ctrlState = next
	return out, true
}

// #endregion training-step

// #region fit
// Fit trains for the configured number of epochs, saving the model to
// modelDir at each epoch boundary, then computes the held-out test error.
func (t *Trainer) Fit(modelDir string) error {
	opt := t.config.Optimization

	var run runlog.RunRecord
	if t.store != nil {
		cfgJSON, err := json.Marshal(t.config)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		run, err = t.store.BeginRun(t.config.ExperimentID, string(cfgJSON))
		if err != nil {
			return fmt.Errorf("begin run: %w", err)
		}
	}

	for epoch := 0; epoch < opt.Epochs; epoch++ {
		for batch := 0; batch < opt.BatchesPerEpoch; batch++ {
			frames := t.generator.SampleBatch(opt.BatchSize)
			out, stepped := t.TrainingStep(frames)
			if !stepped {
				continue
			}
			if t.store != nil {
				if err := t.store.LogBatch(run.RunID, runlog.BatchEntry{
					Epoch:      epoch,
					Batch:      batch,
					Loss:       out.Loss,
					ReconError: out.ReconError,
					KLD:        out.KLD,
					Constraint: out.Constraint,
					MovingAvg:  out.MovingAvg,
					Multiplier: out.Multiplier,
				}); err != nil {
					return fmt.Errorf("log batch: %w", err)
				}
			}
		}

		if err := persist.Save(modelDir, t.model, t.device, config.ResolvePrecision(t.config.Dtype)); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
		if t.store != nil {
			if _, err := t.store.RecordCheckpoint(run.RunID, epoch, modelDir); err != nil {
				return fmt.Errorf("record checkpoint: %w", err)
			}
		}
		log.Printf("train: epoch %d/%d done, multiplier=%.4g", epoch+1, opt.Epochs, t.ctrlState.Multiplier)
	}

	testError := t.TestError(opt.TestBatches)
	log.Printf("train: test reconstruction error %.6f", testError)
	if t.store != nil {
		if err := t.store.SetTestError(run.RunID, testError); err != nil {
			return fmt.Errorf("set test error: %w", err)
		}
	}
	return nil
}

// TestError averages the reconstruction error over fresh batches, with
// the encoder in mean (non-sampling) mode.
func (t *Trainer) TestError(batches int) float64 {
	if batches <= 0 {
		batches = 1
	}
	var total float64
	for i := 0; i < batches; i++ {
		frames := t.generator.SampleBatch(t.config.Optimization.BatchSize)
		rec := t.engine.Reconstruct(frames, 0, false)
		total += tensor.MSE(rec.Input(), rec.ReconstructedRollout())
	}
	return total / float64(batches)
}

// #endregion fit
