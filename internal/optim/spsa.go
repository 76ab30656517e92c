// Package optim provides the external optimizer: a simultaneous
// perturbation (SPSA) gradient estimator over a scalar loss closure,
// applied as SGD with per-module learning rates and global norm clipping.
// The training core only requires that gradients of the scalar loss with
// respect to the learnable parameters can be obtained and applied; this
// implementation needs nothing but forward evaluations.
package optim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region types
// Group is one module's parameter set with its own learning rate.
type Group struct {
	Name   string
	Params []*tensor.Tensor
	LR     float64
}

// Config holds the estimator's constants.
type Config struct {
	// Perturbation is the SPSA step size c.
	Perturbation float64
	// Samples is the number of perturbation pairs averaged per step.
	Samples int
	// MaxGradNorm clips the global gradient norm; <= 0 disables clipping.
	MaxGradNorm float64
}

// DefaultConfig returns the standard estimator constants.
func DefaultConfig() Config {
	return Config{
		Perturbation: 1e-3,
		Samples:      2,
		MaxGradNorm:  10,
	}
}

// Validate rejects unusable estimator constants.
func (c Config) Validate() error {
	if c.Perturbation <= 0 {
		return fmt.Errorf("optim: perturbation must be positive, got %v", c.Perturbation)
	}
	if c.Samples <= 0 {
		return fmt.Errorf("optim: samples must be positive, got %d", c.Samples)
	}
	return nil
}

// #endregion types

// #region spsa
// SPSA estimates the loss gradient by evaluating the closure at pairs of
// Rademacher-perturbed parameter vectors.
type SPSA struct {
	config Config
	rng    *rand.Rand
}

// NewSPSA validates the configuration and builds an estimator.
func NewSPSA(config Config, rng *rand.Rand) (*SPSA, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &SPSA{config: config, rng: rng}, nil
}

// Step estimates the gradient of loss with respect to every parameter in
// groups and applies one SGD update per group at its learning rate. The
// loss closure must re-run the full forward pass against the parameters'
// current values.
func (s *SPSA) Step(groups []Group, loss func() float64) {
	var params []*tensor.Tensor
	var lrs []float64
	for _, g := range groups {
		for _, p := range g.Params {
			params = append(params, p)
			lrs = append(lrs, g.LR)
		}
	}
	if len(params) == 0 {
		return
	}

	c := float32(s.config.Perturbation)
	grads := make([][]float32, len(params))
	deltas := make([][]float32, len(params))
	// Snapshot of the unperturbed parameters. Both evaluations are set
	// from the snapshot and the parameters restored from it afterwards,
	// so float32 rounding cannot leave a residue on them.
	base := make([][]float32, len(params))
	for i, p := range params {
		grads[i] = make([]float32, p.Len())
		deltas[i] = make([]float32, p.Len())
		base[i] = append([]float32(nil), p.Data...)
	}

	for sample := 0; sample < s.config.Samples; sample++ {
		// Rademacher direction, shared by the + and - evaluations.
		for i := range deltas {
			for j := range deltas[i] {
				if s.rng.Intn(2) == 0 {
					deltas[i][j] = 1
				} else {
					deltas[i][j] = -1
				}
			}
		}

		setPerturbed(params, base, deltas, c)
		lossPlus := loss()
		setPerturbed(params, base, deltas, -c)
		lossMinus := loss()
		restore(params, base)

		scale := float32((lossPlus - lossMinus) / (2 * float64(c) * float64(s.config.Samples)))
		for i := range grads {
			for j := range grads[i] {
				grads[i][j] += scale * deltas[i][j]
			}
		}
	}

	clipGlobalNorm(grads, s.config.MaxGradNorm)

	for i, p := range params {
		lr := float32(lrs[i])
		for j := range p.Data {
			p.Data[j] -= lr * grads[i][j]
		}
	}
}

// #endregion spsa

// #region helpers
func setPerturbed(params []*tensor.Tensor, base, deltas [][]float32, c float32) {
	for i, p := range params {
		for j := range p.Data {
			p.Data[j] = base[i][j] + c*deltas[i][j]
		}
	}
}

func restore(params []*tensor.Tensor, base [][]float32) {
	for i, p := range params {
		copy(p.Data, base[i])
	}
}

func clipGlobalNorm(grads [][]float32, maxNorm float64) {
	if maxNorm <= 0 {
		return
	}
	var sum float64
	for _, g := range grads {
		for _, v := range g {
			sum += float64(v) * float64(v)
		}
	}
	norm := math.Sqrt(sum)
	if norm <= maxNorm {
		return
	}
	scale := float32(maxNorm / norm)
	for _, g := range grads {
		for i := range g {
			g[i] *= scale
		}
	}
}

// #endregion helpers
