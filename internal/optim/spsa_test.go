package optim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

func quadraticLoss(params ...*tensor.Tensor) func() float64 {
	return func() float64 {
		var sum float64
		for _, p := range params {
			for _, v := range p.Data {
				sum += float64(v) * float64(v)
			}
		}
		return sum
	}
}

func TestStepDescendsQuadratic(t *testing.T) {
	// A single scalar parameter makes the central difference exact: the
	// estimator recovers the true derivative 2θ regardless of the
	// perturbation sign.
	theta := tensor.FromSlice([]float32{4}, 1)
	groups := []Group{{Name: "test", Params: []*tensor.Tensor{theta}, LR: 0.1}}

	s, err := NewSPSA(Config{Perturbation: 1e-2, Samples: 1, MaxGradNorm: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new spsa: %v", err)
	}

	loss := quadraticLoss(theta)
	start := loss()
	for i := 0; i < 50; i++ {
		s.Step(groups, loss)
	}
	end := loss()

	if end >= start {
		t.Fatalf("loss rose from %v to %v", start, end)
	}
	if end > 1e-6 {
		t.Fatalf("loss = %v after 50 steps, want near zero", end)
	}
}

func TestStepDescendsMultiParameter(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := tensor.Randn(rng, 1, 4)
	b := tensor.Randn(rng, 1, 3, 3)
	groups := []Group{
		{Name: "a", Params: []*tensor.Tensor{a}, LR: 0.02},
		{Name: "b", Params: []*tensor.Tensor{b}, LR: 0.02},
	}

	s, err := NewSPSA(Config{Perturbation: 1e-3, Samples: 4, MaxGradNorm: 10}, rng)
	if err != nil {
		t.Fatalf("new spsa: %v", err)
	}

	loss := quadraticLoss(a, b)
	start := loss()
	for i := 0; i < 300; i++ {
		s.Step(groups, loss)
	}
	end := loss()

	if end >= start/2 {
		t.Fatalf("loss only moved from %v to %v over 300 steps", start, end)
	}
}

func TestStepRestoresParametersOnEvaluation(t *testing.T) {
	theta := tensor.FromSlice([]float32{1, 2, 3}, 3)
	groups := []Group{{Name: "t", Params: []*tensor.Tensor{theta}, LR: 0}}

	s, err := NewSPSA(DefaultConfig(), rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("new spsa: %v", err)
	}

	// Zero learning rate: after the step the parameters must be exactly
	// where they started, perturbations fully undone.
	s.Step(groups, quadraticLoss(theta))
	want := []float32{1, 2, 3}
	for i, v := range want {
		if theta.Data[i] != v {
			t.Fatalf("params = %v, want %v", theta.Data, want)
		}
	}
}

func TestGlobalNormClipping(t *testing.T) {
	// Far from the origin the raw derivative is huge; clipping bounds
	// the applied update to lr * maxNorm.
	theta := tensor.FromSlice([]float32{1000}, 1)
	groups := []Group{{Name: "t", Params: []*tensor.Tensor{theta}, LR: 1}}

	s, err := NewSPSA(Config{Perturbation: 1e-2, Samples: 1, MaxGradNorm: 5}, rand.New(rand.NewSource(4)))
	if err != nil {
		t.Fatalf("new spsa: %v", err)
	}

	s.Step(groups, quadraticLoss(theta))
	if moved := math.Abs(float64(theta.Data[0]) - 1000); moved > 5+1e-6 {
		t.Fatalf("update magnitude %v exceeds clipped bound 5", moved)
	}
}

func TestConfigValidation(t *testing.T) {
	if _, err := NewSPSA(Config{Perturbation: 0, Samples: 1}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected error for zero perturbation")
	}
	if _, err := NewSPSA(Config{Perturbation: 1e-3, Samples: 0}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected error for zero samples")
	}
}
