package rollout

import (
	"math/rand"
	"testing"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// Counting stub ports. Shapes: images are (b, 1, 2, 2), latents
// (b, 2, 2, 2), phase-space states (b, 4).

type stubEncoder struct {
	calls       int
	sampledWith []bool
}

func (s *stubEncoder) Encode(frames *tensor.Tensor, sample bool) (*tensor.Tensor, *tensor.Tensor, *tensor.Tensor) {
	s.calls++
	s.sampledWith = append(s.sampledWith, sample)
	b := frames.Shape[0]
	z := tensor.New(b, 2, 2, 2)
	mean := tensor.New(b, 2, 2, 2)
	logvar := tensor.New(b, 2, 2, 2)
	return z, mean, logvar
}

func (s *stubEncoder) LatentChannels() int { return 2 }

type stubTransformer struct{ calls int }

func (s *stubTransformer) Transform(z *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor) {
	s.calls++
	b := z.Shape[0]
	return tensor.New(b, 4), tensor.New(b, 4)
}

type stubHamiltonian struct{ energyCalls int }

func (s *stubHamiltonian) Energy(q, p *tensor.Tensor) float64 {
	s.energyCalls++
	return 42.0
}

func (s *stubHamiltonian) Gradients(q, p *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor) {
	return tensor.New(q.Shape...), tensor.New(p.Shape...)
}

type stubIntegrator struct {
	steps  int
	energy float64
}

func (s *stubIntegrator) Step(q, p *tensor.Tensor, hnn Hamiltonian) (*tensor.Tensor, *tensor.Tensor) {
	s.steps++
	s.energy = float64(s.steps) // energy of the transition just taken
	return q.Clone(), p.Clone()
}

func (s *stubIntegrator) Energy() float64 { return s.energy }

type stubDecoder struct{ calls int }

func (s *stubDecoder) Decode(q *tensor.Tensor) *tensor.Tensor {
	s.calls++
	return tensor.New(q.Shape[0], 1, 2, 2)
}

func newStubEngine() (*Engine, *stubEncoder, *stubTransformer, *stubHamiltonian, *stubIntegrator, *stubDecoder) {
	enc := &stubEncoder{}
	tr := &stubTransformer{}
	hnn := &stubHamiltonian{}
	integ := &stubIntegrator{}
	dec := &stubDecoder{}
	eng := NewEngine(enc, tr, hnn, dec, integ, 4, 1, rand.New(rand.NewSource(7)))
	return eng, enc, tr, hnn, integ, dec
}

func TestReconstructInvariants(t *testing.T) {
	eng, enc, tr, hnn, integ, dec := newStubEngine()

	frames := tensor.New(2, 4, 1, 2, 2)
	rec := eng.Reconstruct(frames, 0, true)

	if rec.Batch() != 2 || rec.Steps() != 4 {
		t.Fatalf("record batch=%d steps=%d, want 2, 4", rec.Batch(), rec.Steps())
	}
	if rec.Input() != frames {
		t.Fatal("input frames not recorded")
	}
	if rec.LatentSample() == nil || rec.LatentMean() == nil || rec.LatentLogvar() == nil {
		t.Fatal("latent distribution not recorded")
	}
	if n := len(rec.States()); n != 4 {
		t.Fatalf("got %d states, want 4", n)
	}
	if n := len(rec.Reconstructions()); n != 4 {
		t.Fatalf("got %d reconstructions, want 4", n)
	}
	if n := len(rec.Energies()); n != 4 {
		t.Fatalf("got %d energies, want 4", n)
	}

	if enc.calls != 1 || tr.calls != 1 {
		t.Fatalf("encoder called %d times, transformer %d, want 1 each", enc.calls, tr.calls)
	}
	if !enc.sampledWith[0] {
		t.Fatal("useSampling=true not forwarded to the encoder")
	}
	if integ.steps != 3 {
		t.Fatalf("integrator stepped %d times, want stepCount-1 = 3", integ.steps)
	}
	if dec.calls != 4 {
		t.Fatalf("decoder called %d times, want 4", dec.calls)
	}

	// Energy i is the integrator's report for the transition into state
	// i+1; the last entry is a direct evaluation on the final state.
	want := []float64{1, 2, 3, 42}
	for i, e := range rec.Energies() {
		if e != want[i] {
			t.Fatalf("energies = %v, want %v", rec.Energies(), want)
		}
	}
	if hnn.energyCalls != 1 {
		t.Fatalf("direct energy evaluations = %d, want 1", hnn.energyCalls)
	}
}

func TestReconstructSingleStep(t *testing.T) {
	eng, _, _, _, integ, _ := newStubEngine()

	frames := tensor.New(1, 4, 1, 2, 2)
	rec := eng.Reconstruct(frames, 1, false)

	if integ.steps != 0 {
		t.Fatalf("integrator stepped %d times for a single-step rollout, want 0", integ.steps)
	}
	if len(rec.States()) != 1 || len(rec.Reconstructions()) != 1 {
		t.Fatalf("got %d states, %d reconstructions, want 1 each",
			len(rec.States()), len(rec.Reconstructions()))
	}
	// The lone energy comes from the direct evaluation.
	if len(rec.Energies()) != 1 || rec.Energies()[0] != 42 {
		t.Fatalf("energies = %v, want [42]", rec.Energies())
	}
}

func TestReconstructExplicitStepCount(t *testing.T) {
	eng, _, _, _, integ, _ := newStubEngine()

	frames := tensor.New(1, 4, 1, 2, 2)
	rec := eng.Reconstruct(frames, 7, false)

	if rec.Steps() != 7 {
		t.Fatalf("record steps = %d, want 7", rec.Steps())
	}
	if integ.steps != 6 {
		t.Fatalf("integrator stepped %d times, want 6", integ.steps)
	}
	if len(rec.Energies()) != 7 {
		t.Fatalf("got %d energies, want 7", len(rec.Energies()))
	}
}

func TestReconstructMeanMode(t *testing.T) {
	eng, enc, _, _, _, _ := newStubEngine()

	eng.Reconstruct(tensor.New(1, 4, 1, 2, 2), 0, false)
	if enc.sampledWith[0] {
		t.Fatal("useSampling=false not forwarded to the encoder")
	}
}

func TestGenerate(t *testing.T) {
	eng, enc, _, _, integ, _ := newStubEngine()

	rec := eng.Generate(5, 2, 2)

	if rec.Batch() != 1 {
		t.Fatalf("generative batch = %d, want 1", rec.Batch())
	}
	if rec.Input() != nil {
		t.Fatal("generative rollout should have no input")
	}
	z := rec.LatentSample()
	if z == nil {
		t.Fatal("prior sample not recorded")
	}
	wantShape := []int{1, 2, 2, 2}
	for i, d := range wantShape {
		if z.Shape[i] != d {
			t.Fatalf("prior sample shape %v, want %v", z.Shape, wantShape)
		}
	}
	if rec.LatentMean() != nil || rec.LatentLogvar() != nil {
		t.Fatal("prior draw should carry no distribution stats")
	}
	if enc.calls != 0 {
		t.Fatal("generative mode must not call the encoder")
	}
	if integ.steps != 4 {
		t.Fatalf("integrator stepped %d times, want 4", integ.steps)
	}
	if len(rec.States()) != 5 || len(rec.Reconstructions()) != 5 {
		t.Fatalf("got %d states, %d reconstructions, want 5 each",
			len(rec.States()), len(rec.Reconstructions()))
	}
	if len(rec.Energies()) != 0 {
		t.Fatalf("generative energies = %v, want none", rec.Energies())
	}
}

func TestConcatChannels(t *testing.T) {
	frames := tensor.New(2, 3, 4, 5, 6)
	out := ConcatChannels(frames)
	wantShape := []int{2, 12, 5, 6}
	for i, d := range wantShape {
		if out.Shape[i] != d {
			t.Fatalf("shape %v, want %v", out.Shape, wantShape)
		}
	}
	if &out.Data[0] != &frames.Data[0] {
		t.Fatal("channel concatenation should reshape, not copy")
	}
}
