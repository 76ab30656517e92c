// Package nets provides reference implementations of the four function
// approximator ports: a variational encoder, a latent-to-phase-space
// transformer, a Hamiltonian energy net, and a frame decoder. They are
// small fully-connected nets with deterministic seeded initialization;
// anything satisfying the rollout port interfaces can replace them.
package nets

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region activation
// Activation selects a layer's non-linearity.
type Activation int

const (
	ActIdentity Activation = iota
	ActTanh
	ActSigmoid
)

func applyActivation(a Activation, x float32) float32 {
	switch a {
	case ActTanh:
		return float32(math.Tanh(float64(x)))
	case ActSigmoid:
		return float32(1 / (1 + math.Exp(-float64(x))))
	default:
		return x
	}
}

// activationGrad is d(act)/d(pre) expressed via the activated output y.
func activationGrad(a Activation, y float32) float32 {
	switch a {
	case ActTanh:
		return 1 - y*y
	case ActSigmoid:
		return y * (1 - y)
	default:
		return 1
	}
}

// #endregion activation

// #region linear
// Linear is one dense layer: y = xWᵀ + b, with W shaped (out, in).
type Linear struct {
	W *tensor.Tensor
	B *tensor.Tensor
}

func newLinear(rng *rand.Rand, in, out int) *Linear {
	scale := float32(1 / math.Sqrt(float64(in)))
	return &Linear{
		W: tensor.Randn(rng, scale, out, in),
		B: tensor.New(out),
	}
}

func (l *Linear) forward(x *tensor.Tensor) *tensor.Tensor {
	batch := x.Shape[0]
	in := x.Shape[1]
	out := l.W.Shape[0]
	if in != l.W.Shape[1] {
		panic(fmt.Sprintf("nets: linear expects %d inputs, got %d", l.W.Shape[1], in))
	}
	y := tensor.New(batch, out)
	for b := 0; b < batch; b++ {
		xRow := x.Data[b*in : (b+1)*in]
		for o := 0; o < out; o++ {
			wRow := l.W.Data[o*in : (o+1)*in]
			sum := l.B.Data[o]
			for i, xv := range xRow {
				sum += wRow[i] * xv
			}
			y.Data[b*out+o] = sum
		}
	}
	return y
}

// backwardInput propagates an output gradient through the layer to its
// input: dx = dy · W.
func (l *Linear) backwardInput(dy *tensor.Tensor) *tensor.Tensor {
	batch := dy.Shape[0]
	out := l.W.Shape[0]
	in := l.W.Shape[1]
	dx := tensor.New(batch, in)
	for b := 0; b < batch; b++ {
		dyRow := dy.Data[b*out : (b+1)*out]
		dxRow := dx.Data[b*in : (b+1)*in]
		for o := 0; o < out; o++ {
			g := dyRow[o]
			if g == 0 {
				continue
			}
			wRow := l.W.Data[o*in : (o+1)*in]
			for i := range dxRow {
				dxRow[i] += g * wRow[i]
			}
		}
	}
	return dx
}

// #endregion linear

// #region mlp
// MLP chains dense layers with one hidden activation and an output
// activation.
type MLP struct {
	layers    []*Linear
	hiddenAct Activation
	outAct    Activation
}

// NewMLP builds an MLP over the given layer widths (len(dims) >= 2).
func NewMLP(rng *rand.Rand, dims []int, hiddenAct, outAct Activation) *MLP {
	if len(dims) < 2 {
		panic(fmt.Sprintf("nets: mlp needs at least input and output dims, got %v", dims))
	}
	m := &MLP{hiddenAct: hiddenAct, outAct: outAct}
	for i := 0; i+1 < len(dims); i++ {
		m.layers = append(m.layers, newLinear(rng, dims[i], dims[i+1]))
	}
	return m
}

// Forward maps (batch, in) to (batch, out).
func (m *MLP) Forward(x *tensor.Tensor) *tensor.Tensor {
	y, _ := m.forwardCached(x)
	return y
}

// forwardCached returns the output and each layer's activated output,
// which the input-gradient pass needs.
func (m *MLP) forwardCached(x *tensor.Tensor) (*tensor.Tensor, []*tensor.Tensor) {
	outs := make([]*tensor.Tensor, len(m.layers))
	cur := x
	for li, l := range m.layers {
		cur = l.forward(cur)
		act := m.hiddenAct
		if li == len(m.layers)-1 {
			act = m.outAct
		}
		if act != ActIdentity {
			for i, v := range cur.Data {
				cur.Data[i] = applyActivation(act, v)
			}
		}
		outs[li] = cur
	}
	return cur, outs
}

// InputGradient computes d(sum(outGrad ⊙ output))/d(input) analytically.
func (m *MLP) InputGradient(x, outGrad *tensor.Tensor) *tensor.Tensor {
	_, outs := m.forwardCached(x)
	grad := outGrad.Clone()
	for li := len(m.layers) - 1; li >= 0; li-- {
		act := m.hiddenAct
		if li == len(m.layers)-1 {
			act = m.outAct
		}
		if act != ActIdentity {
			y := outs[li]
			for i := range grad.Data {
				grad.Data[i] *= activationGrad(act, y.Data[i])
			}
		}
		grad = m.layers[li].backwardInput(grad)
	}
	return grad
}

// Parameters returns the weight and bias tensors in a stable order.
func (m *MLP) Parameters() []*tensor.Tensor {
	var params []*tensor.Tensor
	for _, l := range m.layers {
		params = append(params, l.W, l.B)
	}
	return params
}

// #endregion mlp
