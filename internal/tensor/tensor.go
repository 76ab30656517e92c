package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// #region tensor
// Tensor is a dense float32 array with an explicit shape. Data is stored
// flat in row-major order. Shape mismatches are precondition violations
// and panic rather than returning errors.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zero-filled tensor with the given shape.
func New(shape ...int) *Tensor {
	n := numElems(shape)
	return &Tensor{Shape: append([]int{}, shape...), Data: make([]float32, n)}
}

// FromSlice wraps an existing flat slice with a shape. The slice length
// must match the shape's element count.
func FromSlice(data []float32, shape ...int) *Tensor {
	if len(data) != numElems(shape) {
		panic(fmt.Sprintf("tensor: %d elements do not fit shape %v", len(data), shape))
	}
	return &Tensor{Shape: append([]int{}, shape...), Data: data}
}

// Randn fills a new tensor with samples from N(0, scale²).
func Randn(rng *rand.Rand, scale float32, shape ...int) *Tensor {
	t := New(shape...)
	for i := range t.Data {
		t.Data[i] = float32(rng.NormFloat64()) * scale
	}
	return t
}

// #endregion tensor

// #region accessors
// Len returns the number of elements.
func (t *Tensor) Len() int {
	return len(t.Data)
}

// Dim returns the size of axis i.
func (t *Tensor) Dim(i int) int {
	return t.Shape[i]
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := New(t.Shape...)
	copy(c.Data, t.Data)
	return c
}

// Reshape returns a view of the same data under a new shape with the same
// element count.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	if numElems(shape) != len(t.Data) {
		panic(fmt.Sprintf("tensor: cannot reshape %v to %v", t.Shape, shape))
	}
	return &Tensor{Shape: append([]int{}, shape...), Data: t.Data}
}

// SameShape reports whether two tensors have identical shapes.
func (t *Tensor) SameShape(o *Tensor) bool {
	if len(t.Shape) != len(o.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != o.Shape[i] {
			return false
		}
	}
	return true
}

// MustMatch panics unless both tensors share a shape.
func MustMatch(a, b *Tensor, context string) {
	if !a.SameShape(b) {
		panic(fmt.Sprintf("tensor: shape mismatch in %s: %v vs %v", context, a.Shape, b.Shape))
	}
}

// #endregion accessors

// #region elementwise
// Add returns a + b element-wise.
func Add(a, b *Tensor) *Tensor {
	MustMatch(a, b, "add")
	out := New(a.Shape...)
	for i := range out.Data {
		out.Data[i] = a.Data[i] + b.Data[i]
	}
	return out
}

// Sub returns a - b element-wise.
func Sub(a, b *Tensor) *Tensor {
	MustMatch(a, b, "sub")
	out := New(a.Shape...)
	for i := range out.Data {
		out.Data[i] = a.Data[i] - b.Data[i]
	}
	return out
}

// Scale multiplies every element in place and returns the receiver.
func (t *Tensor) Scale(s float32) *Tensor {
	for i := range t.Data {
		t.Data[i] *= s
	}
	return t
}

// AddScaled adds s*o to the receiver in place.
func (t *Tensor) AddScaled(o *Tensor, s float32) {
	MustMatch(t, o, "addScaled")
	for i := range t.Data {
		t.Data[i] += s * o.Data[i]
	}
}

// Mean returns the arithmetic mean of all elements.
func (t *Tensor) Mean() float64 {
	if len(t.Data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range t.Data {
		sum += float64(v)
	}
	return sum / float64(len(t.Data))
}

// Norm returns the L2 norm of all elements.
func (t *Tensor) Norm() float64 {
	var sum float64
	for _, v := range t.Data {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// AllFinite reports whether every element is a finite number.
func (t *Tensor) AllFinite() bool {
	for _, v := range t.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// MSE computes the mean squared error between two same-shaped tensors,
// accumulated in float64.
func MSE(a, b *Tensor) float64 {
	MustMatch(a, b, "mse")
	var sum float64
	for i := range a.Data {
		d := float64(a.Data[i]) - float64(b.Data[i])
		sum += d * d
	}
	return sum / float64(len(a.Data))
}

// #endregion elementwise

// #region concat
// ConcatCols concatenates two 2-D tensors with the same row count along
// the column axis: (n, a) ++ (n, b) -> (n, a+b).
func ConcatCols(a, b *Tensor) *Tensor {
	if len(a.Shape) != 2 || len(b.Shape) != 2 || a.Shape[0] != b.Shape[0] {
		panic(fmt.Sprintf("tensor: concatCols needs 2-D tensors with equal rows, got %v and %v", a.Shape, b.Shape))
	}
	rows, ca, cb := a.Shape[0], a.Shape[1], b.Shape[1]
	out := New(rows, ca+cb)
	for r := 0; r < rows; r++ {
		copy(out.Data[r*(ca+cb):], a.Data[r*ca:(r+1)*ca])
		copy(out.Data[r*(ca+cb)+ca:], b.Data[r*cb:(r+1)*cb])
	}
	return out
}

// SplitCols splits a 2-D tensor into two, the first taking cols columns.
func SplitCols(t *Tensor, cols int) (*Tensor, *Tensor) {
	if len(t.Shape) != 2 || cols <= 0 || cols >= t.Shape[1] {
		panic(fmt.Sprintf("tensor: splitCols(%d) invalid for shape %v", cols, t.Shape))
	}
	rows, total := t.Shape[0], t.Shape[1]
	a := New(rows, cols)
	b := New(rows, total-cols)
	for r := 0; r < rows; r++ {
		copy(a.Data[r*cols:], t.Data[r*total:r*total+cols])
		copy(b.Data[r*(total-cols):], t.Data[r*total+cols:(r+1)*total])
	}
	return a, b
}

// #endregion concat

// #region helpers
func numElems(shape []int) int {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: non-positive dimension in shape %v", shape))
		}
		n *= d
	}
	return n
}

// #endregion helpers
