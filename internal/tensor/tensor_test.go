package tensor

import (
	"bytes"
	"math"
	"math/rand"
	"testing"
)

func TestShapeAndAccessors(t *testing.T) {
	a := New(2, 3, 4)
	if a.Len() != 24 {
		t.Fatalf("len = %d, want 24", a.Len())
	}
	if a.Dim(1) != 3 {
		t.Fatalf("dim(1) = %d, want 3", a.Dim(1))
	}

	b := a.Clone()
	b.Data[0] = 1
	if a.Data[0] != 0 {
		t.Fatal("clone shares data with the original")
	}

	v := a.Reshape(6, 4)
	v.Data[0] = 7
	if a.Data[0] != 7 {
		t.Fatal("reshape should view the same data")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on element-count mismatch")
		}
	}()
	a.Reshape(5, 5)
}

func TestElementwise(t *testing.T) {
	a := FromSlice([]float32{1, 2, 3}, 1, 3)
	b := FromSlice([]float32{10, 20, 30}, 1, 3)

	sum := Add(a, b)
	if sum.Data[2] != 33 {
		t.Fatalf("add = %v", sum.Data)
	}
	diff := Sub(b, a)
	if diff.Data[0] != 9 {
		t.Fatalf("sub = %v", diff.Data)
	}

	c := a.Clone()
	c.AddScaled(b, 0.5)
	if c.Data[1] != 12 {
		t.Fatalf("addScaled = %v", c.Data)
	}

	if m := a.Mean(); m != 2 {
		t.Fatalf("mean = %v, want 2", m)
	}
	if n := FromSlice([]float32{3, 4}, 2).Norm(); math.Abs(n-5) > 1e-9 {
		t.Fatalf("norm = %v, want 5", n)
	}
}

func TestMSE(t *testing.T) {
	a := FromSlice([]float32{0, 0, 0, 0}, 2, 2)
	b := FromSlice([]float32{1, 1, 1, 1}, 2, 2)
	if got := MSE(a, b); got != 1 {
		t.Fatalf("mse = %v, want 1", got)
	}
	if got := MSE(a, a); got != 0 {
		t.Fatalf("mse = %v, want 0", got)
	}
}

func TestAllFinite(t *testing.T) {
	a := FromSlice([]float32{1, 2}, 2)
	if !a.AllFinite() {
		t.Fatal("finite tensor reported non-finite")
	}
	a.Data[1] = float32(math.NaN())
	if a.AllFinite() {
		t.Fatal("NaN not detected")
	}
	a.Data[1] = float32(math.Inf(1))
	if a.AllFinite() {
		t.Fatal("Inf not detected")
	}
}

func TestConcatAndSplitCols(t *testing.T) {
	a := FromSlice([]float32{1, 2, 5, 6}, 2, 2)
	b := FromSlice([]float32{3, 9}, 2, 1)

	cat := ConcatCols(a, b)
	want := []float32{1, 2, 3, 5, 6, 9}
	for i, v := range want {
		if cat.Data[i] != v {
			t.Fatalf("concat = %v, want %v", cat.Data, want)
		}
	}

	left, right := SplitCols(cat, 2)
	if !left.SameShape(a) || !right.SameShape(b) {
		t.Fatalf("split shapes %v, %v", left.Shape, right.Shape)
	}
	for i := range a.Data {
		if left.Data[i] != a.Data[i] {
			t.Fatalf("left = %v, want %v", left.Data, a.Data)
		}
	}
	for i := range b.Data {
		if right.Data[i] != b.Data[i] {
			t.Fatalf("right = %v, want %v", right.Data, b.Data)
		}
	}
}

func TestRandnDeterministic(t *testing.T) {
	a := Randn(rand.New(rand.NewSource(3)), 0.1, 2, 2)
	b := Randn(rand.New(rand.NewSource(3)), 0.1, 2, 2)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatal("same seed produced different draws")
		}
	}
}

func TestCodecRoundTrip(t *testing.T) {
	orig := Randn(rand.New(rand.NewSource(1)), 1, 3, 4, 5)

	var buf bytes.Buffer
	if err := orig.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !got.SameShape(orig) {
		t.Fatalf("shape %v, want %v", got.Shape, orig.Shape)
	}
	for i := range orig.Data {
		if got.Data[i] != orig.Data[i] {
			t.Fatalf("data mismatch at %d", i)
		}
	}
}

func TestDecodeRejectsBadHeaders(t *testing.T) {
	// Rank beyond the supported maximum.
	var buf bytes.Buffer
	buf.Write([]byte{9, 0, 0, 0})
	if _, err := Decode(&buf); err == nil {
		t.Fatal("expected error for oversized rank")
	}

	// Truncated payload.
	buf.Reset()
	orig := New(2, 2)
	if err := orig.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-3])
	if _, err := Decode(truncated); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestDecodeRejectsOversizedShape(t *testing.T) {
	// A header declaring a huge tensor must be rejected from the dims
	// alone, before any payload-sized allocation.
	var buf bytes.Buffer
	buf.Write([]byte{2, 0, 0, 0})             // rank 2
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff}) // dim 0: 2^32 - 1
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff}) // dim 1: 2^32 - 1

	if _, err := Decode(&buf); err == nil {
		t.Fatal("expected error for oversized shape")
	}
}
