package tensor

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// #region codec
// Binary layout per tensor: uint32 rank, rank × uint32 dims, then the
// elements as little-endian float32. Shared by model persistence and the
// on-disk dataset store.

const (
	maxRank = 8
	// maxElems caps a decoded tensor at 256 MiB of float32, so a corrupt
	// header cannot demand an arbitrary allocation.
	maxElems = 1 << 26
)

// Encode writes the tensor to w.
func (t *Tensor) Encode(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.Shape))); err != nil {
		return fmt.Errorf("write rank: %w", err)
	}
	for _, d := range t.Shape {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return fmt.Errorf("write dim: %w", err)
		}
	}
	buf := make([]byte, 4*len(t.Data))
	for i, f := range t.Data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// Decode reads one tensor from r.
func Decode(r io.Reader) (*Tensor, error) {
	var rank uint32
	if err := binary.Read(r, binary.LittleEndian, &rank); err != nil {
		return nil, fmt.Errorf("read rank: %w", err)
	}
	if rank == 0 || rank > maxRank {
		return nil, fmt.Errorf("invalid tensor rank %d", rank)
	}
	shape := make([]int, rank)
	n := 1
	for i := range shape {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return nil, fmt.Errorf("read dim: %w", err)
		}
		if d == 0 {
			return nil, fmt.Errorf("zero dimension at axis %d", i)
		}
		shape[i] = int(d)
		n *= int(d)
		if n > maxElems {
			return nil, fmt.Errorf("tensor shaped %v exceeds the %d-element limit", shape[:i+1], maxElems)
		}
	}
	t := New(shape...)
	buf := make([]byte, 4*len(t.Data))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	for i := range t.Data {
		t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return t, nil
}

// #endregion codec
