package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region store
// On-disk layout: magic, then the rollout set as one tensor shaped
// (n, seqLen, channels, height, width).

const storeMagic = "HGND"

// SaveRollouts writes a rollout set to path.
func SaveRollouts(path string, rollouts *tensor.Tensor) error {
	if len(rollouts.Shape) != 5 {
		return fmt.Errorf("dataset: rollout set must be 5-D, got shape %v", rollouts.Shape)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(storeMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := rollouts.Encode(w); err != nil {
		return fmt.Errorf("write rollouts: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	return f.Sync()
}

// LoadRollouts reads a rollout set from path.
func LoadRollouts(path string) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head := make([]byte, len(storeMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(head) != storeMagic {
		return nil, fmt.Errorf("not a dataset file (magic %q)", head)
	}
	rollouts, err := tensor.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("read rollouts: %w", err)
	}
	if len(rollouts.Shape) != 5 {
		return nil, fmt.Errorf("dataset: stored rollouts are %d-D, want 5-D", len(rollouts.Shape))
	}
	return rollouts, nil
}

// #endregion store
