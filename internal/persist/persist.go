// Package persist saves and loads the four function-approximator
// parameter sets as one atomic unit identified by a directory. The model
// is all-or-nothing: a missing or corrupt file fails the whole load and
// leaves the in-memory model untouched.
package persist

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/phaseforge/hgn/go-trainer/internal/nets"
	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region layout
// The four well-known filenames, one per function approximator.
const (
	EncoderFile     = "encoder.params"
	TransformerFile = "transformer.params"
	HamiltonianFile = "hamiltonian.params"
	DecoderFile     = "decoder.params"
)

var fileForGroup = map[string]string{
	"encoder":     EncoderFile,
	"transformer": TransformerFile,
	"hamiltonian": HamiltonianFile,
	"decoder":     DecoderFile,
}

const (
	magic         = "HGNP"
	formatVersion = 1
)

// #endregion layout

// #region save
// Save writes the model's four parameter sets under dir, creating parent
// directories as needed. device and precision identify the compute target
// and numeric precision the parameters were trained with; they are stored
// as metadata and remapped on load.
func Save(dir string, model *nets.Model, device, precision string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	for _, group := range model.ParameterGroups() {
		path := filepath.Join(dir, fileForGroup[group.Name])
		if err := writeGroup(path, group.Params, device, precision); err != nil {
			return fmt.Errorf("save %s: %w", group.Name, err)
		}
	}
	return nil
}

func writeGroup(path string, params []*tensor.Tensor, device, precision string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(formatVersion)); err != nil {
		return err
	}
	if err := writeString(w, device); err != nil {
		return err
	}
	if err := writeString(w, precision); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(params))); err != nil {
		return err
	}
	for _, p := range params {
		if err := p.Encode(w); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// #endregion save

// #region load
// Load reads the four parameter sets from dir into model, remapping the
// stored compute-target metadata to device. The model's architecture must
// match what was saved; any missing file or shape mismatch fails the load
// before any in-memory parameter is modified.
func Load(dir string, model *nets.Model, device string) error {
	groups := model.ParameterGroups()

	// Stage everything first so a failure cannot leave a partial model.
	staged := make([][]*tensor.Tensor, len(groups))
	for gi, group := range groups {
		path := filepath.Join(dir, fileForGroup[group.Name])
		params, storedDevice, err := readGroup(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", group.Name, err)
		}
		if len(params) != len(group.Params) {
			return fmt.Errorf("load %s: %d tensors stored, model has %d", group.Name, len(params), len(group.Params))
		}
		for pi, p := range params {
			if !p.SameShape(group.Params[pi]) {
				return fmt.Errorf("load %s: tensor %d shaped %v, model expects %v", group.Name, pi, p.Shape, group.Params[pi].Shape)
			}
		}
		if storedDevice != device {
			log.Printf("persist: remapping %s parameters from %q to %q", group.Name, storedDevice, device)
		}
		staged[gi] = params
	}

	for gi, group := range groups {
		for pi, p := range staged[gi] {
			copy(group.Params[pi].Data, p.Data)
		}
	}
	return nil
}

func readGroup(path string) ([]*tensor.Tensor, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, "", fmt.Errorf("read magic: %w", err)
	}
	if string(head) != magic {
		return nil, "", fmt.Errorf("not a parameter file (magic %q)", head)
	}
	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, "", fmt.Errorf("read version: %w", err)
	}
	if version != formatVersion {
		return nil, "", fmt.Errorf("unsupported format version %d", version)
	}
	device, err := readString(r)
	if err != nil {
		return nil, "", fmt.Errorf("read device: %w", err)
	}
	if _, err := readString(r); err != nil { // precision, informational
		return nil, "", fmt.Errorf("read precision: %w", err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, "", fmt.Errorf("read tensor count: %w", err)
	}
	params := make([]*tensor.Tensor, count)
	for i := range params {
		t, err := tensor.Decode(r)
		if err != nil {
			return nil, "", fmt.Errorf("read tensor %d: %w", i, err)
		}
		params[i] = t
	}
	return params, device, nil
}

// #endregion load

// #region string-codec
func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// #endregion string-codec
