package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/phaseforge/hgn/go-trainer/internal/geco"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a controller replay
// fixture: the constants, a recorded per-batch constraint sequence, and
// the expected controller-state trajectory.
type Fixture struct {
	Description string            `json:"description"`
	Config      FixtureConfig     `json:"config"`
	Constraints []float64         `json:"constraints"`
	Expected    []FixtureExpected `json:"expected"`
}

// FixtureConfig mirrors the geco controller constants with JSON tags.
type FixtureConfig struct {
	Tolerance     float64 `json:"tolerance"`
	Alpha         float64 `json:"alpha"`
	Kappa         float64 `json:"kappa"`
	MultiplierMin float64 `json:"multiplier_min"`
	MultiplierMax float64 `json:"multiplier_max"`
}

// FixtureExpected is the expected state after one batch.
type FixtureExpected struct {
	Batch      int     `json:"batch"`
	Multiplier float64 `json:"multiplier"`
	MovingAvg  float64 `json:"moving_avg"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToControllerConfig converts fixture constants to a controller config.
func (fc *FixtureConfig) ToControllerConfig() geco.Config {
	return geco.Config{
		Variational:   true,
		Tolerance:     fc.Tolerance,
		Alpha:         fc.Alpha,
		Kappa:         fc.Kappa,
		MultiplierMin: fc.MultiplierMin,
		MultiplierMax: fc.MultiplierMax,
	}
}

// #endregion fixture-loader
