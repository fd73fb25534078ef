package evaluation

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("evaluation: invalid configuration")

// DefaultSeed draws the noise of the default datasets.
const DefaultSeed uint64 = 11

// Config controls the harness splits, sample counts and quantile ladders.
type Config struct {
	TrainLength        int `json:"train_length"`
	Horizon            int `json:"horizon"`
	NumSamples         int `json:"num_samples"`
	DeterminismHorizon int `json:"determinism_horizon"`
	DeterminismSamples int `json:"determinism_samples"`
	// Quantile ladders walked away from the median by the accuracy check.
	UpperQuantiles []float64 `json:"upper_quantiles"`
	LowerQuantiles []float64 `json:"lower_quantiles"`
	// Rho ladders of the risk check, each starting at its optimum.
	UpperRhoStart float64   `json:"upper_rho_start"`
	UpperRhos     []float64 `json:"upper_rhos"`
	LowerRhoStart float64   `json:"lower_rho_start"`
	LowerRhos     []float64 `json:"lower_rhos"`
	Workers       int       `json:"workers"`
	// Seed of the dataset noise; nil means DefaultSeed.
	Seed *uint64 `json:"seed"`
}

// DatasetSeed returns the configured noise seed or DefaultSeed.
func (c Config) DatasetSeed() uint64 {
	if c.Seed == nil {
		return DefaultSeed
	}
	return *c.Seed
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TrainLength == 0 {
		c.TrainLength = 100
	}
	if c.Horizon == 0 {
		c.Horizon = 100
	}
	if c.NumSamples == 0 {
		c.NumSamples = 100
	}
	if c.DeterminismHorizon == 0 {
		c.DeterminismHorizon = 10
	}
	if c.DeterminismSamples == 0 {
		c.DeterminismSamples = 2
	}
	if c.UpperQuantiles == nil {
		c.UpperQuantiles = []float64{0.7, 0.8, 0.9, 0.99}
	}
	if c.LowerQuantiles == nil {
		c.LowerQuantiles = []float64{0.3, 0.2, 0.1, 0.01}
	}
	if c.UpperRhoStart == 0 {
		c.UpperRhoStart = 0.75
	}
	if c.UpperRhos == nil {
		c.UpperRhos = []float64{0.8, 0.9, 0.95, 0.99}
	}
	if c.LowerRhoStart == 0 {
		c.LowerRhoStart = 0.25
	}
	if c.LowerRhos == nil {
		c.LowerRhos = []float64{0.2, 0.1, 0.05, 0.01}
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

// Validate checks sizes and that every ladder moves away from the median.
func (c Config) Validate() error {
	switch {
	case c.TrainLength < 1 || c.Horizon < 1 || c.DeterminismHorizon < 1:
		return fmt.Errorf("%w: lengths must be >= 1", ErrInvalidConfig)
	case c.NumSamples < 2 || c.DeterminismSamples < 2:
		return fmt.Errorf("%w: sample counts must be >= 2", ErrInvalidConfig)
	}
	if err := checkLadder("upper_quantiles", 0.5, c.UpperQuantiles, true); err != nil {
		return err
	}
	if err := checkLadder("lower_quantiles", 0.5, c.LowerQuantiles, false); err != nil {
		return err
	}
	if err := checkLadder("upper_rhos", c.UpperRhoStart, c.UpperRhos, true); err != nil {
		return err
	}
	return checkLadder("lower_rhos", c.LowerRhoStart, c.LowerRhos, false)
}

func checkLadder(name string, start float64, ladder []float64, up bool) error {
	if start < 0 || start > 1 {
		return fmt.Errorf("%w: %s start %v outside [0, 1]", ErrInvalidConfig, name, start)
	}
	prev := start
	for _, q := range ladder {
		if q < 0 || q > 1 || (up && q <= prev) || (!up && q >= prev) {
			return fmt.Errorf("%w: %s must move monotonically away from %v, got %v", ErrInvalidConfig, name, start, ladder)
		}
		prev = q
	}
	return nil
}
