package config

import (
	"fmt"

	"github.com/kilianp07/forecast/core/evaluation"
)

// ForecastConfig controls the predict command.
type ForecastConfig struct {
	Horizon    int `json:"horizon"`
	NumSamples int `json:"num_samples"`
	// Holdout keeps the last observations out of training and scores the
	// forecast against them. Zero forecasts past the end of the data.
	Holdout int `json:"holdout"`
	// Rhos are the rho-risk levels reported when scoring.
	Rhos []float64 `json:"rhos"`
	// Publish sends the forecast to the MQTT broker.
	Publish bool `json:"publish"`
}

// SetDefaults applies sane defaults.
func (c *ForecastConfig) SetDefaults() {
	if c.Horizon == 0 {
		c.Horizon = 24
	}
	if c.NumSamples == 0 {
		c.NumSamples = 1
	}
	if c.Rhos == nil {
		c.Rhos = []float64{0.1, 0.5, 0.9}
	}
}

// Validate checks sizes and rho levels.
func (c ForecastConfig) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("horizon must be >= 1, got %d", c.Horizon)
	}
	if c.NumSamples < 1 {
		return fmt.Errorf("num_samples must be >= 1, got %d", c.NumSamples)
	}
	if c.Holdout < 0 {
		return fmt.Errorf("holdout must be >= 0, got %d", c.Holdout)
	}
	for _, r := range c.Rhos {
		if r <= 0 || r >= 1 {
			return fmt.Errorf("rho %v must be within (0, 1)", r)
		}
	}
	return nil
}

// EvaluationConfig controls the evaluate command.
type EvaluationConfig struct {
	Harness evaluation.Config       `json:"harness"`
	Cases   []evaluation.CaseConfig `json:"cases"`
}

// SetDefaults applies the harness defaults and the default cases.
func (c *EvaluationConfig) SetDefaults() {
	c.Harness.SetDefaults()
	if len(c.Cases) == 0 {
		c.Cases = evaluation.DefaultCaseConfigs()
	}
}

// Validate checks the harness settings.
func (c EvaluationConfig) Validate() error { return c.Harness.Validate() }
