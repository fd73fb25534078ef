package config

import "fmt"

// SentryConfig enables error reporting for failed forecasts, evaluation
// runs and forecast publishes. An empty DSN disables reporting.
type SentryConfig struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
	Release     string `json:"release"`
	// SampleRate is the share of errors sent; 0 with a DSN means all.
	SampleRate       float64 `json:"sample_rate"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	// Tags are attached to every report, e.g. the site or the data feed
	// the forecaster runs for.
	Tags map[string]string `json:"tags"`
}

// SetDefaults reports every error once a DSN is set.
func (c *SentryConfig) SetDefaults() {
	if c.DSN != "" && c.SampleRate == 0 {
		c.SampleRate = 1
	}
}

// Validate checks the sample rates.
func (c SentryConfig) Validate() error {
	for name, r := range map[string]float64{"sample_rate": c.SampleRate, "traces_sample_rate": c.TracesSampleRate} {
		if r < 0 || r > 1 {
			return fmt.Errorf("%s must be in [0, 1], got %v", name, r)
		}
	}
	return nil
}
