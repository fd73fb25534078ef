package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kilianp07/forecast/pkg/export"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// OutputConfig controls where forecast summaries are written.
type OutputConfig struct {
	// Path of the summary file; empty writes to stdout.
	Path string `json:"path"`
	// Format is json or csv; inferred from Path when empty.
	Format    string    `json:"format"`
	Quantiles []float64 `json:"quantiles"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Format == "" {
		if strings.EqualFold(filepath.Ext(c.Path), ".csv") {
			c.Format = FormatCSV
		} else {
			c.Format = FormatJSON
		}
	}
	if c.Quantiles == nil {
		c.Quantiles = append([]float64(nil), export.DefaultQuantiles...)
	}
}

// Validate checks the format and quantiles.
func (c OutputConfig) Validate() error {
	if c.Format != FormatJSON && c.Format != FormatCSV {
		return fmt.Errorf("unknown format %s", c.Format)
	}
	for _, q := range c.Quantiles {
		if q < 0 || q > 1 {
			return fmt.Errorf("quantile %v must be within [0, 1]", q)
		}
	}
	return nil
}
