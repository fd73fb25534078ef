package metrics

import "github.com/kilianp07/forecast/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort starts a /metrics endpoint when set.
	PrometheusPort string `json:"prometheus_port"`
}
