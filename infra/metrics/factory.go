package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/forecast/core/factory"
	coremetrics "github.com/kilianp07/forecast/core/metrics"
)

// init registers the infrastructure metrics sinks.
func init() {
	coremetrics.MustRegisterMetricsSink("prometheus", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c struct {
			Port string `json:"prometheus_port"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		// Port is used by the HTTP server only; PromSink itself doesn't use it.
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	coremetrics.MustRegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
