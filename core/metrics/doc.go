// Package metrics defines the observability contract of the forecasting
// pipeline. A MetricsSink records accuracy scores; sinks may also implement
// FitRecorder, PredictRecorder and CheckRecorder to receive model timings
// and harness check outcomes. Sinks are built from configuration through
// NewMetricsSink, which combines several sinks into a MultiSink.
package metrics
