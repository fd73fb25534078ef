// Package infra contains the technical adapters of the forecasting
// toolkit: CSV data sources, report stores, MQTT publishing and metrics
// exporters. They implement interfaces declared in the core packages.
package infra
