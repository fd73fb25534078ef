// Package timeseries provides a regular, time-indexed series type used by
// every forecasting model. A series may hold several components
// (multivariate) and several samples per value (stochastic). Deterministic
// series have exactly one sample.
//
// Values are addressed as [time][component][sample]. Series are immutable:
// every operation returns a new series.
package timeseries
