package metrics

import "time"

// ScoreEvent is one accuracy metric computed for a forecast.
type ScoreEvent struct {
	RunID   string
	Model   string
	Dataset string
	Metric  string
	// Quantile is the forecast quantile or rho the metric was computed at;
	// 0.5 for point metrics on the median.
	Quantile float64
	Value    float64
	Time     time.Time
}

// MetricsSink records accuracy scores for observability purposes.
type MetricsSink interface {
	RecordScore(ev ScoreEvent) error
}

// FitEvent captures a model fit.
type FitEvent struct {
	Model    string
	Length   int
	Width    int
	Duration time.Duration
	Err      string
	Time     time.Time
}

// FitRecorder records model fits.
type FitRecorder interface {
	RecordFit(ev FitEvent) error
}

// PredictEvent captures a model prediction.
type PredictEvent struct {
	Model      string
	Horizon    int
	NumSamples int
	Duration   time.Duration
	Err        string
	Time       time.Time
}

// PredictRecorder records predictions.
type PredictRecorder interface {
	RecordPredict(ev PredictEvent) error
}

// CheckEvent is the outcome of one harness check.
type CheckEvent struct {
	RunID    string
	Case     string
	Dataset  string
	Check    string
	Passed   bool
	Duration time.Duration
	Time     time.Time
}

// CheckRecorder records harness check outcomes.
type CheckRecorder interface {
	RecordCheck(ev CheckEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScore(ScoreEvent) error     { return nil }
func (NopSink) RecordFit(FitEvent) error         { return nil }
func (NopSink) RecordPredict(PredictEvent) error { return nil }
func (NopSink) RecordCheck(CheckEvent) error     { return nil }
