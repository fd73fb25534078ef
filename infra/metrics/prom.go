package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/forecast/core/metrics"
)

// PromSink records forecasting events in Prometheus metrics.
type PromSink struct {
	scores  *prometheus.GaugeVec
	fits    *prometheus.HistogramVec
	predict *prometheus.HistogramVec
	checks  *prometheus.CounterVec
	errors  *prometheus.CounterVec
}

// NewPromSink registers forecasting metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusPort.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	scores := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "forecast_score",
		Help: "Latest accuracy score per model, dataset, metric and quantile",
	}, []string{"model", "dataset", "metric", "quantile"})
	fits := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_fit_duration_seconds",
		Help:    "Time spent fitting models",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	predict := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forecast_predict_duration_seconds",
		Help:    "Time spent producing forecasts",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_checks_total",
		Help: "Harness checks by outcome",
	}, []string{"case", "check", "passed"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "forecast_errors_total",
		Help: "Failed fits and predictions",
	}, []string{"model", "stage"})

	var err error
	if scores, err = register(reg, scores); err != nil {
		return nil, err
	}
	if fits, err = register(reg, fits); err != nil {
		return nil, err
	}
	if predict, err = register(reg, predict); err != nil {
		return nil, err
	}
	if checks, err = register(reg, checks); err != nil {
		return nil, err
	}
	if errs, err = register(reg, errs); err != nil {
		return nil, err
	}
	return &PromSink{scores: scores, fits: fits, predict: predict, checks: checks, errors: errs}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func formatQuantile(q float64) string { return strconv.FormatFloat(q, 'f', -1, 64) }

// RecordScore sets the score gauge.
func (s *PromSink) RecordScore(ev coremetrics.ScoreEvent) error {
	s.scores.WithLabelValues(ev.Model, ev.Dataset, ev.Metric, formatQuantile(ev.Quantile)).Set(ev.Value)
	return nil
}

// RecordFit observes the fit duration.
func (s *PromSink) RecordFit(ev coremetrics.FitEvent) error {
	s.fits.WithLabelValues(ev.Model).Observe(ev.Duration.Seconds())
	if ev.Err != "" {
		s.errors.WithLabelValues(ev.Model, "fit").Inc()
	}
	return nil
}

// RecordPredict observes the prediction duration.
func (s *PromSink) RecordPredict(ev coremetrics.PredictEvent) error {
	s.predict.WithLabelValues(ev.Model).Observe(ev.Duration.Seconds())
	if ev.Err != "" {
		s.errors.WithLabelValues(ev.Model, "predict").Inc()
	}
	return nil
}

// RecordCheck counts harness outcomes.
func (s *PromSink) RecordCheck(ev coremetrics.CheckEvent) error {
	s.checks.WithLabelValues(ev.Case, ev.Check, strconv.FormatBool(ev.Passed)).Inc()
	return nil
}
