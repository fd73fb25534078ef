// Package app wires configuration, models, stores and sinks into the
// forecast and evaluate flows driven by the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/forecast/config"
	"github.com/kilianp07/forecast/core/accuracy"
	"github.com/kilianp07/forecast/core/evaluation"
	"github.com/kilianp07/forecast/core/events"
	"github.com/kilianp07/forecast/core/forecasting"
	coremetrics "github.com/kilianp07/forecast/core/metrics"
	coremon "github.com/kilianp07/forecast/core/monitoring"
	"github.com/kilianp07/forecast/core/timeseries"
	"github.com/kilianp07/forecast/infra/datasource"
	"github.com/kilianp07/forecast/infra/logger"
	"github.com/kilianp07/forecast/infra/metrics"
	"github.com/kilianp07/forecast/infra/mqtt"
	"github.com/kilianp07/forecast/infra/store"
	"github.com/kilianp07/forecast/internal/eventbus"
	"github.com/kilianp07/forecast/pkg/export"
)

// Service runs forecasts and evaluations from the configuration.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	sink  coremetrics.MetricsSink
	pub   mqtt.Publisher
	store evaluation.Store
	bus   *eventbus.Bus[events.ForecastEvent]
	load  func(datasource.Config) (*timeseries.TimeSeries, error)
	now   func() time.Time

	cancel  context.CancelFunc
	workers []<-chan struct{}
}

// Option overrides a dependency built from the configuration.
type Option func(*Service)

// WithPublisher replaces the MQTT publisher.
func WithPublisher(p mqtt.Publisher) Option { return func(s *Service) { s.pub = p } }

// WithStore replaces the report store.
func WithStore(st evaluation.Store) Option { return func(s *Service) { s.store = st } }

// WithSink replaces the metrics sink.
func WithSink(sink coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = sink } }

// WithLogger replaces the service logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// WithLoader replaces the data loader.
func WithLoader(f func(datasource.Config) (*timeseries.TimeSeries, error)) Option {
	return func(s *Service) { s.load = f }
}

// New creates a Service from the configuration. Background workers stop
// when ctx is cancelled or Close is called.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	s := &Service{cfg: cfg, load: datasource.Load, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logger.New("service")
	}
	if s.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		s.sink = sink
	}
	if s.store == nil {
		st, err := store.New(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("report store: %w", err)
		}
		s.store = st
	}
	if s.pub == nil && cfg.Forecast.Publish && cfg.MQTT.Broker != "" {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = s.store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.pub = client
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.bus = eventbus.New[events.ForecastEvent]()
	s.workers = append(s.workers, metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("event_collector")))
	if s.pub != nil && cfg.Forecast.Publish {
		s.workers = append(s.workers, mqtt.Forward(ctx, s.bus, s.pub, cfg.Output.Quantiles))
	}
	if port := cfg.Metrics.PrometheusPort; port != "" {
		addr := port
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s, nil
}

// Config returns the configuration of the service.
func (s *Service) Config() *config.Config { return s.cfg }

// ForecastResult is the outcome of Forecast.
type ForecastResult struct {
	RunID    string
	Model    string
	Forecast *timeseries.TimeSeries
	Rows     []export.Row
	// Scores is empty unless observations were held out.
	Scores []events.Score
}

// Forecast loads the configured series, fits the configured model and
// forecasts the configured horizon. When a holdout is configured the last
// observations are kept out of training and the forecast is scored
// against them. The forecast is published on the event bus.
func (s *Service) Forecast(ctx context.Context) (ForecastResult, error) {
	res, err := s.forecast(ctx)
	if err != nil {
		coremon.Capture(err, coremon.Scope{Component: "forecast", Model: s.cfg.Model.Type, RunID: res.RunID})
	}
	return res, err
}

func (s *Service) forecast(ctx context.Context) (ForecastResult, error) {
	cfg := s.cfg
	res := ForecastResult{RunID: uuid.NewString(), Model: cfg.Model.Type}
	if err := cfg.ValidateForecast(); err != nil {
		return res, err
	}
	series, err := s.load(cfg.Data)
	if err != nil {
		return res, fmt.Errorf("load data: %w", err)
	}
	train, held := series, (*timeseries.TimeSeries)(nil)
	if h := cfg.Forecast.Holdout; h > 0 {
		if h >= series.Len() {
			return res, fmt.Errorf("holdout %d leaves no training data in %d observations", h, series.Len())
		}
		train, held = series.Head(series.Len()-h), series.From(series.Len()-h)
	}
	model, err := forecasting.NewModel(cfg.Model)
	if err != nil {
		return res, fmt.Errorf("build model: %w", err)
	}
	s.log.Infof("fitting %s on %d observations", model, train.Len())
	if err := s.fit(ctx, model, train); err != nil {
		return res, fmt.Errorf("fit %s: %w", model, err)
	}
	pred, err := s.predict(ctx, model, cfg.Forecast.Horizon, cfg.Forecast.NumSamples)
	if err != nil {
		return res, fmt.Errorf("predict %s: %w", model, err)
	}
	res.Forecast = pred
	if held != nil {
		if res.Scores, err = s.score(held, pred); err != nil {
			return res, fmt.Errorf("score %s: %w", model, err)
		}
	}
	if res.Rows, err = export.Summarize(pred, cfg.Output.Quantiles); err != nil {
		return res, err
	}
	s.bus.Publish(events.ForecastEvent{
		RunID:    res.RunID,
		Model:    res.Model,
		Dataset:  cfg.Data.Path,
		Forecast: pred,
		Scores:   res.Scores,
		Time:     s.now(),
	})
	return res, nil
}

func (s *Service) fit(ctx context.Context, m forecasting.Model, ts *timeseries.TimeSeries) error {
	start := s.now()
	err := m.Fit(ctx, ts)
	if r, ok := s.sink.(coremetrics.FitRecorder); ok {
		ev := coremetrics.FitEvent{Model: s.cfg.Model.Type, Length: ts.Len(), Width: ts.Width(), Duration: time.Since(start), Time: start}
		if err != nil {
			ev.Err = err.Error()
		}
		if rerr := r.RecordFit(ev); rerr != nil {
			s.log.Warnf("record fit: %v", rerr)
		}
	}
	return err
}

func (s *Service) predict(ctx context.Context, m forecasting.Model, n, samples int) (*timeseries.TimeSeries, error) {
	start := s.now()
	pred, err := m.Predict(ctx, n, forecasting.WithNumSamples(samples))
	if r, ok := s.sink.(coremetrics.PredictRecorder); ok {
		ev := coremetrics.PredictEvent{Model: s.cfg.Model.Type, Horizon: n, NumSamples: samples, Duration: time.Since(start), Time: start}
		if err != nil {
			ev.Err = err.Error()
		}
		if rerr := r.RecordPredict(ev); rerr != nil {
			s.log.Warnf("record predict: %v", rerr)
		}
	}
	return pred, err
}

// score compares the forecast with the held-out observations. Metrics
// that are undefined for the data, such as MAPE on zeros, are skipped.
func (s *Service) score(actual, pred *timeseries.TimeSeries) ([]events.Score, error) {
	point := []struct {
		name string
		fn   func(a, p *timeseries.TimeSeries, opts ...accuracy.Option) (float64, error)
	}{
		{"mae", accuracy.MAE},
		{"rmse", accuracy.RMSE},
		{"smape", accuracy.SMAPE},
		{"mape", accuracy.MAPE},
	}
	var scores []events.Score
	for _, m := range point {
		v, err := m.fn(actual, pred)
		if errors.Is(err, accuracy.ErrZeroActual) {
			s.log.Debugf("skip %s: %v", m.name, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		scores = append(scores, events.Score{Metric: m.name, Quantile: 0.5, Value: v})
	}
	if pred.IsDeterministic() {
		return scores, nil
	}
	for _, rho := range s.cfg.Forecast.Rhos {
		v, err := accuracy.RhoRisk(actual, pred, rho)
		if errors.Is(err, accuracy.ErrZeroActual) {
			s.log.Debugf("skip rho-risk: %v", err)
			break
		}
		if err != nil {
			return nil, err
		}
		scores = append(scores, events.Score{Metric: "rho_risk", Quantile: rho, Value: v})
	}
	return scores, nil
}

// Export writes forecast rows to w in the configured format.
func (s *Service) Export(w io.Writer, rows []export.Row) error {
	if s.cfg.Output.Format == config.FormatCSV {
		return export.WriteCSV(w, rows)
	}
	return export.WriteJSON(w, rows)
}

// Evaluate runs the probabilistic harness over the configured cases on the
// constant datasets and stores the report. Check failures are part of the
// report, not of the returned error.
func (s *Service) Evaluate(ctx context.Context) (evaluation.Report, error) {
	report, err := s.evaluate(ctx)
	if err != nil {
		coremon.Capture(err, coremon.Scope{Component: "evaluation"})
	}
	return report, err
}

func (s *Service) evaluate(ctx context.Context) (evaluation.Report, error) {
	ecfg := s.cfg.Evaluation
	cases, err := evaluation.BuildCases(ecfg.Cases)
	if err != nil {
		return evaluation.Report{}, err
	}
	datasets, err := evaluation.ConstantDatasets(ecfg.Harness.DatasetSeed())
	if err != nil {
		return evaluation.Report{}, err
	}
	h, err := evaluation.NewHarness(ecfg.Harness, logger.New("harness"), s.sink)
	if err != nil {
		return evaluation.Report{}, err
	}
	report, err := h.Run(ctx, cases, datasets)
	if err != nil {
		return report, err
	}
	if err := s.store.Save(ctx, report); err != nil {
		return report, fmt.Errorf("save report: %w", err)
	}
	return report, nil
}

// Reports queries stored evaluation reports.
func (s *Service) Reports(ctx context.Context, q evaluation.Query) ([]evaluation.Report, error) {
	return s.store.Query(ctx, q)
}

// Close stops background workers and releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	for _, done := range s.workers {
		<-done
	}
	s.cancel()
	if s.pub != nil {
		s.pub.Disconnect()
	}
	coremon.Flush(2 * time.Second)
	return s.store.Close()
}
