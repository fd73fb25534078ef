package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/forecast/core/accuracy"
	"github.com/kilianp07/forecast/core/forecasting"
	"github.com/kilianp07/forecast/core/logger"
	"github.com/kilianp07/forecast/core/metrics"
	"github.com/kilianp07/forecast/core/timeseries"
)

// ErrCheckFailed wraps every failed property assertion.
var ErrCheckFailed = errors.New("evaluation: check failed")

// Harness runs the probabilistic checks.
type Harness struct {
	cfg  Config
	log  logger.Logger
	sink metrics.MetricsSink
	now  func() time.Time
}

// NewHarness validates cfg after applying defaults. A nil logger or sink
// is replaced by its no-op implementation.
func NewHarness(cfg Config, log logger.Logger, sink metrics.MetricsSink) (*Harness, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Harness{cfg: cfg, log: log, sink: sink, now: time.Now}, nil
}

// Config returns the effective configuration.
func (h *Harness) Config() Config { return h.cfg }

func (h *Harness) fit(ctx context.Context, m forecasting.Model, ts *timeseries.TimeSeries) error {
	start := h.now()
	err := m.Fit(ctx, ts)
	ev := metrics.FitEvent{Model: m.String(), Length: ts.Len(), Width: ts.Width(), Duration: time.Since(start), Time: start}
	if err != nil {
		ev.Err = err.Error()
	}
	if r, ok := h.sink.(metrics.FitRecorder); ok {
		if rerr := r.RecordFit(ev); rerr != nil {
			h.log.Warnf("record fit: %v", rerr)
		}
	}
	return err
}

func (h *Harness) predict(ctx context.Context, m forecasting.Model, n, samples int) (*timeseries.TimeSeries, error) {
	start := h.now()
	pred, err := m.Predict(ctx, n, forecasting.WithNumSamples(samples))
	ev := metrics.PredictEvent{Model: m.String(), Horizon: n, NumSamples: samples, Duration: time.Since(start), Time: start}
	if err != nil {
		ev.Err = err.Error()
	}
	if r, ok := h.sink.(metrics.PredictRecorder); ok {
		if rerr := r.RecordPredict(ev); rerr != nil {
			h.log.Warnf("record predict: %v", rerr)
		}
	}
	return pred, err
}

func (h *Harness) build(ctx context.Context, c Case, train *timeseries.TimeSeries) (forecasting.Model, error) {
	m, err := c.New()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", c.Name, err)
	}
	if err := h.fit(ctx, m, train); err != nil {
		return nil, fmt.Errorf("fit %s: %w", c.Name, err)
	}
	return m, nil
}

// CheckDeterminism fits two models of c on the noisy series and compares
// their first predictions, then checks that a second prediction differs.
func (h *Harness) CheckDeterminism(ctx context.Context, c Case, d Dataset) (Result, error) {
	res := Result{Case: c.Name, Dataset: d.Name, Check: CheckDeterminism}
	n, k := h.cfg.DeterminismHorizon, h.cfg.DeterminismSamples
	m1, err := h.build(ctx, c, d.Noisy)
	if err != nil {
		return res, err
	}
	res.Model = m1.String()
	p1, err := h.predict(ctx, m1, n, k)
	if err != nil {
		return res, err
	}
	m2, err := h.build(ctx, c, d.Noisy)
	if err != nil {
		return res, err
	}
	p2, err := h.predict(ctx, m2, n, k)
	if err != nil {
		return res, err
	}
	if !p1.Equal(p2) {
		return res, fmt.Errorf("%w: models with the same random state disagree", ErrCheckFailed)
	}
	p3, err := h.predict(ctx, m2, n, k)
	if err != nil {
		return res, err
	}
	if p3.Equal(p2) {
		return res, fmt.Errorf("%w: consecutive predictions are identical", ErrCheckFailed)
	}
	res.Passed = true
	return res, nil
}

// forecast fits c on the training split and returns the stochastic forecast
// with the matching truth.
func (h *Harness) forecast(ctx context.Context, c Case, d Dataset, res *Result) (pred, truth *timeseries.TimeSeries, err error) {
	train := d.Noisy.Head(h.cfg.TrainLength)
	truth = d.Truth.From(h.cfg.TrainLength)
	if train == nil || truth == nil {
		return nil, nil, fmt.Errorf("dataset %s: %d steps cannot be split at %d", d.Name, d.Truth.Len(), h.cfg.TrainLength)
	}
	m, err := h.build(ctx, c, train)
	if err != nil {
		return nil, nil, err
	}
	res.Model = m.String()
	pred, err = h.predict(ctx, m, h.cfg.Horizon, h.cfg.NumSamples)
	if err != nil {
		return nil, nil, err
	}
	return pred, truth, nil
}

// CheckAccuracy checks the median MAE against the case tolerance and that
// the MAE of quantile forecasts increases along both ladders.
func (h *Harness) CheckAccuracy(ctx context.Context, c Case, d Dataset) (Result, error) {
	res := Result{Case: c.Name, Dataset: d.Name, Check: CheckAccuracy}
	pred, truth, err := h.forecast(ctx, c, d, &res)
	if err != nil {
		return res, err
	}
	median, err := accuracy.MAE(truth, pred)
	if err != nil {
		return res, err
	}
	res.Scores = append(res.Scores, Score{Metric: "mae", Quantile: 0.5, Value: median})
	if median >= c.MaxError {
		return res, fmt.Errorf("%w: median mae %.4f >= %.4f", ErrCheckFailed, median, c.MaxError)
	}
	for _, ladder := range [][]float64{h.cfg.UpperQuantiles, h.cfg.LowerQuantiles} {
		prev := median
		for _, q := range ladder {
			qs, err := pred.Quantile(q)
			if err != nil {
				return res, err
			}
			v, err := accuracy.MAE(truth, qs)
			if err != nil {
				return res, err
			}
			res.Scores = append(res.Scores, Score{Metric: "mae", Quantile: q, Value: v})
			if v <= prev {
				return res, fmt.Errorf("%w: mae at quantile %v (%.4f) does not exceed %.4f", ErrCheckFailed, q, v, prev)
			}
			prev = v
		}
	}
	res.Passed = true
	return res, nil
}

// CheckRisk checks the rho-risk at 0.5 against the case tolerance and that
// the risk increases along both rho ladders.
func (h *Harness) CheckRisk(ctx context.Context, c Case, d Dataset) (Result, error) {
	res := Result{Case: c.Name, Dataset: d.Name, Check: CheckRisk}
	pred, truth, err := h.forecast(ctx, c, d, &res)
	if err != nil {
		return res, err
	}
	risk := func(rho float64) (float64, error) {
		v, err := accuracy.RhoRisk(truth, pred, rho)
		if err == nil {
			res.Scores = append(res.Scores, Score{Metric: "rho_risk", Quantile: rho, Value: v})
		}
		return v, err
	}
	median, err := risk(0.5)
	if err != nil {
		return res, err
	}
	if median >= c.MaxError {
		return res, fmt.Errorf("%w: rho-risk at 0.5 %.4f >= %.4f", ErrCheckFailed, median, c.MaxError)
	}
	ladders := []struct {
		start float64
		rhos  []float64
	}{
		{h.cfg.UpperRhoStart, h.cfg.UpperRhos},
		{h.cfg.LowerRhoStart, h.cfg.LowerRhos},
	}
	for _, l := range ladders {
		prev, err := risk(l.start)
		if err != nil {
			return res, err
		}
		for _, rho := range l.rhos {
			v, err := risk(rho)
			if err != nil {
				return res, err
			}
			if v <= prev {
				return res, fmt.Errorf("%w: rho-risk at %v (%.4f) does not exceed %.4f", ErrCheckFailed, rho, v, prev)
			}
			prev = v
		}
	}
	res.Passed = true
	return res, nil
}

type checkFunc func(context.Context, Case, Dataset) (Result, error)

type job struct {
	c     Case
	d     Dataset
	check checkFunc
}

// Run executes every check for every case and dataset. Multivariate
// datasets are skipped for models that only fit univariate series. Check
// failures are reported in the results; the returned error is only set
// when ctx is cancelled or a case cannot be built.
func (h *Harness) Run(ctx context.Context, cases []Case, datasets []Dataset) (Report, error) {
	report := Report{RunID: uuid.NewString(), Started: h.now()}
	var jobs []job
	for _, c := range cases {
		m, err := c.New()
		if err != nil {
			return report, fmt.Errorf("build %s: %w", c.Name, err)
		}
		for _, d := range datasets {
			if d.Multivariate() && !m.Multivariate() {
				h.log.Debugf("skip %s on %s: univariate model", c.Name, d.Name)
				continue
			}
			for _, fn := range []checkFunc{h.CheckDeterminism, h.CheckAccuracy, h.CheckRisk} {
				jobs = append(jobs, job{c: c, d: d, check: fn})
			}
		}
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Workers)
	for i, j := range jobs {
		g.Go(func() error {
			start := h.now()
			res, err := j.check(gctx, j.c, j.d)
			res.Duration = time.Since(start)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				res.Passed = false
				res.Error = err.Error()
			}
			results[i] = res
			h.record(report.RunID, res, start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Results = results
	report.Finished = h.now()
	h.log.Infof("evaluation %s: %d checks, %d failed", report.RunID, len(results), len(report.Failed()))
	return report, nil
}

func (h *Harness) record(runID string, res Result, start time.Time) {
	if res.Passed {
		h.log.Debugw("check passed", map[string]any{"case": res.Case, "dataset": res.Dataset, "check": res.Check})
	} else {
		h.log.Warnf("check %s of %s on %s failed: %s", res.Check, res.Case, res.Dataset, res.Error)
	}
	for _, s := range res.Scores {
		ev := metrics.ScoreEvent{RunID: runID, Model: res.Case, Dataset: res.Dataset, Metric: s.Metric, Quantile: s.Quantile, Value: s.Value, Time: start}
		if err := h.sink.RecordScore(ev); err != nil {
			h.log.Warnf("record score: %v", err)
		}
	}
	if r, ok := h.sink.(metrics.CheckRecorder); ok {
		ev := metrics.CheckEvent{RunID: runID, Case: res.Case, Dataset: res.Dataset, Check: res.Check, Passed: res.Passed, Duration: res.Duration, Time: start}
		if err := r.RecordCheck(ev); err != nil {
			h.log.Warnf("record check: %v", err)
		}
	}
}
