package forecasting

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/forecast/core/lags"
	"github.com/kilianp07/forecast/core/timeseries"
)

// Regressor is a single-output regression estimator.
type Regressor interface {
	Fit(ctx context.Context, x *mat.Dense, y []float64) error
	Predict(x []float64) (float64, error)
}

// SampledRegressor can draw from its predictive distribution.
type SampledRegressor interface {
	Regressor
	PredictSample(x []float64, rng *rand.Rand) (float64, error)
}

// RegressorFactory returns a fresh estimator for one target component.
type RegressorFactory func(component int) (Regressor, error)

// RegressionModel forecasts with lagged target and covariate values as
// features. One regressor is fitted per target component.
type RegressionModel struct {
	lags          lags.Set
	newRegressor  RegressorFactory
	probabilistic bool

	mu         sync.Mutex
	rng        *rand.Rand
	regressors []Regressor
	train      *timeseries.TimeSeries
	past       *timeseries.TimeSeries
	future     *timeseries.TimeSeries
}

// NewRegressionModel builds a model over the given lags and estimator
// factory. The model is probabilistic when the estimator implements
// SampledRegressor.
func NewRegressionModel(set lags.Set, newRegressor RegressorFactory, seed *uint64) (*RegressionModel, error) {
	sample, err := newRegressor(0)
	if err != nil {
		return nil, err
	}
	_, sampled := sample.(SampledRegressor)
	return &RegressionModel{
		lags:          set,
		newRegressor:  newRegressor,
		probabilistic: sampled,
		rng:           newRand(seed),
	}, nil
}

// Lags returns the resolved lags.
func (m *RegressionModel) Lags() lags.Set { return m.lags }

func (m *RegressionModel) Probabilistic() bool { return m.probabilistic }
func (m *RegressionModel) Multivariate() bool  { return true }
func (m *RegressionModel) String() string      { return "RegressionModel" }

// Regressors returns the fitted per-component estimators.
func (m *RegressionModel) Regressors() []Regressor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Regressor(nil), m.regressors...)
}

// Fit builds the lag table and fits one regressor per target component.
func (m *RegressionModel) Fit(ctx context.Context, series *timeseries.TimeSeries, opts ...Option) error {
	if series == nil {
		return fmt.Errorf("%w: nil series", ErrNotEnoughData)
	}
	if series.IsStochastic() {
		return ErrStochasticInput
	}
	o := ApplyOptions(opts...)
	table, err := lags.BuildTraining(m.lags, series, o.PastCovariates, o.FutureCovariates)
	if err != nil {
		return fmt.Errorf("build training table: %w", err)
	}
	regs := make([]Regressor, series.Width())
	g, gctx := errgroup.WithContext(ctx)
	for c := range regs {
		r, err := m.newRegressor(c)
		if err != nil {
			return err
		}
		regs[c] = r
		y := mat.Col(nil, c, table.Y)
		g.Go(func() error {
			if err := r.Fit(gctx, table.X, y); err != nil {
				return fmt.Errorf("fit component %d: %w", c, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.regressors = regs
	m.train = series
	m.past = o.PastCovariates
	m.future = o.FutureCovariates
	return nil
}

// Predict forecasts n steps autoregressively. Covariates given here replace
// those given to Fit.
func (m *RegressionModel) Predict(ctx context.Context, n int, opts ...Option) (*timeseries.TimeSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := ApplyOptions(opts...)
	if err := checkPredict(m.regressors != nil, m.probabilistic, n, o); err != nil {
		return nil, err
	}
	past, future := o.PastCovariates, o.FutureCovariates
	if past == nil {
		past = m.past
	}
	if future == nil {
		future = m.future
	}
	if err := m.lags.CheckCovariates(m.train, past, future); err != nil {
		return nil, err
	}
	base, err := lags.FromSeries(m.train)
	if err != nil {
		return nil, err
	}
	ph, err := lags.FromSeries(past)
	if err != nil {
		return nil, err
	}
	fh, err := lags.FromSeries(future)
	if err != nil {
		return nil, err
	}

	width := m.train.Width()
	row := make([]float64, m.lags.NumFeatures(width, ph.Width(), fh.Width()))
	paths := make([][][]float64, o.NumSamples)
	for s := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := base.Clone()
		paths[s] = make([][]float64, n)
		for k := 0; k < n; k++ {
			t := h.End().Add(h.Freq)
			if err := m.lags.Row(row, t, h, ph, fh); err != nil {
				return nil, fmt.Errorf("step %d: %w", k+1, err)
			}
			step := make([]float64, width)
			for c, r := range m.regressors {
				v, err := m.predictOne(r, row, o.NumSamples > 1)
				if err != nil {
					return nil, fmt.Errorf("step %d component %d: %w", k+1, c, err)
				}
				step[c] = v
			}
			h.Values = append(h.Values, step)
			paths[s][k] = step
		}
	}
	return forecastSeries(m.train, paths)
}

func (m *RegressionModel) predictOne(r Regressor, row []float64, sample bool) (float64, error) {
	if sample {
		return r.(SampledRegressor).PredictSample(row, m.rng)
	}
	return r.Predict(row)
}
