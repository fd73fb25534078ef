package forecasting

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/forecast/core/timeseries"
)

// Component modes of ExponentialSmoothing.
const (
	ModeNone     = "none"
	ModeAdditive = "additive"
)

// ExponentialSmoothingParams configures an additive Holt-Winters model.
// Smoothing parameters left nil are fitted by minimising the squared
// one-step-ahead errors.
type ExponentialSmoothingParams struct {
	Trend           string   `json:"trend"`
	Seasonal        string   `json:"seasonal"`
	SeasonalPeriods int      `json:"seasonal_periods"`
	Alpha           *float64 `json:"alpha"`
	Beta            *float64 `json:"beta"`
	Gamma           *float64 `json:"gamma"`
	RandomState     *uint64  `json:"random_state"`
}

// ExponentialSmoothing is a univariate additive-error Holt-Winters model.
// Sample paths simulate Gaussian innovations with the residual deviation.
type ExponentialSmoothing struct {
	params ExponentialSmoothingParams

	mu     sync.Mutex
	rng    *rand.Rand
	train  *timeseries.TimeSeries
	fit    esState
	fitted bool
}

type esState struct {
	alpha, beta, gamma float64
	level, trend       float64
	season             []float64
	sigma              float64
	n                  int
}

// NewExponentialSmoothing validates the parameters.
func NewExponentialSmoothing(p ExponentialSmoothingParams) (*ExponentialSmoothing, error) {
	if p.Trend == "" {
		p.Trend = ModeNone
	}
	if p.Seasonal == "" {
		p.Seasonal = ModeNone
	}
	for _, m := range []string{p.Trend, p.Seasonal} {
		if m != ModeNone && m != ModeAdditive {
			return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidParams, m)
		}
	}
	if p.Seasonal == ModeAdditive && p.SeasonalPeriods < 2 {
		return nil, fmt.Errorf("%w: seasonal_periods must be >= 2, got %d", ErrInvalidParams, p.SeasonalPeriods)
	}
	for name, v := range map[string]*float64{"alpha": p.Alpha, "beta": p.Beta, "gamma": p.Gamma} {
		if v != nil && (*v < 0 || *v > 1) {
			return nil, fmt.Errorf("%w: %s must be in [0, 1], got %v", ErrInvalidParams, name, *v)
		}
	}
	return &ExponentialSmoothing{params: p, rng: newRand(p.RandomState)}, nil
}

func (m *ExponentialSmoothing) Probabilistic() bool { return true }
func (m *ExponentialSmoothing) Multivariate() bool  { return false }

func (m *ExponentialSmoothing) String() string {
	return fmt.Sprintf("ExponentialSmoothing(trend=%s, seasonal=%s, seasonal_periods=%d)",
		m.params.Trend, m.params.Seasonal, m.params.SeasonalPeriods)
}

func (m *ExponentialSmoothing) periods() int {
	if m.params.Seasonal == ModeAdditive {
		return m.params.SeasonalPeriods
	}
	return 0
}

func (m *ExponentialSmoothing) hasTrend() bool { return m.params.Trend == ModeAdditive }

func logistic(u float64) float64 { return 1 / (1 + math.Exp(-u)) }

func logit(p float64) float64 {
	p = math.Min(math.Max(p, 1e-4), 1-1e-4)
	return math.Log(p / (1 - p))
}

// decode maps the optimiser vector onto an initial state. Layout: level0,
// [trend0], [alpha], [beta], [gamma]; fixed smoothing values are skipped.
func (m *ExponentialSmoothing) decode(x []float64, season []float64) esState {
	i := 0
	next := func() float64 {
		v := x[i]
		i++
		return v
	}
	s := esState{level: next()}
	if m.hasTrend() {
		s.trend = next()
	}
	s.alpha = fixedOr(m.params.Alpha, next)
	if m.hasTrend() {
		s.beta = s.alpha * fixedOr(m.params.Beta, next)
	}
	if m.periods() > 0 {
		s.gamma = (1 - s.alpha) * fixedOr(m.params.Gamma, next)
		s.season = append([]float64(nil), season...)
	}
	return s
}

func fixedOr(v *float64, next func() float64) float64 {
	if v != nil {
		return *v
	}
	return logistic(next())
}

// step advances the state by one observation with innovation e.
func (s *esState) step(t int, e float64) {
	level := s.level + s.trend + s.alpha*e
	s.trend += s.beta * e
	if len(s.season) > 0 {
		k := t % len(s.season)
		s.season[k] += s.gamma * e
	}
	s.level = level
}

func (s *esState) mean(t int) float64 {
	v := s.level + s.trend
	if len(s.season) > 0 {
		v += s.season[t%len(s.season)]
	}
	return v
}

// run filters ys and returns the sum of squared one-step errors.
func (s *esState) run(ys []float64) float64 {
	sse := 0.0
	for t, y := range ys {
		e := y - s.mean(t)
		sse += e * e
		s.step(t, e)
	}
	return sse
}

// Fit estimates the initial states and the free smoothing parameters.
func (m *ExponentialSmoothing) Fit(ctx context.Context, series *timeseries.TimeSeries, _ ...Option) error {
	if series == nil {
		return fmt.Errorf("%w: nil series", ErrNotEnoughData)
	}
	if !series.IsUnivariate() {
		return ErrUnivariateOnly
	}
	if series.IsStochastic() {
		return ErrStochasticInput
	}
	ys := series.Component(0)
	per := m.periods()
	minLen := 3
	if per > 0 {
		minLen = 2 * per
	}
	if len(ys) < minLen {
		return fmt.Errorf("%w: %d observations, need at least %d", ErrNotEnoughData, len(ys), minLen)
	}

	x0, season := m.initialGuess(ys)
	sse := func(x []float64) float64 {
		s := m.decode(x, season)
		return s.run(ys)
	}
	best := x0
	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := optimize.Minimize(optimize.Problem{Func: sse}, x0, &optimize.Settings{FuncEvaluations: 4000}, &optimize.NelderMead{})
	if res == nil {
		return fmt.Errorf("exponential smoothing: optimise: %w", err)
	}
	if res.F <= sse(x0) {
		best = res.X
	}

	state := m.decode(best, season)
	total := state.run(ys)
	dof := len(ys) - len(best)
	if dof < 1 {
		dof = 1
	}
	state.sigma = math.Sqrt(total / float64(dof))
	state.n = len(ys)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.fit = state
	m.train = series
	m.fitted = true
	return nil
}

func (m *ExponentialSmoothing) initialGuess(ys []float64) ([]float64, []float64) {
	per := m.periods()
	head := ys[:min(len(ys), 10)]
	if per > 0 {
		head = ys[:per]
	}
	level := stat.Mean(head, nil)
	x := []float64{level}
	if m.hasTrend() {
		var trend float64
		if per > 0 {
			trend = (stat.Mean(ys[per:2*per], nil) - level) / float64(per)
		} else {
			trend = ys[1] - ys[0]
		}
		x = append(x, trend)
	}
	if m.params.Alpha == nil {
		x = append(x, logit(0.3))
	}
	if m.hasTrend() && m.params.Beta == nil {
		x = append(x, logit(0.1))
	}
	var season []float64
	if per > 0 {
		season = make([]float64, per)
		for i := range season {
			season[i] = ys[i] - level
		}
		if m.params.Gamma == nil {
			x = append(x, logit(0.1))
		}
	}
	return x, season
}

// Predict returns the point forecast, or sample paths when more than one
// sample is requested.
func (m *ExponentialSmoothing) Predict(ctx context.Context, n int, opts ...Option) (*timeseries.TimeSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := ApplyOptions(opts...)
	if err := checkPredict(m.fitted, true, n, o); err != nil {
		return nil, err
	}
	paths := make([][][]float64, o.NumSamples)
	for s := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		st := m.fit
		st.season = append([]float64(nil), m.fit.season...)
		paths[s] = make([][]float64, n)
		for k := 0; k < n; k++ {
			t := st.n + k
			mu := st.mean(t)
			e := 0.0
			if o.NumSamples > 1 {
				e = st.sigma * m.rng.NormFloat64()
			}
			paths[s][k] = []float64{mu + e}
			st.step(t, e)
		}
	}
	return forecastSeries(m.train, paths)
}
