package evaluation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/forecast/core/forecasting"
	"github.com/kilianp07/forecast/core/metrics"
	"github.com/kilianp07/forecast/core/timeseries"
)

// stubModel forecasts the constant level plus a fixed spread. Sample s
// uses the quantile level of grid point perm[s] at every step, so the
// empirical distribution of both the steps and the totals follows invQ.
// A tiny jitter makes consecutive predictions differ.
type stubModel struct {
	invQ         func(u float64) float64
	seed         uint64
	multivariate bool

	rng   *rand.Rand
	train *timeseries.TimeSeries
}

func (m *stubModel) Fit(_ context.Context, ts *timeseries.TimeSeries, _ ...forecasting.Option) error {
	m.train = ts
	m.rng = timeseries.NewRand(m.seed)
	return nil
}

func (m *stubModel) Predict(_ context.Context, n int, opts ...forecasting.Option) (*timeseries.TimeSeries, error) {
	if m.train == nil {
		return nil, forecasting.ErrNotFitted
	}
	k := forecasting.ApplyOptions(opts...).NumSamples
	perm := m.rng.Perm(k)
	vals := make([][][]float64, n)
	for t := range vals {
		vals[t] = make([][]float64, m.train.Width())
		for c := range vals[t] {
			vals[t][c] = make([]float64, k)
			for s := range vals[t][c] {
				u := (float64(perm[s]) + 0.5) / float64(k)
				vals[t][c][s] = ConstantValue + m.invQ(u) + 1e-9*m.rng.NormFloat64()
			}
		}
	}
	return timeseries.NewStochastic(m.train.End().Add(m.train.Freq()), m.train.Freq(), m.train.Components(), vals)
}

func (m *stubModel) Probabilistic() bool { return true }
func (m *stubModel) Multivariate() bool  { return m.multivariate }
func (m *stubModel) String() string      { return "Stub" }

// heavyTail has quantile offsets k(1/(1-u) - 2) above the median, mirrored
// below. Its rho-risk grows monotonically away from 0.5.
func heavyTail(k float64) func(float64) float64 {
	return func(u float64) float64 {
		if u >= 0.5 {
			return k * (1/(1-u) - 2)
		}
		return -k * (1/u - 2)
	}
}

func gaussian(sigma float64) func(float64) float64 {
	n := distuv.Normal{Mu: 0, Sigma: sigma}
	return n.Quantile
}

// shifted moves every quantile of inv up by offset.
func shifted(offset float64, inv func(float64) float64) func(float64) float64 {
	return func(u float64) float64 { return offset + inv(u) }
}

func stubCase(name string, inv func(float64) float64, multivariate bool) Case {
	return Case{
		Name:     name,
		MaxError: 0.1,
		New: func() (forecasting.Model, error) {
			return &stubModel{invQ: inv, seed: 7, multivariate: multivariate}, nil
		},
	}
}

func datasets(t *testing.T) []Dataset {
	t.Helper()
	ds, err := ConstantDatasets(DefaultSeed)
	require.NoError(t, err)
	return ds
}

func harness(t *testing.T, sink metrics.MetricsSink) *Harness {
	t.Helper()
	h, err := NewHarness(Config{}, nil, sink)
	require.NoError(t, err)
	return h
}

// stubHarness draws enough samples for the empirical rho ladder of the
// heavy-tailed stub to be monotone.
func stubHarness(t *testing.T, sink metrics.MetricsSink) *Harness {
	t.Helper()
	h, err := NewHarness(Config{NumSamples: 1000}, nil, sink)
	require.NoError(t, err)
	return h
}

func TestConstantDatasets(t *testing.T) {
	ds := datasets(t)
	require.Len(t, ds, 2)
	assert.False(t, ds[0].Multivariate())
	assert.True(t, ds[1].Multivariate())
	assert.Equal(t, ConstantLength, ds[0].Noisy.Len())
	assert.InDelta(t, ConstantValue, stat.Mean(ds[0].Noisy.Component(0), nil), 0.03)
	assert.InDelta(t, ConstantNoise, stat.StdDev(ds[0].Noisy.Component(0), nil), 0.03)
	assert.Equal(t, ds[0].Noisy.Component(0), ds[1].Noisy.Component(1))

	again, err := ConstantDatasets(DefaultSeed)
	require.NoError(t, err)
	assert.True(t, ds[0].Noisy.Equal(again[0].Noisy))

	other, err := ConstantDatasets(DefaultSeed + 1)
	require.NoError(t, err)
	assert.False(t, ds[0].Noisy.Equal(other[0].Noisy))
}

func TestConfig_DatasetSeed(t *testing.T) {
	var c Config
	assert.Equal(t, DefaultSeed, c.DatasetSeed())
	seed := uint64(0)
	c.Seed = &seed
	assert.Equal(t, uint64(0), c.DatasetSeed())
}

func TestHarness_StubPassesAllChecks(t *testing.T) {
	ctx := context.Background()
	h := stubHarness(t, nil)
	c := stubCase("heavy", heavyTail(0.05), true)
	for _, d := range datasets(t) {
		for name, check := range map[string]checkFunc{
			CheckDeterminism: h.CheckDeterminism,
			CheckAccuracy:    h.CheckAccuracy,
			CheckRisk:        h.CheckRisk,
		} {
			res, err := check(ctx, c, d)
			require.NoError(t, err, "%s on %s", name, d.Name)
			assert.True(t, res.Passed)
			assert.Equal(t, name, res.Check)
			assert.Equal(t, "Stub", res.Model)
		}
	}
}

func TestHarness_GaussianPassesAllChecks(t *testing.T) {
	ctx := context.Background()
	h := stubHarness(t, nil)
	c := stubCase("gaussian", gaussian(0.1), false)
	d := datasets(t)[0]

	res, err := h.CheckAccuracy(ctx, c, d)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	assert.Len(t, res.Scores, 9)

	res, err = h.CheckRisk(ctx, c, d)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	require.Len(t, res.Scores, 11)
	assert.Equal(t, 0.5, res.Scores[0].Quantile)
	assert.Less(t, res.Scores[0].Value, c.MaxError)
}

func TestHarness_BiasedForecastFailsLadders(t *testing.T) {
	ctx := context.Background()
	h := stubHarness(t, nil)
	c := stubCase("biased", shifted(0.03, gaussian(0.02)), false)
	d := datasets(t)[0]

	res, err := h.CheckAccuracy(ctx, c, d)
	assert.ErrorIs(t, err, ErrCheckFailed)
	assert.ErrorContains(t, err, "mae at quantile 0.3")
	assert.False(t, res.Passed)

	res, err = h.CheckRisk(ctx, c, d)
	assert.ErrorIs(t, err, ErrCheckFailed)
	assert.ErrorContains(t, err, "rho-risk at 0.2")
	assert.False(t, res.Passed)
	require.NotEmpty(t, res.Scores)
	assert.Less(t, res.Scores[0].Value, c.MaxError)
}

func TestHarness_DetectsNondeterminism(t *testing.T) {
	seed := uint64(0)
	c := Case{
		Name:     "unseeded",
		MaxError: 1,
		New: func() (forecasting.Model, error) {
			seed++
			return &stubModel{invQ: gaussian(0.1), seed: seed}, nil
		},
	}
	_, err := stubHarness(t, nil).CheckDeterminism(context.Background(), c, datasets(t)[0])
	assert.ErrorIs(t, err, ErrCheckFailed)
}

func TestHarness_DeterminismFitsOnNoisy(t *testing.T) {
	var built []*stubModel
	c := Case{
		Name:     "recorded",
		MaxError: 1,
		New: func() (forecasting.Model, error) {
			m := &stubModel{invQ: gaussian(0.1), seed: 7}
			built = append(built, m)
			return m, nil
		},
	}
	d := datasets(t)[0]
	res, err := stubHarness(t, nil).CheckDeterminism(context.Background(), c, d)
	require.NoError(t, err)
	assert.True(t, res.Passed)
	require.Len(t, built, 2)
	for _, m := range built {
		assert.Same(t, d.Noisy, m.train)
	}
}

func TestHarness_Tolerance(t *testing.T) {
	c := stubCase("tight", heavyTail(0.05), false)
	c.MaxError = 0
	_, err := stubHarness(t, nil).CheckAccuracy(context.Background(), c, datasets(t)[0])
	assert.ErrorIs(t, err, ErrCheckFailed)
}

type countingSink struct {
	mu                            sync.Mutex
	scores, fits, predicts, fails int
	checks                        int
}

func (s *countingSink) RecordScore(metrics.ScoreEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores++
	return nil
}

func (s *countingSink) RecordFit(metrics.FitEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fits++
	return nil
}

func (s *countingSink) RecordPredict(metrics.PredictEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.predicts++
	return nil
}

func (s *countingSink) RecordCheck(ev metrics.CheckEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	if !ev.Passed {
		s.fails++
	}
	return nil
}

func TestHarness_Run(t *testing.T) {
	sink := &countingSink{}
	h := stubHarness(t, sink)
	cases := []Case{
		stubCase("heavy_global", heavyTail(0.05), true),
		stubCase("heavy_local", heavyTail(0.05), false),
		stubCase("biased_local", shifted(0.03, gaussian(0.02)), false),
	}
	report, err := h.Run(context.Background(), cases, datasets(t))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	// 2 datasets for the global case, 1 for each local case
	require.Len(t, report.Results, 4*3)
	assert.False(t, report.Passed())
	failed := report.Failed()
	require.Len(t, failed, 2)
	var checks []string
	for _, f := range failed {
		assert.Equal(t, "biased_local", f.Case)
		assert.NotEmpty(t, f.Error)
		checks = append(checks, f.Check)
	}
	assert.ElementsMatch(t, []string{CheckAccuracy, CheckRisk}, checks)

	assert.Equal(t, 12, sink.checks)
	assert.Equal(t, 2, sink.fails)
	// determinism fits twice, the other checks once
	assert.Equal(t, 4*4, sink.fits)
	assert.Equal(t, 4*5, sink.predicts)
	assert.Positive(t, sink.scores)
}

func TestHarness_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := Case{Name: "ctx", MaxError: 1, New: func() (forecasting.Model, error) {
		return forecasting.NewARIMA(forecasting.ARIMAParams{P: 1})
	}}
	_, err := harness(t, nil).Run(ctx, []Case{c}, datasets(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHarness_RunBuildError(t *testing.T) {
	c := Case{Name: "broken", New: func() (forecasting.Model, error) {
		return nil, fmt.Errorf("no model")
	}}
	_, err := harness(t, nil).Run(context.Background(), []Case{c}, datasets(t))
	assert.Error(t, err)
}

func defaultCases(t *testing.T) map[string]Case {
	t.Helper()
	cases, err := BuildCases(DefaultCaseConfigs())
	require.NoError(t, err)
	out := make(map[string]Case, len(cases))
	for _, c := range cases {
		out[c.Name] = c
	}
	return out
}

func TestHarness_DefaultCases(t *testing.T) {
	ctx := context.Background()
	h := harness(t, nil)
	for name, c := range defaultCases(t) {
		for _, d := range datasets(t) {
			m, err := c.New()
			require.NoError(t, err)
			if d.Multivariate() && !m.Multivariate() {
				continue
			}
			t.Run(name+"/"+d.Name, func(t *testing.T) {
				res, err := h.CheckDeterminism(ctx, c, d)
				require.NoError(t, err)
				assert.True(t, res.Passed)

				res, err = h.CheckAccuracy(ctx, c, d)
				require.NoError(t, err)
				assert.True(t, res.Passed)
				assert.Less(t, res.Scores[0].Value, c.MaxError)

				res, err = h.CheckRisk(ctx, c, d)
				require.NoError(t, err)
				assert.True(t, res.Passed)
				assert.Less(t, res.Scores[0].Value, c.MaxError)
			})
		}
	}
}

func TestHarness_RunDefaultCasesPasses(t *testing.T) {
	cases, err := BuildCases(DefaultCaseConfigs())
	require.NoError(t, err)
	report, err := harness(t, nil).Run(context.Background(), cases, datasets(t))
	require.NoError(t, err)
	// random_forest runs on both datasets, the statistical models on one
	assert.Len(t, report.Results, 4*3)
	for _, r := range report.Failed() {
		t.Errorf("%s/%s/%s: %s", r.Case, r.Dataset, r.Check, r.Error)
	}
	assert.True(t, report.Passed())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"upper not increasing", func(c *Config) { c.UpperQuantiles = []float64{0.7, 0.6} }},
		{"lower above median", func(c *Config) { c.LowerQuantiles = []float64{0.6} }},
		{"rho out of range", func(c *Config) { c.UpperRhos = []float64{0.8, 1.2} }},
		{"one sample", func(c *Config) { c.NumSamples = 1 }},
		{"negative horizon", func(c *Config) { c.Horizon = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.SetDefaults()
			tt.mod(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
	var c Config
	c.SetDefaults()
	assert.NoError(t, c.Validate())
	assert.Equal(t, 100, c.Horizon)
}
