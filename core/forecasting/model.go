package forecasting

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/kilianp07/forecast/core/timeseries"
)

var (
	ErrNotFitted        = errors.New("forecasting: model is not fitted")
	ErrInvalidHorizon   = errors.New("forecasting: horizon must be >= 1")
	ErrInvalidSamples   = errors.New("forecasting: num_samples must be >= 1")
	ErrNotProbabilistic = errors.New("forecasting: model is deterministic, num_samples must be 1")
	ErrUnivariateOnly   = errors.New("forecasting: model only supports univariate series")
	ErrStochasticInput  = errors.New("forecasting: training series must be deterministic")
	ErrNotEnoughData    = errors.New("forecasting: not enough data")
	ErrInvalidParams    = errors.New("forecasting: invalid parameters")
)

// Model is the fit/predict contract implemented by every forecaster.
type Model interface {
	// Fit trains the model on series.
	Fit(ctx context.Context, series *timeseries.TimeSeries, opts ...Option) error
	// Predict forecasts n steps after the end of the training series.
	Predict(ctx context.Context, n int, opts ...Option) (*timeseries.TimeSeries, error)
	// Probabilistic reports whether Predict accepts more than one sample.
	Probabilistic() bool
	// Multivariate reports whether the model fits multi-component series.
	Multivariate() bool
	String() string
}

// Options is the resolved form of a list of Option.
type Options struct {
	NumSamples       int
	PastCovariates   *timeseries.TimeSeries
	FutureCovariates *timeseries.TimeSeries
}

// Option configures a Fit or Predict call.
type Option func(*Options)

// WithNumSamples sets the number of sample paths drawn by Predict.
func WithNumSamples(n int) Option { return func(o *Options) { o.NumSamples = n } }

// WithPastCovariates provides covariates known only up to the prediction time.
func WithPastCovariates(ts *timeseries.TimeSeries) Option {
	return func(o *Options) { o.PastCovariates = ts }
}

// WithFutureCovariates provides covariates known in advance.
func WithFutureCovariates(ts *timeseries.TimeSeries) Option {
	return func(o *Options) { o.FutureCovariates = ts }
}

// ApplyOptions resolves opts. NumSamples defaults to 1.
func ApplyOptions(opts ...Option) Options {
	o := Options{NumSamples: 1}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// checkPredict validates the generic predict arguments.
func checkPredict(fitted, probabilistic bool, n int, o Options) error {
	switch {
	case !fitted:
		return ErrNotFitted
	case n < 1:
		return ErrInvalidHorizon
	case o.NumSamples < 1:
		return ErrInvalidSamples
	case o.NumSamples > 1 && !probabilistic:
		return ErrNotProbabilistic
	}
	return nil
}

// newRand returns a generator seeded from seed, or randomly when seed is nil.
func newRand(seed *uint64) *rand.Rand {
	if seed == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return timeseries.NewRand(*seed)
}

// forecastSeries assembles sample paths [sample][step][component] into a
// series starting right after the training end.
func forecastSeries(train *timeseries.TimeSeries, paths [][][]float64) (*timeseries.TimeSeries, error) {
	n := len(paths[0])
	width := len(paths[0][0])
	vals := make([][][]float64, n)
	for t := range vals {
		vals[t] = make([][]float64, width)
		for c := range vals[t] {
			vals[t][c] = make([]float64, len(paths))
			for s := range paths {
				vals[t][c][s] = paths[s][t][c]
			}
		}
	}
	return timeseries.NewStochastic(train.End().Add(train.Freq()), train.Freq(), train.Components(), vals)
}
