package accuracy

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/forecast/core/timeseries"
)

var (
	ErrZeroActual            = errors.New("accuracy: actual series contains zeros")
	ErrDeterministicForecast = errors.New("accuracy: metric requires a stochastic forecast")
	ErrComponentMismatch     = errors.New("accuracy: component counts differ")
	ErrInvalidRho            = errors.New("accuracy: rho must be in [0, 1]")
)

// Reduction combines per-component scores into one value.
type Reduction int

const (
	Mean Reduction = iota
	Max
	Min
)

func (r Reduction) String() string {
	switch r {
	case Max:
		return "max"
	case Min:
		return "min"
	}
	return "mean"
}

func (r Reduction) apply(v []float64) float64 {
	switch r {
	case Max:
		return floats.Max(v)
	case Min:
		return floats.Min(v)
	}
	return stat.Mean(v, nil)
}

type options struct {
	reduction Reduction
}

// Option configures a metric call.
type Option func(*options)

// WithReduction sets how component scores are combined.
func WithReduction(r Reduction) Option { return func(o *options) { o.reduction = r } }

func applyOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// align intersects both series on time and checks their widths.
func align(actual, pred *timeseries.TimeSeries) (*timeseries.TimeSeries, *timeseries.TimeSeries, error) {
	if actual == nil || pred == nil {
		return nil, nil, timeseries.ErrEmpty
	}
	if actual.Width() != pred.Width() {
		return nil, nil, fmt.Errorf("%w: %d and %d", ErrComponentMismatch, actual.Width(), pred.Width())
	}
	a, err := actual.SliceIntersect(pred)
	if err != nil {
		return nil, nil, err
	}
	p, err := pred.SliceIntersect(actual)
	if err != nil {
		return nil, nil, err
	}
	return a, p, nil
}

// pointwise scores each component of the median series with fn.
func pointwise(actual, pred *timeseries.TimeSeries, opts []Option, fn func(a, p []float64) (float64, error)) (float64, error) {
	a, p, err := align(actual, pred)
	if err != nil {
		return 0, err
	}
	a, p = a.Median(), p.Median()
	scores := make([]float64, a.Width())
	for c := range scores {
		if scores[c], err = fn(a.Component(c), p.Component(c)); err != nil {
			return 0, err
		}
	}
	return applyOptions(opts).reduction.apply(scores), nil
}

// MAE is the mean absolute error.
func MAE(actual, pred *timeseries.TimeSeries, opts ...Option) (float64, error) {
	return pointwise(actual, pred, opts, func(a, p []float64) (float64, error) {
		sum := 0.0
		for i := range a {
			sum += math.Abs(a[i] - p[i])
		}
		return sum / float64(len(a)), nil
	})
}

// MSE is the mean squared error.
func MSE(actual, pred *timeseries.TimeSeries, opts ...Option) (float64, error) {
	return pointwise(actual, pred, opts, mse)
}

func mse(a, p []float64) (float64, error) {
	d := make([]float64, len(a))
	floats.SubTo(d, a, p)
	return floats.Dot(d, d) / float64(len(a)), nil
}

// RMSE is the root mean squared error.
func RMSE(actual, pred *timeseries.TimeSeries, opts ...Option) (float64, error) {
	return pointwise(actual, pred, opts, func(a, p []float64) (float64, error) {
		v, err := mse(a, p)
		return math.Sqrt(v), err
	})
}

// MAPE is the mean absolute percentage error, in percent.
func MAPE(actual, pred *timeseries.TimeSeries, opts ...Option) (float64, error) {
	return pointwise(actual, pred, opts, func(a, p []float64) (float64, error) {
		sum := 0.0
		for i := range a {
			if a[i] == 0 {
				return 0, fmt.Errorf("%w: at index %d", ErrZeroActual, i)
			}
			sum += math.Abs((a[i] - p[i]) / a[i])
		}
		return 100 * sum / float64(len(a)), nil
	})
}

// SMAPE is the symmetric mean absolute percentage error, in percent.
func SMAPE(actual, pred *timeseries.TimeSeries, opts ...Option) (float64, error) {
	return pointwise(actual, pred, opts, func(a, p []float64) (float64, error) {
		sum := 0.0
		for i := range a {
			den := math.Abs(a[i]) + math.Abs(p[i])
			if den == 0 {
				return 0, fmt.Errorf("%w: actual and forecast both zero at index %d", ErrZeroActual, i)
			}
			sum += math.Abs(a[i]-p[i]) / den
		}
		return 200 * sum / float64(len(a)), nil
	})
}

// RhoRisk is the rho-quantile loss of the forecast aggregated over time,
// normalised by the summed absolute actual values. An over-forecast of the
// total is weighted by rho and an under-forecast by 1-rho, so the risk of a
// forecast whose spread covers the actual total grows as rho moves away
// from the median.
func RhoRisk(actual, pred *timeseries.TimeSeries, rho float64, opts ...Option) (float64, error) {
	if rho < 0 || rho > 1 || math.IsNaN(rho) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRho, rho)
	}
	if pred != nil && pred.IsDeterministic() {
		return 0, ErrDeterministicForecast
	}
	a, p, err := align(actual, pred)
	if err != nil {
		return 0, err
	}
	a = a.Median()
	scores := make([]float64, a.Width())
	totals := make([]float64, p.NumSamples())
	for c := range scores {
		av := a.Component(c)
		zTrue := floats.Sum(av)
		norm := 0.0
		for _, v := range av {
			norm += math.Abs(v)
		}
		if norm == 0 {
			return 0, fmt.Errorf("%w: component %d sums to zero", ErrZeroActual, c)
		}
		for s := range totals {
			totals[s] = 0
		}
		for t := 0; t < p.Len(); t++ {
			floats.Add(totals, p.Samples(t, c))
		}
		sort.Float64s(totals)
		zRho := timeseries.QuantileSorted(totals, rho)
		scores[c] = rhoLoss(zTrue, zRho, rho) / norm
	}
	return applyOptions(opts).reduction.apply(scores), nil
}

func rhoLoss(zTrue, zRho, rho float64) float64 {
	if zRho >= zTrue {
		return 2 * (zRho - zTrue) * rho
	}
	return 2 * (zTrue - zRho) * (1 - rho)
}

// QuantileLoss is the mean pinball loss of the q-quantile forecast.
// A deterministic forecast is used as its own quantile.
func QuantileLoss(actual, pred *timeseries.TimeSeries, q float64, opts ...Option) (float64, error) {
	a, p, err := align(actual, pred)
	if err != nil {
		return 0, err
	}
	pq, err := p.Quantile(q)
	if err != nil {
		return 0, err
	}
	a = a.Median()
	scores := make([]float64, a.Width())
	for c := range scores {
		av, pv := a.Component(c), pq.Component(c)
		sum := 0.0
		for i := range av {
			d := av[i] - pv[i]
			sum += math.Max(q*d, (q-1)*d)
		}
		scores[c] = sum / float64(len(av))
	}
	return applyOptions(opts).reduction.apply(scores), nil
}
