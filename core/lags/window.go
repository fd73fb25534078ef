package lags

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/forecast/core/timeseries"
)

var (
	// ErrNotEnoughData is returned when no complete feature row can be built.
	ErrNotEnoughData = errors.New("lags: not enough data to build a feature row")
	// ErrMissingCovariates is returned when lags reference a covariate series
	// that is absent or does not cover the required time steps.
	ErrMissingCovariates = errors.New("lags: covariates missing for required time steps")
	// ErrUnusedCovariates is returned when covariates are given without lags.
	ErrUnusedCovariates = errors.New("lags: covariates provided without matching lags")
	// ErrStochastic is returned when a stochastic series is used as features.
	ErrStochastic = errors.New("lags: features require deterministic series")
)

// History is a deterministic, regular block of values indexed by time.
type History struct {
	Start  time.Time
	Freq   time.Duration
	Values [][]float64
}

// FromSeries converts a deterministic series into a History.
func FromSeries(ts *timeseries.TimeSeries) (*History, error) {
	if ts == nil {
		return nil, nil
	}
	if ts.IsStochastic() {
		return nil, ErrStochastic
	}
	return &History{Start: ts.Start(), Freq: ts.Freq(), Values: ts.Values()}, nil
}

// Width returns the number of components.
func (h *History) Width() int {
	if h == nil || len(h.Values) == 0 {
		return 0
	}
	return len(h.Values[0])
}

// End returns the time of the last value.
func (h *History) End() time.Time {
	return h.Start.Add(time.Duration(len(h.Values)-1) * h.Freq)
}

func (h *History) at(t time.Time) ([]float64, bool) {
	if h == nil {
		return nil, false
	}
	d := t.Sub(h.Start)
	if d < 0 || d%h.Freq != 0 {
		return nil, false
	}
	i := int(d / h.Freq)
	if i >= len(h.Values) {
		return nil, false
	}
	return h.Values[i], true
}

// Clone returns a deep copy whose Values may be extended independently.
func (h *History) Clone() *History {
	if h == nil {
		return nil
	}
	vals := make([][]float64, len(h.Values))
	for i, row := range h.Values {
		vals[i] = append([]float64(nil), row...)
	}
	return &History{Start: h.Start, Freq: h.Freq, Values: vals}
}

// NumFeatures returns the width of a feature row.
func (s Set) NumFeatures(targetWidth, pastWidth, futureWidth int) int {
	return len(s.Target)*targetWidth + len(s.Past)*pastWidth + len(s.Future)*futureWidth
}

// Row fills dst with the features for predicting time t. Features are ordered
// target, past covariates, future covariates; lag-major, component-minor.
func (s Set) Row(dst []float64, t time.Time, target, past, future *History) error {
	freq := target.Freq
	i := 0
	fill := func(lags []int, h *History, missing error) error {
		for _, l := range lags {
			vals, ok := h.at(t.Add(time.Duration(l) * freq))
			if !ok {
				return fmt.Errorf("%w: lag %d at %s", missing, l, t.Format(time.RFC3339))
			}
			i += copy(dst[i:], vals)
		}
		return nil
	}
	if err := fill(s.Target, target, ErrNotEnoughData); err != nil {
		return err
	}
	if err := fill(s.Past, past, ErrMissingCovariates); err != nil {
		return err
	}
	return fill(s.Future, future, ErrMissingCovariates)
}

// Table is a supervised learning view of a series.
type Table struct {
	X     *mat.Dense
	Y     *mat.Dense
	Times []time.Time
}

// CheckCovariates validates that covariate series match the lag set and the
// target frequency.
func (s Set) CheckCovariates(target, past, future *timeseries.TimeSeries) error {
	check := func(kind Kind, lags []int, cov *timeseries.TimeSeries) error {
		switch {
		case len(lags) > 0 && cov == nil:
			return fmt.Errorf("%w: %s set but no series given", ErrMissingCovariates, kind)
		case len(lags) == 0 && cov != nil:
			return fmt.Errorf("%w: %s", ErrUnusedCovariates, kind)
		case cov != nil && cov.Freq() != target.Freq():
			return fmt.Errorf("%w: %s frequency %s differs from target %s", ErrMissingCovariates, kind, cov.Freq(), target.Freq())
		}
		return nil
	}
	if err := check(Past, s.Past, past); err != nil {
		return err
	}
	return check(Future, s.Future, future)
}

// BuildTraining builds one row for every target time step whose lagged
// values all exist.
func BuildTraining(s Set, target, past, future *timeseries.TimeSeries) (Table, error) {
	if err := s.CheckCovariates(target, past, future); err != nil {
		return Table{}, err
	}
	th, err := FromSeries(target)
	if err != nil {
		return Table{}, err
	}
	ph, err := FromSeries(past)
	if err != nil {
		return Table{}, err
	}
	fh, err := FromSeries(future)
	if err != nil {
		return Table{}, err
	}
	nf := s.NumFeatures(th.Width(), ph.Width(), fh.Width())
	var (
		xs    []float64
		ys    []float64
		times []time.Time
	)
	row := make([]float64, nf)
	for i := 0; i < target.Len(); i++ {
		t := target.TimeAt(i)
		if err := s.Row(row, t, th, ph, fh); err != nil {
			continue
		}
		xs = append(xs, row...)
		ys = append(ys, th.Values[i]...)
		times = append(times, t)
	}
	if len(times) == 0 {
		return Table{}, fmt.Errorf("%w: series of length %d with minimum lag %d", ErrNotEnoughData, target.Len(), s.MinLag())
	}
	return Table{
		X:     mat.NewDense(len(times), nf, xs),
		Y:     mat.NewDense(len(times), th.Width(), ys),
		Times: times,
	}, nil
}
