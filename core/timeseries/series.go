package timeseries

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmpty is returned when a series would contain no time steps.
	ErrEmpty = errors.New("timeseries: empty series")
	// ErrShape is returned when values do not match the declared dimensions.
	ErrShape = errors.New("timeseries: inconsistent shape")
	// ErrIndexMismatch is returned when two series do not share a time index.
	ErrIndexMismatch = errors.New("timeseries: time index mismatch")
	// ErrInvalidQuantile is returned for quantiles outside [0,1].
	ErrInvalidQuantile = errors.New("timeseries: quantile must be within [0,1]")
)

// DefaultStart and DefaultFreq index series built from raw values.
var (
	DefaultStart = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	DefaultFreq  = 24 * time.Hour
)

// TimeSeries is a regular multivariate, possibly stochastic series.
type TimeSeries struct {
	start      time.Time
	freq       time.Duration
	components []string
	length     int
	width      int
	samples    int
	values     []float64
}

// New builds a deterministic series from values indexed [time][component].
func New(start time.Time, freq time.Duration, components []string, values [][]float64) (*TimeSeries, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}
	width := len(values[0])
	stoch := make([][][]float64, len(values))
	for t, row := range values {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d components, want %d", ErrShape, t, len(row), width)
		}
		stoch[t] = make([][]float64, width)
		for c, v := range row {
			stoch[t][c] = []float64{v}
		}
	}
	return NewStochastic(start, freq, components, stoch)
}

// NewStochastic builds a series from values indexed [time][component][sample].
func NewStochastic(start time.Time, freq time.Duration, components []string, values [][][]float64) (*TimeSeries, error) {
	if len(values) == 0 || len(values[0]) == 0 || len(values[0][0]) == 0 {
		return nil, ErrEmpty
	}
	if freq <= 0 {
		return nil, fmt.Errorf("timeseries: frequency must be positive, got %s", freq)
	}
	length, width, samples := len(values), len(values[0]), len(values[0][0])
	if components == nil {
		components = defaultComponents(width)
	}
	if len(components) != width {
		return nil, fmt.Errorf("%w: %d component names for %d components", ErrShape, len(components), width)
	}
	ts := &TimeSeries{
		start:      start,
		freq:       freq,
		components: append([]string(nil), components...),
		length:     length,
		width:      width,
		samples:    samples,
		values:     make([]float64, length*width*samples),
	}
	for t := range values {
		if len(values[t]) != width {
			return nil, fmt.Errorf("%w: time %d has %d components, want %d", ErrShape, t, len(values[t]), width)
		}
		for c := range values[t] {
			if len(values[t][c]) != samples {
				return nil, fmt.Errorf("%w: time %d component %d has %d samples, want %d", ErrShape, t, c, len(values[t][c]), samples)
			}
			copy(ts.values[ts.offset(t, c, 0):], values[t][c])
		}
	}
	return ts, nil
}

// FromValues builds a univariate deterministic series on the default index.
func FromValues(values []float64) (*TimeSeries, error) {
	rows := make([][]float64, len(values))
	for i, v := range values {
		rows[i] = []float64{v}
	}
	return New(DefaultStart, DefaultFreq, nil, rows)
}

func defaultComponents(width int) []string {
	names := make([]string, width)
	for i := range names {
		names[i] = fmt.Sprintf("%d", i)
	}
	return names
}

func (ts *TimeSeries) offset(t, c, s int) int {
	return (t*ts.width+c)*ts.samples + s
}

// empty returns a zeroed series sharing the receiver's index metadata.
func (ts *TimeSeries) empty(start time.Time, length, width, samples int, components []string) *TimeSeries {
	return &TimeSeries{
		start:      start,
		freq:       ts.freq,
		components: components,
		length:     length,
		width:      width,
		samples:    samples,
		values:     make([]float64, length*width*samples),
	}
}

func (ts *TimeSeries) Len() int { return ts.length }
func (ts *TimeSeries) Width() int { return ts.width }
func (ts *TimeSeries) NumSamples() int { return ts.samples }
func (ts *TimeSeries) IsDeterministic() bool { return ts.samples == 1 }
func (ts *TimeSeries) IsStochastic() bool { return ts.samples > 1 }
func (ts *TimeSeries) IsUnivariate() bool { return ts.width == 1 }
func (ts *TimeSeries) Start() time.Time { return ts.start }
func (ts *TimeSeries) Freq() time.Duration { return ts.freq }
func (ts *TimeSeries) End() time.Time { return ts.TimeAt(ts.length - 1) }
func (ts *TimeSeries) TimeAt(i int) time.Time { return ts.start.Add(time.Duration(i) * ts.freq) }
func (ts *TimeSeries) At(t, c, s int) float64 { return ts.values[ts.offset(t, c, s)] }
func (ts *TimeSeries) Value(t, c int) float64 { return ts.values[ts.offset(t, c, 0)] }
func (ts *TimeSeries) Components() []string { return append([]string(nil), ts.components...) }
func (ts *TimeSeries) Samples(t, c int) []float64 {
	o := ts.offset(t, c, 0)
	return append([]float64(nil), ts.values[o:o+ts.samples]...)
}

// IndexOf returns the position of t in the series index.
func (ts *TimeSeries) IndexOf(t time.Time) (int, bool) {
	d := t.Sub(ts.start)
	if d < 0 || d%ts.freq != 0 {
		return 0, false
	}
	i := int(d / ts.freq)
	if i >= ts.length {
		return 0, false
	}
	return i, true
}

// Values returns the first sample of every value as [time][component].
func (ts *TimeSeries) Values() [][]float64 {
	out := make([][]float64, ts.length)
	for t := range out {
		out[t] = make([]float64, ts.width)
		for c := range out[t] {
			out[t][c] = ts.Value(t, c)
		}
	}
	return out
}

// AllValues returns a copy of every value as [time][component][sample].
func (ts *TimeSeries) AllValues() [][][]float64 {
	out := make([][][]float64, ts.length)
	for t := range out {
		out[t] = make([][]float64, ts.width)
		for c := range out[t] {
			out[t][c] = ts.Samples(t, c)
		}
	}
	return out
}

// Component returns the first sample of component c over time.
func (ts *TimeSeries) Component(c int) []float64 {
	out := make([]float64, ts.length)
	for t := range out {
		out[t] = ts.Value(t, c)
	}
	return out
}

// Slice returns time steps [from, to). Bounds are clamped to the series.
// An empty range yields nil.
func (ts *TimeSeries) Slice(from, to int) *TimeSeries {
	if from < 0 {
		from = 0
	}
	if to > ts.length {
		to = ts.length
	}
	if from >= to {
		return nil
	}
	out := ts.empty(ts.TimeAt(from), to-from, ts.width, ts.samples, ts.Components())
	copy(out.values, ts.values[ts.offset(from, 0, 0):ts.offset(to, 0, 0)])
	return out
}

// Head returns the first n time steps.
func (ts *TimeSeries) Head(n int) *TimeSeries { return ts.Slice(0, n) }

// From returns the series starting at time step i.
func (ts *TimeSeries) From(i int) *TimeSeries { return ts.Slice(i, ts.length) }

// SliceIntersect returns the part of ts whose times are also covered by other.
func (ts *TimeSeries) SliceIntersect(other *TimeSeries) (*TimeSeries, error) {
	if ts.freq != other.freq {
		return nil, fmt.Errorf("%w: frequencies %s and %s", ErrIndexMismatch, ts.freq, other.freq)
	}
	start := ts.start
	if other.start.After(start) {
		start = other.start
	}
	end := ts.End()
	if other.End().Before(end) {
		end = other.End()
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: no overlapping time steps", ErrIndexMismatch)
	}
	from, ok := ts.IndexOf(start)
	if !ok {
		return nil, fmt.Errorf("%w: misaligned time steps", ErrIndexMismatch)
	}
	to, _ := ts.IndexOf(end)
	return ts.Slice(from, to+1), nil
}

func (ts *TimeSeries) sameIndex(other *TimeSeries) bool {
	return ts.start.Equal(other.start) && ts.freq == other.freq && ts.length == other.length
}

// Stack concatenates the components of other after those of ts.
func (ts *TimeSeries) Stack(other *TimeSeries) (*TimeSeries, error) {
	if !ts.sameIndex(other) {
		return nil, ErrIndexMismatch
	}
	if ts.samples != other.samples {
		return nil, fmt.Errorf("%w: %d and %d samples", ErrShape, ts.samples, other.samples)
	}
	names := ts.Components()
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range other.components {
		for seen[n] {
			n += "_1"
		}
		seen[n] = true
		names = append(names, n)
	}
	out := ts.empty(ts.start, ts.length, ts.width+other.width, ts.samples, names)
	for t := 0; t < ts.length; t++ {
		for c := 0; c < out.width; c++ {
			src, sc := ts, c
			if c >= ts.width {
				src, sc = other, c-ts.width
			}
			copy(out.values[out.offset(t, c, 0):out.offset(t, c, 0)+ts.samples],
				src.values[src.offset(t, sc, 0):src.offset(t, sc, 0)+ts.samples])
		}
	}
	return out, nil
}

// Add sums two series element-wise. A deterministic operand is broadcast
// over the samples of a stochastic one.
func (ts *TimeSeries) Add(other *TimeSeries) (*TimeSeries, error) {
	if !ts.sameIndex(other) || ts.width != other.width {
		return nil, ErrIndexMismatch
	}
	samples := ts.samples
	switch {
	case ts.samples == other.samples:
	case ts.samples == 1:
		samples = other.samples
	case other.samples == 1:
	default:
		return nil, fmt.Errorf("%w: %d and %d samples", ErrShape, ts.samples, other.samples)
	}
	out := ts.empty(ts.start, ts.length, ts.width, samples, ts.Components())
	for t := 0; t < ts.length; t++ {
		for c := 0; c < ts.width; c++ {
			for s := 0; s < samples; s++ {
				out.values[out.offset(t, c, s)] = ts.At(t, c, s%ts.samples) + other.At(t, c, s%other.samples)
			}
		}
	}
	return out, nil
}

// Append concatenates other, which must start one step after ts ends.
func (ts *TimeSeries) Append(other *TimeSeries) (*TimeSeries, error) {
	if ts.freq != other.freq || !other.start.Equal(ts.End().Add(ts.freq)) {
		return nil, fmt.Errorf("%w: appended series must start at %s", ErrIndexMismatch, ts.End().Add(ts.freq))
	}
	if ts.width != other.width || ts.samples != other.samples {
		return nil, ErrShape
	}
	out := ts.empty(ts.start, ts.length+other.length, ts.width, ts.samples, ts.Components())
	copy(out.values, ts.values)
	copy(out.values[len(ts.values):], other.values)
	return out, nil
}

// WithIndex returns a copy of ts re-indexed on start and freq.
func (ts *TimeSeries) WithIndex(start time.Time, freq time.Duration) (*TimeSeries, error) {
	if freq <= 0 {
		return nil, fmt.Errorf("timeseries: frequency must be positive, got %s", freq)
	}
	out := ts.empty(start, ts.length, ts.width, ts.samples, ts.Components())
	out.freq = freq
	copy(out.values, ts.values)
	return out, nil
}

// WithComponents returns a copy of ts with renamed components.
func (ts *TimeSeries) WithComponents(names []string) (*TimeSeries, error) {
	if len(names) != ts.width {
		return nil, fmt.Errorf("%w: %d names for %d components", ErrShape, len(names), ts.width)
	}
	out := ts.empty(ts.start, ts.length, ts.width, ts.samples, append([]string(nil), names...))
	copy(out.values, ts.values)
	return out, nil
}

// Equal reports whether both series share index, shape and values.
func (ts *TimeSeries) Equal(other *TimeSeries) bool {
	if other == nil || !ts.sameIndex(other) || ts.width != other.width || ts.samples != other.samples {
		return false
	}
	for i, v := range ts.values {
		if other.values[i] != v {
			return false
		}
	}
	return true
}
