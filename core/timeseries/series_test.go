package timeseries

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSeries(t *testing.T, vals ...float64) *TimeSeries {
	t.Helper()
	ts, err := FromValues(vals)
	require.NoError(t, err)
	return ts
}

func TestNew_ShapeErrors(t *testing.T) {
	_, err := New(DefaultStart, time.Hour, nil, nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = New(DefaultStart, time.Hour, nil, [][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrShape)

	_, err = New(DefaultStart, time.Hour, []string{"a"}, [][]float64{{1, 2}})
	assert.ErrorIs(t, err, ErrShape)

	_, err = New(DefaultStart, 0, nil, [][]float64{{1}})
	assert.Error(t, err)
}

func TestSliceAndIndex(t *testing.T) {
	ts := mustSeries(t, 0, 1, 2, 3, 4)
	s := ts.Slice(1, 3)
	require.NotNil(t, s)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, ts.TimeAt(1), s.Start())
	assert.Equal(t, []float64{1, 2}, s.Component(0))

	assert.Equal(t, 5, ts.Slice(-3, 99).Len())
	assert.Nil(t, ts.Slice(3, 3))
	assert.Equal(t, []float64{3, 4}, ts.From(3).Component(0))
	assert.Equal(t, []float64{0, 1}, ts.Head(2).Component(0))

	i, ok := ts.IndexOf(ts.TimeAt(4))
	assert.True(t, ok)
	assert.Equal(t, 4, i)
	_, ok = ts.IndexOf(ts.TimeAt(5))
	assert.False(t, ok)
	_, ok = ts.IndexOf(ts.Start().Add(time.Minute))
	assert.False(t, ok)
}

func TestSliceIntersect(t *testing.T) {
	ts := mustSeries(t, 0, 1, 2, 3, 4, 5)
	other := ts.Slice(2, 10)
	got, err := ts.SliceIntersect(other)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5}, got.Component(0))

	shifted, err := ts.WithIndex(ts.End().Add(48*time.Hour), ts.Freq())
	require.NoError(t, err)
	_, err = ts.SliceIntersect(shifted)
	assert.ErrorIs(t, err, ErrIndexMismatch)
}

func TestStackAndAdd(t *testing.T) {
	a := mustSeries(t, 1, 2, 3)
	b := mustSeries(t, 10, 20, 30)
	st, err := a.Stack(b)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Width())
	assert.Equal(t, []string{"0", "0_1"}, st.Components())
	assert.Equal(t, [][]float64{{1, 10}, {2, 20}, {3, 30}}, st.Values())

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 33}, sum.Component(0))

	_, err = a.Stack(b.Head(2))
	assert.ErrorIs(t, err, ErrIndexMismatch)
}

func TestAddBroadcastsDeterministic(t *testing.T) {
	det := mustSeries(t, 1, 1)
	stoch, err := NewStochastic(DefaultStart, DefaultFreq, nil, [][][]float64{{{0, 1, 2}}, {{3, 4, 5}}})
	require.NoError(t, err)
	got, err := det.Add(stoch)
	require.NoError(t, err)
	assert.Equal(t, 3, got.NumSamples())
	assert.Equal(t, []float64{4, 5, 6}, got.Samples(1, 0))
}

func TestAppend(t *testing.T) {
	ts := mustSeries(t, 0, 1, 2, 3)
	joined, err := ts.Head(2).Append(ts.From(2))
	require.NoError(t, err)
	assert.True(t, joined.Equal(ts))

	_, err = ts.Head(2).Append(ts.From(3))
	assert.ErrorIs(t, err, ErrIndexMismatch)
}

func TestQuantile(t *testing.T) {
	ts, err := NewStochastic(DefaultStart, DefaultFreq, nil, [][][]float64{{{4, 1, 3, 2, 5}}})
	require.NoError(t, err)
	assert.True(t, ts.IsStochastic())

	med := ts.Median()
	assert.True(t, med.IsDeterministic())
	assert.InDelta(t, 3, med.Value(0, 0), 1e-12)

	q, err := ts.Quantile(0.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.4, q.Value(0, 0), 1e-12)

	_, err = ts.Quantile(1.5)
	assert.ErrorIs(t, err, ErrInvalidQuantile)
}

func TestQuantileSorted(t *testing.T) {
	data := []float64{0, 10}
	assert.Equal(t, 0.0, QuantileSorted(data, 0))
	assert.Equal(t, 10.0, QuantileSorted(data, 1))
	assert.InDelta(t, 2.5, QuantileSorted(data, 0.25), 1e-12)
	assert.Equal(t, 7.0, QuantileSorted([]float64{7}, 0.3))
}

func TestGenerators(t *testing.T) {
	c, err := Constant(4, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, c.Component(0))

	l, err := Linear(3, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, l.Component(0))

	g1, err := Gaussian(50, 0, 1, NewRand(0))
	require.NoError(t, err)
	g2, err := Gaussian(50, 0, 1, NewRand(0))
	require.NoError(t, err)
	assert.True(t, g1.Equal(g2))

	s, err := Sine(4, 0.25, 2, 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 3, s.Value(1, 0), 1e-12)

	rw, err := RandomWalk(10, 1, 0, NewRand(1))
	require.NoError(t, err)
	assert.InDelta(t, 10, rw.Value(9, 0), 1e-12)
}
