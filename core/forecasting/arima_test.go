package forecasting

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forecast/core/timeseries"
)

func ar1(t *testing.T, n int, phi float64, seed uint64) *timeseries.TimeSeries {
	t.Helper()
	rng := timeseries.NewRand(seed)
	vals := make([]float64, n)
	for i := 1; i < n; i++ {
		vals[i] = phi*vals[i-1] + rng.NormFloat64()
	}
	ts, err := timeseries.FromValues(vals)
	require.NoError(t, err)
	return ts
}

func TestARIMA_EstimatesAR1(t *testing.T) {
	m, err := NewARIMA(ARIMAParams{P: 1})
	require.NoError(t, err)
	require.NoError(t, m.Fit(context.Background(), ar1(t, 500, 0.6, 11)))
	mean, phi, theta := m.Coefficients()
	require.Len(t, phi, 1)
	assert.Empty(t, theta)
	assert.InDelta(t, 0.6, phi[0], 0.1)
	assert.InDelta(t, 0, mean, 0.5)
}

func TestARIMA_IntegratesTrend(t *testing.T) {
	ctx := context.Background()
	m, err := NewARIMA(ARIMAParams{P: 1, D: 1})
	require.NoError(t, err)
	require.NoError(t, m.Fit(ctx, linearSeries(t, 30, 0, 58)))

	pred, err := m.Predict(ctx, 3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{60, 62, 64}, pred.Component(0), 1e-6)
}

func TestARIMA_Samples(t *testing.T) {
	ctx := context.Background()
	seed := uint64(3)
	m, err := NewARIMA(ARIMAParams{P: 1, Q: 1, RandomState: &seed})
	require.NoError(t, err)
	require.NoError(t, m.Fit(ctx, ar1(t, 200, 0.3, 2)))

	p1, err := m.Predict(ctx, 5, WithNumSamples(20))
	require.NoError(t, err)
	assert.Equal(t, 20, p1.NumSamples())
	p2, err := m.Predict(ctx, 5, WithNumSamples(20))
	require.NoError(t, err)
	assert.False(t, p1.Equal(p2))
}

func TestARIMA_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := NewARIMA(ARIMAParams{P: -1})
	assert.ErrorIs(t, err, ErrInvalidParams)

	m, err := NewARIMA(DefaultARIMAParams())
	require.NoError(t, err)
	assert.Equal(t, "ARIMA(p=12, d=1, q=0)", m.String())
	assert.ErrorIs(t, m.Fit(ctx, linearSeries(t, 20, 0, 1)), ErrNotEnoughData)
	_, err = m.Predict(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFitted)
}
