package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/forecast/core/metrics"
)

func TestPromSink_RecordScore(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordScore(coremetrics.ScoreEvent{Model: "rf", Dataset: "sine", Metric: "rho_risk", Quantile: 0.9, Value: 0.2}))
	require.NoError(t, sink.RecordScore(coremetrics.ScoreEvent{Model: "rf", Dataset: "sine", Metric: "rho_risk", Quantile: 0.9, Value: 0.25}))

	expected := `
# HELP forecast_score Latest accuracy score per model, dataset, metric and quantile
# TYPE forecast_score gauge
forecast_score{dataset="sine",metric="rho_risk",model="rf",quantile="0.9"} 0.25
`
	assert.NoError(t, testutil.CollectAndCompare(sink.scores, strings.NewReader(expected)))
}

func TestPromSink_RecordFitPredictCheck(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordFit(coremetrics.FitEvent{Model: "rf", Duration: 20 * time.Millisecond}))
	require.NoError(t, sink.RecordPredict(coremetrics.PredictEvent{Model: "rf", Duration: time.Millisecond, Err: "boom"}))
	require.NoError(t, sink.RecordCheck(coremetrics.CheckEvent{Case: "rf", Check: "accuracy", Passed: true}))
	require.NoError(t, sink.RecordCheck(coremetrics.CheckEvent{Case: "rf", Check: "accuracy", Passed: true}))

	assert.Equal(t, 1, testutil.CollectAndCount(sink.fits))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.predict))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.checks.WithLabelValues("rf", "accuracy", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.errors.WithLabelValues("rf", "predict")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.errors))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	assert.Same(t, a.scores, b.scores)
	assert.Same(t, a.checks, b.checks)
}
