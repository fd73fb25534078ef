package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forecast/core/timeseries"
)

func stochastic(t *testing.T) *timeseries.TimeSeries {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts, err := timeseries.NewStochastic(start, time.Hour, []string{"load"}, [][][]float64{
		{{1, 2, 3, 4, 5}},
		{{10, 10, 10, 10, 10}},
	})
	require.NoError(t, err)
	return ts
}

func TestSummarize(t *testing.T) {
	rows, err := Summarize(stochastic(t), []float64{0, 0.5, 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "load", rows[0].Component)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rows[0].Time)
	assert.InDelta(t, 3, rows[0].Mean, 1e-12)
	assert.Equal(t, []Quantile{{0, 1}, {0.5, 3}, {1, 5}}, rows[0].Quantiles)

	assert.Equal(t, time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC), rows[1].Time)
	for _, q := range rows[1].Quantiles {
		assert.Equal(t, 10.0, q.Value)
	}
}

func TestSummarizeDefaultsAndErrors(t *testing.T) {
	rows, err := Summarize(stochastic(t), nil)
	require.NoError(t, err)
	assert.Len(t, rows[0].Quantiles, len(DefaultQuantiles))

	_, err = Summarize(stochastic(t), []float64{1.5})
	assert.ErrorIs(t, err, timeseries.ErrInvalidQuantile)

	_, err = Summarize(nil, nil)
	assert.ErrorIs(t, err, timeseries.ErrEmpty)
}

func TestWriteCSV(t *testing.T) {
	rows, err := Summarize(stochastic(t), []float64{0.5})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "time,component,mean,q0.5", lines[0])
	assert.Equal(t, "2024-01-01T00:00:00Z,load,3,3", lines[1])
	assert.Equal(t, "2024-01-01T01:00:00Z,load,10,10", lines[2])
}

func TestWriteCSVRejectsRaggedRows(t *testing.T) {
	rows := []Row{
		{Component: "a", Quantiles: []Quantile{{0.5, 1}}},
		{Component: "a"},
	}
	assert.Error(t, WriteCSV(&bytes.Buffer{}, rows))
}

func TestWriteJSON(t *testing.T) {
	rows, err := Summarize(stochastic(t), []float64{0.5})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rows))
	var back []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, rows, back)
}
