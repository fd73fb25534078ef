package events

import (
	"time"

	"github.com/kilianp07/forecast/core/timeseries"
)

// Score is an accuracy metric of a forecast at a quantile or rho.
type Score struct {
	Metric   string  `json:"metric"`
	Quantile float64 `json:"quantile"`
	Value    float64 `json:"value"`
}

// ForecastEvent is published once a forecast has been produced.
type ForecastEvent struct {
	RunID    string
	Model    string
	Dataset  string
	Forecast *timeseries.TimeSeries
	// Scores is empty when no held-out observations were available.
	Scores []Score
	Time   time.Time
}
