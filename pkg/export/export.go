// Package export renders forecasts as quantile summaries in JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/forecast/core/timeseries"
)

// DefaultQuantiles are the summary quantiles used when none are given.
var DefaultQuantiles = []float64{0.05, 0.5, 0.95}

// Quantile is one summary quantile of a forecast step.
type Quantile struct {
	Q     float64 `json:"q"`
	Value float64 `json:"value"`
}

// Row summarises the samples of one component at one time step.
type Row struct {
	Time      time.Time  `json:"time"`
	Component string     `json:"component"`
	Mean      float64    `json:"mean"`
	Quantiles []Quantile `json:"quantiles"`
}

// Summarize returns one row per time step and component with the sample
// mean and the requested quantiles. Deterministic series report their
// value for every quantile.
func Summarize(ts *timeseries.TimeSeries, quantiles []float64) ([]Row, error) {
	if ts == nil {
		return nil, timeseries.ErrEmpty
	}
	if len(quantiles) == 0 {
		quantiles = DefaultQuantiles
	}
	for _, q := range quantiles {
		if q < 0 || q > 1 {
			return nil, fmt.Errorf("%w: %v", timeseries.ErrInvalidQuantile, q)
		}
	}
	names := ts.Components()
	rows := make([]Row, 0, ts.Len()*ts.Width())
	for t := 0; t < ts.Len(); t++ {
		for c := 0; c < ts.Width(); c++ {
			s := ts.Samples(t, c)
			sort.Float64s(s)
			row := Row{Time: ts.TimeAt(t), Component: names[c], Mean: stat.Mean(s, nil)}
			for _, q := range quantiles {
				row.Quantiles = append(row.Quantiles, Quantile{Q: q, Value: timeseries.QuantileSorted(s, q)})
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// WriteJSON writes the summary rows to w in JSON format.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteCSV writes the summary rows to w in CSV format, one column per
// quantile. Rows must share the quantiles of the first row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	header := []string{"time", "component", "mean"}
	if len(rows) > 0 {
		for _, q := range rows[0].Quantiles {
			header = append(header, "q"+formatFloat(q.Q))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if len(r.Quantiles) != len(header)-3 {
			return fmt.Errorf("export: row %s/%s has %d quantiles, header has %d",
				r.Time.Format(time.RFC3339), r.Component, len(r.Quantiles), len(header)-3)
		}
		rec := []string{r.Time.Format(time.RFC3339), r.Component, formatFloat(r.Mean)}
		for _, q := range r.Quantiles {
			rec = append(rec, formatFloat(q.Value))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
