// Package datasource loads observed series from files.
package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/forecast/core/timeseries"
)

// ErrIrregular is returned when timestamps are not evenly spaced.
var ErrIrregular = errors.New("datasource: irregular time index")

// Config describes a CSV file with a header row.
type Config struct {
	Path string `json:"path"`
	// TimeColumn names the timestamp column. When empty the rows are
	// indexed from timeseries.DefaultStart with Freq.
	TimeColumn string `json:"time_column"`
	// TimeFormat is a time layout; "unix" reads seconds since the epoch.
	TimeFormat string `json:"time_format"`
	// Columns selects the value columns; all non-time columns by default.
	Columns []string `json:"columns"`
	// Freq is used when there is no time column.
	Freq time.Duration `json:"freq"`
	// Comma is the field delimiter.
	Comma string `json:"comma"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TimeFormat == "" {
		c.TimeFormat = time.RFC3339
	}
	if c.Freq <= 0 {
		c.Freq = timeseries.DefaultFreq
	}
	if c.Comma == "" {
		c.Comma = ","
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("datasource: path is required")
	}
	if len([]rune(c.Comma)) != 1 {
		return fmt.Errorf("datasource: comma must be a single character, got %q", c.Comma)
	}
	return nil
}

// Load reads the series described by cfg.
func Load(cfg Config) (*timeseries.TimeSeries, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ts, err := ReadCSV(f, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Path, err)
	}
	return ts, nil
}

// ReadCSV parses a CSV document into a deterministic series. The time
// index must be regular.
func ReadCSV(r io.Reader, cfg Config) (*timeseries.TimeSeries, error) {
	cfg.SetDefaults()
	cr := csv.NewReader(r)
	cr.Comma = []rune(cfg.Comma)[0]
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	timeIdx := -1
	if cfg.TimeColumn != "" {
		if timeIdx = slices.Index(header, cfg.TimeColumn); timeIdx < 0 {
			return nil, fmt.Errorf("time column %q not found", cfg.TimeColumn)
		}
	}
	names := cfg.Columns
	if len(names) == 0 {
		for i, h := range header {
			if i != timeIdx {
				names = append(names, h)
			}
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no value columns")
	}
	cols := make([]int, len(names))
	for i, n := range names {
		if cols[i] = slices.Index(header, n); cols[i] < 0 {
			return nil, fmt.Errorf("column %q not found", n)
		}
	}

	var (
		values [][]float64
		stamps []time.Time
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(cols))
		for i, c := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, names[i], err)
			}
			row[i] = v
		}
		values = append(values, row)
		if timeIdx >= 0 {
			t, err := parseTime(strings.TrimSpace(rec[timeIdx]), cfg.TimeFormat)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			stamps = append(stamps, t)
		}
	}
	if len(values) == 0 {
		return nil, timeseries.ErrEmpty
	}

	start, freq := timeseries.DefaultStart, cfg.Freq
	if timeIdx >= 0 {
		start = stamps[0]
		if len(stamps) > 1 {
			freq = stamps[1].Sub(stamps[0])
		}
		for i := 1; i < len(stamps); i++ {
			if d := stamps[i].Sub(stamps[i-1]); d != freq || d <= 0 {
				return nil, fmt.Errorf("%w: step %d is %s, expected %s", ErrIrregular, i, d, freq)
			}
		}
	}
	return timeseries.New(start, freq, names, values)
}

func parseTime(s, layout string) (time.Time, error) {
	if layout == "unix" {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Parse(layout, s)
}
