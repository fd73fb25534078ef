package evaluation

import (
	"context"
	"errors"
	"sort"
	"time"
)

// Check names.
const (
	CheckDeterminism = "determinism"
	CheckAccuracy    = "accuracy"
	CheckRisk        = "risk"
)

// Score is one metric value computed during a check.
type Score struct {
	Metric   string  `json:"metric"`
	Quantile float64 `json:"quantile"`
	Value    float64 `json:"value"`
}

// Result is the outcome of one check of one case on one dataset.
type Result struct {
	Case     string        `json:"case"`
	Model    string        `json:"model"`
	Dataset  string        `json:"dataset"`
	Check    string        `json:"check"`
	Passed   bool          `json:"passed"`
	Scores   []Score       `json:"scores,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report groups the results of a harness run.
type Report struct {
	RunID    string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Results  []Result  `json:"results"`
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failed results.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// ErrNotFound is returned by stores when no report matches.
var ErrNotFound = errors.New("evaluation: report not found")

// Query selects stored reports. Zero fields match everything; Limit 0
// returns all matches, newest first.
type Query struct {
	RunID string
	Case  string
	Since time.Time
	Limit int
}

// Store persists harness reports.
type Store interface {
	Save(ctx context.Context, r Report) error
	Query(ctx context.Context, q Query) ([]Report, error)
	Close() error
}

// Filter applies the case filter of q to a report. It returns false when no
// result remains.
func (q Query) Filter(r Report) (Report, bool) {
	if q.RunID != "" && r.RunID != q.RunID {
		return Report{}, false
	}
	if !q.Since.IsZero() && r.Started.Before(q.Since) {
		return Report{}, false
	}
	if q.Case == "" {
		return r, true
	}
	var kept []Result
	for _, res := range r.Results {
		if res.Case == q.Case {
			kept = append(kept, res)
		}
	}
	if len(kept) == 0 {
		return Report{}, false
	}
	r.Results = kept
	return r, true
}

// Select filters reports with q, orders them newest first and applies the
// limit. A query by run ID that matches nothing yields ErrNotFound.
func (q Query) Select(reports []Report) ([]Report, error) {
	var out []Report
	for _, r := range reports {
		if kept, ok := q.Filter(r); ok {
			out = append(out, kept)
		}
	}
	if len(out) == 0 && q.RunID != "" {
		return nil, ErrNotFound
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Started.After(out[j].Started) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}
