// Package monitoring reports forecasting failures to an error tracker. Until
// Init installs a tracker, reports are discarded.
package monitoring

import "time"

// Monitor receives failures with their tags.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

// NopMonitor discards every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                         {}
func (NopMonitor) Flush(time.Duration)                       {}

// Tag keys set from a Scope.
const (
	TagComponent = "component"
	TagModel     = "model"
	TagDataset   = "dataset"
	TagRunID     = "run_id"
)

// Scope locates a failure: the component that failed and, when known, the
// model, dataset and run involved.
type Scope struct {
	Component string
	Model     string
	Dataset   string
	RunID     string
}

// Tags returns the non-empty fields keyed by their tag name.
func (s Scope) Tags() map[string]string {
	tags := make(map[string]string, 4)
	for k, v := range map[string]string{
		TagComponent: s.Component,
		TagModel:     s.Model,
		TagDataset:   s.Dataset,
		TagRunID:     s.RunID,
	} {
		if v != "" {
			tags[k] = v
		}
	}
	return tags
}

var current Monitor = NopMonitor{}

// Init installs m. A nil monitor keeps the current one.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// Capture reports err tagged with s. A nil error is ignored.
func Capture(err error, s Scope) {
	if err == nil {
		return
	}
	current.CaptureException(err, s.Tags())
}

// CaptureException reports err with free-form tags.
func CaptureException(err error, tags map[string]string) {
	current.CaptureException(err, tags)
}

// Recover reports a panic, flushes and re-panics. It must be deferred
// directly.
func Recover() {
	if r := recover(); r != nil {
		current.CapturePanic(r)
		current.Flush(2 * time.Second)
		panic(r)
	}
}

// Flush waits up to d for pending reports.
func Flush(d time.Duration) {
	current.Flush(d)
}
