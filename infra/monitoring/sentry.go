// Package monitoring sends forecasting failures to Sentry.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/forecast/config"
	coremon "github.com/kilianp07/forecast/core/monitoring"
)

// configure adjusts the client options before Init; tests replace it.
var configure = func(*sentry.ClientOptions) {}

// NewSentryMonitor initializes the Sentry client from cfg. The configured
// tags are set on every report. An empty DSN returns a NopMonitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	cfg.SetDefaults()
	opts := sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       cfg.SampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
	}
	configure(&opts)
	if err := sentry.Init(opts); err != nil {
		return nil, err
	}
	if len(cfg.Tags) > 0 {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTags(cfg.Tags)
		})
	}
	return &sentryMonitor{}, nil
}

type sentryMonitor struct{}

func (m *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

func (m *sentryMonitor) CapturePanic(v any) {
	sentry.CurrentHub().Recover(v)
}

func (m *sentryMonitor) Flush(timeout time.Duration) { sentry.Flush(timeout) }
