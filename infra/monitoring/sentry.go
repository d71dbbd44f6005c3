// Package monitoring reports run failures to Sentry.
package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	coremon "github.com/kilianp07/rota/core/monitoring"
)

// Config selects the Sentry project. An empty DSN disables reporting.
type Config struct {
	DSN         string  `json:"dsn"`
	Environment string  `json:"environment"`
	Release     string  `json:"release"`
	SampleRate  float64 `json:"sample_rate"`
}

// Enabled reports whether a DSN is configured.
func (c Config) Enabled() bool { return c.DSN != "" }

// Validate checks the sample rate.
func (c Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be within [0, 1], got %g", c.SampleRate)
	}
	return nil
}

// NewSentryReporter initializes the Sentry client. Without a DSN it returns
// a no-op reporter.
func NewSentryReporter(cfg Config) (coremon.Reporter, error) {
	return newSentryReporter(cfg, nil)
}

func newSentryReporter(cfg Config, beforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event) (coremon.Reporter, error) {
	if !cfg.Enabled() {
		return coremon.NopReporter{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  cfg.SampleRate,
		BeforeSend:  beforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return sentryReporter{}, nil
}

type sentryReporter struct{}

func (sentryReporter) Report(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		sentry.CaptureException(err)
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		sentry.CaptureException(err)
	})
}

func (sentryReporter) ReportPanic(v any) { sentry.CurrentHub().Recover(v) }

func (sentryReporter) Flush(timeout time.Duration) bool { return sentry.Flush(timeout) }
