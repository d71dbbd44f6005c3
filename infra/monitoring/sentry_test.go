package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremon "github.com/kilianp07/rota/core/monitoring"
)

func TestNewSentryReporterDisabled(t *testing.T) {
	r, err := NewSentryReporter(Config{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopReporter{}, r)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{SampleRate: 0.5}.Validate())
	assert.Error(t, Config{SampleRate: 2}.Validate())
}

func TestSentryReporterTags(t *testing.T) {
	var mu sync.Mutex
	var events []*sentry.Event
	r, err := newSentryReporter(Config{DSN: "https://public@sentry.example.com/1", Environment: "test"},
		func(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)

	r.Report(errors.New("solver timeout"), map[string]string{"month": "2026-03", "phase": "soft"})
	r.Report(errors.New("untagged"), nil)
	r.Report(nil, nil)
	r.ReportPanic("boom")
	r.Flush(time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 3)
	assert.Equal(t, "2026-03", events[0].Tags["month"])
	assert.Equal(t, "soft", events[0].Tags["phase"])
	assert.Equal(t, "test", events[0].Environment)
	assert.NotContains(t, events[1].Tags, "month")
}

func TestInvalidDSN(t *testing.T) {
	_, err := NewSentryReporter(Config{DSN: "not a dsn"})
	assert.Error(t, err)
}
