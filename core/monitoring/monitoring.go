// Package monitoring forwards run failures to an error tracker. The
// process-wide reporter defaults to a no-op until SetReporter is called.
package monitoring

import (
	"sync"
	"time"
)

// Reporter receives errors that end a run.
type Reporter interface {
	Report(err error, tags map[string]string)
	ReportPanic(v any)
	Flush(timeout time.Duration) bool
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(error, map[string]string) {}
func (NopReporter) ReportPanic(any)                 {}
func (NopReporter) Flush(time.Duration) bool        { return true }

var (
	mu      sync.RWMutex
	current Reporter = NopReporter{}
)

// SetReporter installs r; nil restores the no-op reporter.
func SetReporter(r Reporter) {
	if r == nil {
		r = NopReporter{}
	}
	mu.Lock()
	current = r
	mu.Unlock()
}

func reporter() Reporter {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Report forwards err with tags. Nil errors are ignored.
func Report(err error, tags map[string]string) {
	if err != nil {
		reporter().Report(err, tags)
	}
}

// Recover is deferred at the top of goroutines. It reports a panic in
// progress, flushes and panics again.
func Recover() {
	if v := recover(); v != nil {
		r := reporter()
		r.ReportPanic(v)
		r.Flush(2 * time.Second)
		panic(v)
	}
}

// Flush waits up to timeout for buffered reports.
func Flush(timeout time.Duration) bool { return reporter().Flush(timeout) }
