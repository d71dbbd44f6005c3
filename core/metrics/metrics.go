package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/rota/core/model"
)

// Month outcomes.
const (
	StatusSolved     = "solved"
	StatusInfeasible = "infeasible"
)

// MonthRecord summarizes the solve of one month.
type MonthRecord struct {
	RunID  string
	Month  model.YearMonth
	Status string
	// Phase and Separation describe the accepted trial; they are empty for
	// infeasible months.
	Phase             string
	Separation        int
	Attempts          int
	Nodes             int
	Duration          time.Duration
	Assignments       int
	BaseObjective     float64
	FairnessObjective float64
	Conflicts         int
	Time              time.Time
}

// MetricsSink records month outcomes for observability purposes.
type MetricsSink interface {
	RecordMonth(rec MonthRecord) error
}

// RunRecord summarizes a whole generation run.
type RunRecord struct {
	RunID      string
	From       model.YearMonth
	To         model.YearMonth
	Solved     int
	Infeasible int
	Duration   time.Duration
	Failed     bool
	Time       time.Time
}

// RunRecorder records run summaries.
type RunRecorder interface {
	RecordRun(rec RunRecord) error
}

// FairnessRecord is a worker's running free-shift totals after a month.
type FairnessRecord struct {
	RunID      string
	Month      model.YearMonth
	WorkerID   string
	ActualFree float64
	TargetFree float64
}

// FairnessRecorder records the fairness ledger.
type FairnessRecorder interface {
	RecordFairness(recs []FairnessRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordMonth(MonthRecord) error         { return nil }
func (NopSink) RecordRun(RunRecord) error             { return nil }
func (NopSink) RecordFairness([]FairnessRecord) error { return nil }

// MultiSink fans records out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordMonth forwards the record to all sinks.
func (m *MultiSink) RecordMonth(rec MonthRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordMonth(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordRun forwards the summary to sinks implementing RunRecorder.
func (m *MultiSink) RecordRun(rec RunRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RunRecorder); ok {
			if err := r.RecordRun(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordFairness forwards the ledger to sinks implementing FairnessRecorder.
func (m *MultiSink) RecordFairness(recs []FairnessRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(FairnessRecorder); ok {
			if err := r.RecordFairness(recs); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
