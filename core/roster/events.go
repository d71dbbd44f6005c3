package roster

import (
	"time"

	"github.com/kilianp07/rota/core/model"
)

// EventKind identifies a progress event of a run.
type EventKind int

const (
	EventMonthStarted EventKind = iota
	EventMonthSolved
	EventMonthInfeasible
	EventRunFinished
)

func (k EventKind) String() string {
	switch k {
	case EventMonthStarted:
		return "month_started"
	case EventMonthSolved:
		return "month_solved"
	case EventMonthInfeasible:
		return "month_infeasible"
	case EventRunFinished:
		return "run_finished"
	default:
		return "unknown"
	}
}

// Event reports run progress. Result is set for month outcomes; Err is set
// when a run ends on a solver failure.
type Event struct {
	Kind   EventKind
	RunID  string
	Month  model.YearMonth
	Result *MonthResult
	Err    error
	Time   time.Time
}
