package roster

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rota/core/metrics"
	"github.com/kilianp07/rota/core/model"
)

// Run is the outcome of a multi-month generation.
type Run struct {
	ID       string          `json:"id"`
	From     model.YearMonth `json:"from"`
	To       model.YearMonth `json:"to"`
	Months   []MonthResult   `json:"months"`
	State    State           `json:"state"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
}

// Solved returns the number of solved months.
func (r *Run) Solved() int {
	n := 0
	for _, m := range r.Months {
		if m.Status == MonthSolved {
			n++
		}
	}
	return n
}

// Infeasible returns the results of the unresolved months.
func (r *Run) Infeasible() []MonthResult {
	var out []MonthResult
	for _, m := range r.Months {
		if m.Status == MonthInfeasible {
			out = append(out, m)
		}
	}
	return out
}

// Assignments returns every accepted shift of the run in date order.
func (r *Run) Assignments() []model.Assignment {
	var out []model.Assignment
	for _, m := range r.Months {
		out = append(out, m.Assignments()...)
	}
	return out
}

// Generate solves every month from from to to, in order. The roster and
// configuration are validated before the first solve. Unresolved months are
// reported in the run and the next month starts without carry. Each month
// keeps its separation distance from the shifts accepted for the month
// before it, or from the roster history for the first month. A solver
// failure stops the run; the months completed so far are returned with the
// *SolverError.
func (e *Engine) Generate(ctx context.Context, r model.Roster, from, to model.YearMonth) (*Run, error) {
	if err := r.Validate(); err != nil {
		return nil, &ConfigError{Field: "roster", Reason: err.Error()}
	}
	if to.Before(from) {
		return nil, &ConfigError{Field: "range", Reason: from.String() + " is after " + to.String()}
	}
	months := model.MonthRange(from, to)
	run := &Run{ID: uuid.NewString(), From: from, To: to, State: NewState(), Started: e.now()}
	e.logger.Infof("run %s: generating %d months from %s to %s", run.ID, len(months), from, to)

	var runErr error
	history := r.History
	next := Extract(r, months[0])
	for i, ym := range months {
		cur := next
		in := MonthInput{Current: cur, History: history}
		if i+1 < len(months) {
			next = Extract(r, months[i+1])
			in.Next = &next
		}
		e.publish(Event{Kind: EventMonthStarted, RunID: run.ID, Month: ym})

		res, st, err := e.SolveMonth(ctx, run.State, in)
		if err != nil {
			runErr = err
			break
		}
		run.State = st
		run.Months = append(run.Months, res)
		history = res.Assignments()
		e.recordMonth(run.ID, res, st.Fairness)

		kind := EventMonthSolved
		if res.Status == MonthInfeasible {
			kind = EventMonthInfeasible
		}
		e.publish(Event{Kind: kind, RunID: run.ID, Month: ym, Result: &run.Months[len(run.Months)-1]})
	}

	run.Finished = e.now()
	e.recordRun(run, runErr != nil)
	e.publish(Event{Kind: EventRunFinished, RunID: run.ID, Err: runErr})
	if runErr != nil {
		e.logger.Errorf("run %s aborted: %v", run.ID, runErr)
		return run, runErr
	}
	e.logger.Infof("run %s finished: %d solved, %d infeasible", run.ID, run.Solved(), len(run.Infeasible()))
	return run, nil
}

func (e *Engine) publish(ev Event) {
	if e.bus == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = e.now()
	}
	e.bus.Publish(ev)
}

func (e *Engine) recordMonth(runID string, res MonthResult, fair FairnessState) {
	rec := metrics.MonthRecord{
		RunID:             runID,
		Month:             res.Month,
		Status:            metrics.StatusSolved,
		Attempts:          len(res.Attempts),
		Nodes:             res.Nodes(),
		Duration:          res.Duration(),
		Assignments:       len(res.Assignments()),
		BaseObjective:     res.BaseObjective,
		FairnessObjective: res.FairnessObjective,
		Time:              e.now(),
	}
	if res.Status == MonthInfeasible {
		rec.Status = metrics.StatusInfeasible
		if res.Diagnostics != nil {
			rec.Conflicts = len(res.Diagnostics.Conflicts)
		}
	} else {
		rec.Phase = res.Phase.String()
		rec.Separation = res.Separation
	}
	var errs []error
	errs = append(errs, e.metrics.RecordMonth(rec))
	if fr, ok := e.metrics.(metrics.FairnessRecorder); ok && res.Status == MonthSolved {
		errs = append(errs, fr.RecordFairness(fairnessRecords(runID, res.Month, fair)))
	}
	if err := errors.Join(errs...); err != nil {
		e.logger.Errorf("metrics error: %v", err)
	}
}

func fairnessRecords(runID string, ym model.YearMonth, fair FairnessState) []metrics.FairnessRecord {
	ids := make([]string, 0, len(fair))
	for id := range fair {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]metrics.FairnessRecord, 0, len(ids))
	for _, id := range ids {
		t := fair[id]
		out = append(out, metrics.FairnessRecord{RunID: runID, Month: ym, WorkerID: id, ActualFree: t.ActualFree, TargetFree: t.TargetFree})
	}
	return out
}

func (e *Engine) recordRun(run *Run, failed bool) {
	rr, ok := e.metrics.(metrics.RunRecorder)
	if !ok {
		return
	}
	rec := metrics.RunRecord{
		RunID:      run.ID,
		From:       run.From,
		To:         run.To,
		Solved:     run.Solved(),
		Infeasible: len(run.Infeasible()),
		Duration:   run.Finished.Sub(run.Started),
		Failed:     failed,
		Time:       run.Finished,
	}
	if err := rr.RecordRun(rec); err != nil {
		e.logger.Errorf("metrics error: %v", err)
	}
}
