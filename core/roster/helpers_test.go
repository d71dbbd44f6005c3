package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rota/core/model"
)

var (
	march = model.YearMonth{Year: 2026, Month: time.March}
	april = model.YearMonth{Year: 2026, Month: time.April}
)

func day(ym model.YearMonth, d int) model.Date { return model.NewDate(ym.Year, ym.Month, d) }

func testWorker(id string, min, max int) model.Worker {
	return model.Worker{
		ID:           id,
		Shifts:       model.Limits{Min: min, Max: max},
		Weekends:     model.Limits{Min: 0, Max: 31},
		CanSupervise: true,
	}
}

func workerMonth(id string, min, max int) WorkerMonth {
	w := testWorker(id, min, max)
	return WorkerMonth{
		Worker:   w,
		Shifts:   w.Shifts,
		Weekends: w.Weekends,
		ConstraintSet: ConstraintSet{
			Mandatory:   DateSet{},
			Unavailable: DateSet{},
			Liked:       DateSet{},
			Disliked:    DateSet{},
		},
	}
}

// shortMonth restricts ym to its first n days.
func shortMonth(ym model.YearMonth, n int, workers ...WorkerMonth) MonthConstraints {
	return MonthConstraints{Month: ym, Days: ym.Days()[:n], Workers: workers}
}

// tailMonth restricts ym to its last n days.
func tailMonth(ym model.YearMonth, n int, workers ...WorkerMonth) MonthConstraints {
	days := ym.Days()
	return MonthConstraints{Month: ym, Days: days[len(days)-n:], Workers: workers}
}

func testConfig(s1, s2 int, candidates ...int) Config {
	c := DefaultConfig()
	c.StaffMin, c.StaffMax = s1, s2
	c.SeparationCandidates = candidates
	return c
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, nil, nil, nil, nil)
	require.NoError(t, err)
	return e
}

// workerDays returns the days each worker is assigned in res.
func workerDays(res MonthResult) map[string][]model.Date {
	out := make(map[string][]model.Date)
	for _, a := range res.Assignments() {
		out[a.WorkerID] = append(out[a.WorkerID], a.Date)
	}
	return out
}

// requireSchedule checks the hard rules of a solved month.
func requireSchedule(t *testing.T, res MonthResult, in MonthConstraints, cfg Config, hardLimits bool) {
	t.Helper()
	require.Equal(t, MonthSolved, res.Status)
	require.Len(t, res.Shifts, len(in.Days))
	for _, d := range in.Days {
		n := len(res.Shifts[d])
		require.GreaterOrEqual(t, n, cfg.StaffMin, "band min on %s", d)
		require.LessOrEqual(t, n, cfg.StaffMax, "band max on %s", d)
	}
	days := workerDays(res)
	for _, w := range in.Workers {
		got := NewDateSet(days[w.Worker.ID]...)
		for d := range w.Mandatory {
			require.True(t, got.Has(d), "%s must work %s", w.Worker.ID, d)
		}
		for d := range w.Unavailable {
			require.False(t, got.Has(d), "%s cannot work %s", w.Worker.ID, d)
		}
		ds := days[w.Worker.ID]
		for i := 1; i < len(ds); i++ {
			require.Greater(t, ds[i].Sub(ds[i-1]), res.Separation, "%s works %s and %s", w.Worker.ID, ds[i-1], ds[i])
		}
		if hardLimits {
			require.GreaterOrEqual(t, len(ds), w.Shifts.Min, "%s min shifts", w.Worker.ID)
			require.LessOrEqual(t, len(ds), w.Shifts.Max, "%s max shifts", w.Worker.ID)
		}
	}
}
