package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/core/roster"
)

var (
	march = model.YearMonth{Year: 2026, Month: time.March}
	april = model.YearMonth{Year: 2026, Month: time.April}
)

func day(ym model.YearMonth, d int) model.Date { return model.NewDate(ym.Year, ym.Month, d) }

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "rota.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRun(id string, finished time.Time) *roster.Run {
	st := roster.NewState()
	st.Fairness = roster.FairnessState{"A": {ActualFree: 3, TargetFree: 4}}
	st.Carry = roster.OverlapCarry{"B": {day(april, 1)}}
	return &roster.Run{
		ID:   id,
		From: march,
		To:   april,
		Months: []roster.MonthResult{
			{
				Month:      march,
				Status:     roster.MonthSolved,
				Phase:      roster.PhaseSoft,
				Separation: 2,
				Shifts: map[model.Date][]string{
					day(march, 30): {"A"},
					day(march, 31): {"B"},
				},
				BaseObjective: 500,
				Attempts:      []roster.Attempt{{}, {}},
			},
			{
				Month:    april,
				Status:   roster.MonthInfeasible,
				Attempts: []roster.Attempt{{}},
				Diagnostics: &roster.Diagnostics{Conflicts: []roster.Conflict{
					{WorkerID: "A", Date: day(april, 2)},
				}},
			},
		},
		State:    st,
		Started:  finished.Add(-time.Second),
		Finished: finished,
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(ctx, testRun("run1", now)))

	r, err := s.Run(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, RunSummary{ID: "run1", From: march, To: april, Started: now.Add(-time.Second), Finished: now, Solved: 1, Infeasible: 1}, r)

	shifts, err := s.Shifts(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, []model.Assignment{
		{WorkerID: "A", Date: day(march, 30)},
		{WorkerID: "B", Date: day(march, 31)},
	}, shifts)

	months, err := s.Months(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, months, 2)
	assert.Equal(t, "soft", months[0].Phase)
	assert.Equal(t, 2, months[0].Separation)
	assert.Equal(t, 500.0, months[0].BaseObjective)
	assert.Equal(t, 2, months[0].Attempts)
	assert.Empty(t, months[0].Conflicts)
	assert.Equal(t, "infeasible", months[1].Status)
	assert.Equal(t, []roster.Conflict{{WorkerID: "A", Date: day(april, 2)}}, months[1].Conflicts)

	st, err := s.State(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, roster.FairnessTotals{ActualFree: 3, TargetFree: 4}, st.Fairness["A"])
	assert.Equal(t, []model.Date{day(april, 1)}, st.Carry.Dates("B"))

	// Saving again replaces the run.
	require.NoError(t, s.SaveRun(ctx, testRun("run1", now)))
	shifts, err = s.Shifts(ctx, "run1")
	require.NoError(t, err)
	assert.Len(t, shifts, 2)
}

func TestDetailAndLatest(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	_, err := s.Latest(ctx)
	assert.ErrorIs(t, err, ErrRunNotFound)

	now := time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(ctx, testRun("old", now)))
	require.NoError(t, s.SaveRun(ctx, testRun("new", now.Add(time.Hour))))

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)

	d, err := s.Detail(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, "old", d.Run.ID)
	assert.Len(t, d.Months, 2)
	assert.Len(t, d.Shifts, 2)

	_, err = s.Detail(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunNotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.State(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunsAndHistory(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	old := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(ctx, testRun("old", old)))

	newer := testRun("new", old.Add(time.Hour))
	newer.Months[0].Shifts = map[model.Date][]string{day(march, 29): {"B"}}
	require.NoError(t, s.SaveRun(ctx, newer))

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)

	h, err := s.History(ctx, april, 3)
	require.NoError(t, err)
	assert.Equal(t, []model.Assignment{{WorkerID: "B", Date: day(march, 29)}}, h)

	h, err = s.History(ctx, april, 1)
	require.NoError(t, err)
	// Only the older run has a shift on March 31.
	assert.Equal(t, []model.Assignment{{WorkerID: "B", Date: day(march, 31)}}, h)

	h, err = s.History(ctx, march, 5)
	require.NoError(t, err)
	assert.Empty(t, h)

	h, err = s.History(ctx, april, 0)
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestPinnedShifts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Pin(ctx, model.MandatoryShift{WorkerID: "B", Date: day(march, 5)}))
	require.NoError(t, s.Pin(ctx, model.MandatoryShift{WorkerID: "A", Date: day(march, 5)}))
	require.NoError(t, s.Pin(ctx, model.MandatoryShift{WorkerID: "A", Date: day(march, 1)}))
	require.NoError(t, s.Pin(ctx, model.MandatoryShift{WorkerID: "A", Date: day(march, 1)}))
	assert.Error(t, s.Pin(ctx, model.MandatoryShift{WorkerID: "A"}))

	pinned, err := s.Pinned(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.MandatoryShift{
		{WorkerID: "A", Date: day(march, 1)},
		{WorkerID: "A", Date: day(march, 5)},
		{WorkerID: "B", Date: day(march, 5)},
	}, pinned)

	ok, err := s.Unpin(ctx, model.MandatoryShift{WorkerID: "A", Date: day(march, 5)})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Unpin(ctx, model.MandatoryShift{WorkerID: "A", Date: day(march, 5)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ", nil)
	assert.Error(t, err)
}
