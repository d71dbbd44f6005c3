package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rota/core/model"
)

func sixWorkerRoster() model.Roster {
	var workers []model.Worker
	for _, id := range []string{"A", "B", "C", "D", "E", "F"} {
		workers = append(workers, testWorker(id, 8, 12))
	}
	workers[5].Category = model.Junior
	workers[5].CanSupervise = false
	return model.Roster{
		Workers: workers,
		Leaves: []model.Leave{
			{WorkerID: "A", Date: day(march, 10), Kind: model.LeaveVacation},
			{WorkerID: "E", Date: day(april, 14), Kind: model.LeaveSkip},
		},
		Preferences: []model.Preference{
			{WorkerID: "C", Date: day(march, 7), Kind: model.Prefer},
			{WorkerID: "C", Date: day(march, 8), Kind: model.PreferNot},
		},
		Mandatory: []model.MandatoryShift{
			{WorkerID: "B", Date: day(march, 5)},
			{WorkerID: "D", Date: day(april, 20)},
		},
	}
}

func TestGenerateTwoFullMonths(t *testing.T) {
	cfg := testConfig(2, 2, 2, 1)
	// The checks below are about the hard rules; the pairing, weekday and
	// weekly terms only shape preferences between valid schedules.
	cfg.Weights.RepeatedPairing = 0
	cfg.Weights.RepeatedWeekday = 0
	cfg.Weights.ExcessWeeklyShifts = 0
	cfg.SolveTimeoutSeconds = 120
	r := sixWorkerRoster()

	run, err := newTestEngine(t, cfg).Generate(context.Background(), r, march, april)
	require.NoError(t, err)
	require.Len(t, run.Months, 2)
	assert.Equal(t, 2, run.Solved())

	for i, ym := range []model.YearMonth{march, april} {
		res := run.Months[i]
		assert.Equal(t, ym, res.Month)
		requireSchedule(t, res, Extract(r, ym), cfg, res.Phase == PhaseHard)
		for d, ids := range res.Shifts {
			juniors := 0
			for _, id := range ids {
				if id == "F" {
					juniors++
				}
			}
			assert.LessOrEqual(t, juniors, 1, "juniors on %s", d)
		}
	}

	// Separation holds across the month boundary.
	minSep := min(run.Months[0].Separation, run.Months[1].Separation)
	last := map[string]model.Date{}
	for _, a := range run.Assignments() {
		if prev, ok := last[a.WorkerID]; ok {
			assert.Greater(t, a.Date.Sub(prev), minSep, "%s works %s and %s", a.WorkerID, prev, a.Date)
		}
		last[a.WorkerID] = a.Date
	}

	// Every overlap decision of March is an April shift.
	mar, apr := run.Months[0], run.Months[1]
	require.Positive(t, mar.Separation)
	assert.Equal(t, 2*mar.Separation, mar.Carry.Len())
	for _, a := range mar.Carry.Assignments() {
		assert.True(t, april.Contains(a.Date), "carry date %s", a.Date)
		assert.Contains(t, apr.Shifts[a.Date], a.WorkerID, "carried %s on %s", a.WorkerID, a.Date)
	}

	assert.Zero(t, run.State.Carry.Len())
	assert.Len(t, run.State.Fairness, 6)
	assert.Len(t, run.Assignments(), 2*(31+30))
}
