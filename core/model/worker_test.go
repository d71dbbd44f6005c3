package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"Resident":  Junior,
		"junior":    Junior,
		"Attending": Senior,
		"SENIOR":    Senior,
	}
	for in, want := range cases {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	if _, err := ParseCategory("intern"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestLimitsValidate(t *testing.T) {
	assert.NoError(t, Limits{Min: 2, Max: 4}.Validate())
	err := Limits{Min: 5, Max: 4}.Validate()
	if !errors.Is(err, ErrInvalidLimits) {
		t.Fatalf("expected ErrInvalidLimits got %v", err)
	}
	assert.Error(t, Limits{Min: -1, Max: 4}.Validate())
	assert.Equal(t, 3.0, Limits{Min: 2, Max: 4}.Midpoint())
}

func TestWorkerLimitsFor(t *testing.T) {
	jul := YearMonth{Year: 2026, Month: time.July}
	w := Worker{
		ID:       "a",
		Shifts:   Limits{Min: 4, Max: 6},
		Weekends: Limits{Min: 1, Max: 2},
		Overrides: []MonthLimits{{
			Month: jul, Shifts: Limits{Min: 0, Max: 2}, Weekends: Limits{Min: 0, Max: 0},
		}},
	}
	s, we := w.LimitsFor(jul)
	assert.Equal(t, Limits{Min: 0, Max: 2}, s)
	assert.Equal(t, Limits{}, we)
	s, we = w.LimitsFor(jul.Next())
	assert.Equal(t, Limits{Min: 4, Max: 6}, s)
	assert.Equal(t, Limits{Min: 1, Max: 2}, we)
}

func TestRosterValidate(t *testing.T) {
	r := Roster{
		Workers: []Worker{{ID: "a", Shifts: Limits{Max: 3}, Weekends: Limits{Max: 1}}},
		Leaves:  []Leave{{WorkerID: "b", Date: NewDate(2026, time.July, 1)}},
	}
	assert.Error(t, r.Validate())
	r.Leaves[0].WorkerID = "a"
	assert.NoError(t, r.Validate())
	r.Workers = append(r.Workers, r.Workers[0])
	assert.Error(t, r.Validate())
	assert.Error(t, Roster{}.Validate())
}

func TestRecordKindsText(t *testing.T) {
	var lk LeaveKind
	require.NoError(t, lk.UnmarshalText([]byte("Congress")))
	assert.Equal(t, LeaveCongress, lk)
	assert.Equal(t, 1, lk.Spread())
	assert.Equal(t, 0, LeaveSkip.Spread())
	assert.Error(t, lk.UnmarshalText([]byte("sick")))

	var pk PreferenceKind
	require.NoError(t, pk.UnmarshalText([]byte("Prefer Not")))
	assert.Equal(t, PreferNot, pk)
}
