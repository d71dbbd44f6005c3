package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2026, time.February, 28)
	if got := d.AddDays(1); got != NewDate(2026, time.March, 1) {
		t.Fatalf("expected 2026-03-01 got %s", got)
	}
	if got := d.AddDays(-28); got != NewDate(2026, time.January, 31) {
		t.Fatalf("expected 2026-01-31 got %s", got)
	}
	assert.Equal(t, 3, NewDate(2026, time.March, 3).Sub(d))
	assert.True(t, NewDate(2026, time.July, 4).IsWeekend())
	assert.False(t, NewDate(2026, time.July, 6).IsWeekend())
}

func TestNewDateNormalizes(t *testing.T) {
	assert.Equal(t, NewDate(2026, time.February, 1), NewDate(2026, time.January, 32))
}

func TestYearMonthDays(t *testing.T) {
	feb := YearMonth{Year: 2028, Month: time.February}
	days := feb.Days()
	require.Len(t, days, 29)
	assert.Equal(t, NewDate(2028, time.February, 1), days[0])
	assert.Equal(t, NewDate(2028, time.February, 29), days[28])
	assert.Equal(t, YearMonth{Year: 2029, Month: time.January}, YearMonth{Year: 2028, Month: time.December}.Next())
	assert.Equal(t, YearMonth{Year: 2027, Month: time.December}, YearMonth{Year: 2028, Month: time.January}.Prev())
}

func TestMonthRange(t *testing.T) {
	from := YearMonth{Year: 2026, Month: time.November}
	to := YearMonth{Year: 2027, Month: time.February}
	got := MonthRange(from, to)
	require.Len(t, got, 4)
	assert.Equal(t, "2027-01", got[2].String())
	assert.Nil(t, MonthRange(to, from))
}

func TestDateText(t *testing.T) {
	type wrap struct {
		D  Date      `json:"d"`
		YM YearMonth `json:"ym"`
	}
	b, err := json.Marshal(wrap{D: NewDate(2026, time.July, 9), YM: YearMonth{Year: 2026, Month: time.July}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2026-07-09","ym":"2026-07"}`, string(b))

	var w wrap
	require.NoError(t, json.Unmarshal(b, &w))
	assert.Equal(t, NewDate(2026, time.July, 9), w.D)

	if _, err := ParseDate("09/07/2026"); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseYearMonth("2026"); err == nil {
		t.Fatalf("expected parse error")
	}
}
