package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	months   int
	runs     int
	fairness int
	err      error
}

func (r *recordSink) RecordMonth(MonthRecord) error {
	r.months++
	return r.err
}

func (r *recordSink) RecordRun(RunRecord) error {
	r.runs++
	return r.err
}

func (r *recordSink) RecordFairness([]FairnessRecord) error {
	r.fairness++
	return r.err
}

type monthOnly struct{ months int }

func (m *monthOnly) RecordMonth(MonthRecord) error {
	m.months++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	s1, s2 := &recordSink{}, &monthOnly{}
	m := NewMultiSink(s1, s2)
	require.NoError(t, m.RecordMonth(MonthRecord{Status: StatusSolved}))
	require.NoError(t, m.RecordRun(RunRecord{}))
	require.NoError(t, m.RecordFairness(nil))
	assert.Equal(t, 1, s1.months)
	assert.Equal(t, 1, s1.runs)
	assert.Equal(t, 1, s1.fairness)
	assert.Equal(t, 1, s2.months)
}

func TestMultiSinkCallsEverySinkOnError(t *testing.T) {
	boom := errors.New("boom")
	s1, s2 := &recordSink{err: boom}, &recordSink{}
	m := NewMultiSink(s1, s2)
	err := m.RecordMonth(MonthRecord{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, s2.months)
}

func TestNopSinkImplementsRecorders(t *testing.T) {
	var s MetricsSink = NopSink{}
	_, ok := s.(RunRecorder)
	assert.True(t, ok)
	_, ok = s.(FairnessRecorder)
	assert.True(t, ok)
}
