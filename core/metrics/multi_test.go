package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	scores, fits, checks int
	err                  error
}

func (r *recordSink) RecordScore(ScoreEvent) error {
	r.scores++
	return r.err
}

func (r *recordSink) RecordFit(FitEvent) error {
	r.fits++
	return nil
}

func (r *recordSink) RecordCheck(CheckEvent) error {
	r.checks++
	return nil
}

// scoreOnly implements only the base interface.
type scoreOnly struct{ n int }

func (s *scoreOnly) RecordScore(ScoreEvent) error {
	s.n++
	return nil
}

// TestMultiSink ensures events are forwarded to all sinks.
func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &scoreOnly{}
	m := NewMultiSink(s1, s2)
	require.NoError(t, m.RecordScore(ScoreEvent{Metric: "mae"}))
	require.NoError(t, m.RecordFit(FitEvent{}))
	require.NoError(t, m.RecordCheck(CheckEvent{}))
	require.NoError(t, m.RecordPredict(PredictEvent{}))
	assert.Equal(t, 1, s1.scores)
	assert.Equal(t, 1, s1.fits)
	assert.Equal(t, 1, s1.checks)
	assert.Equal(t, 1, s2.n)
}

func TestMultiSink_Error(t *testing.T) {
	boom := errors.New("boom")
	s2 := &scoreOnly{}
	m := NewMultiSink(&recordSink{err: boom}, s2)
	assert.ErrorIs(t, m.RecordScore(ScoreEvent{}), boom)
	assert.Equal(t, 0, s2.n)
}
