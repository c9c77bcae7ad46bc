package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	advanceToPhase(t, s, 1)

	require.NoError(t, s.SetSelectedOption(questions[0].ID, "B"))
	require.NoError(t, s.SetConfidenceLevel(questions[0].ID, ConfidenceHigh))
	clock.Advance(12 * time.Second)
	require.NoError(t, s.SetCurrentQuestionIndex(2))
	clock.Advance(5 * time.Second)
	s.ApplyUpload(uploadEvent(questions[4], "page1", "https://cdn/p1.jpg", clock.Now()))

	raw, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	restored := New(zerolog.Nop(), WithClock(clock.Now))
	restored.Restore(snap)

	assert.Equal(t, s.ExamID(), restored.ExamID())
	assert.Equal(t, s.AttemptID(), restored.AttemptID())
	assert.Equal(t, 2, restored.CurrentQuestionIndex())
	assert.Equal(t, 1, restored.PhaseIndex())
	assert.True(t, restored.Active())

	a, ok := restored.Answer(questions[0].ID)
	require.True(t, ok)
	assert.Equal(t, "B", *a.SelectedOption)
	assert.Equal(t, ConfidenceHigh, a.ConfidenceLevel)
	assert.Equal(t, 12, a.TimeSpent)

	assert.Equal(t, "https://cdn/p1.jpg", restored.UploadStatus()[questions[4].ID]["page1"].FileURL)
}

func TestRestoreResumesMidTimingQuestion(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	advanceToPhase(t, s, 1)

	clock.Advance(8 * time.Second)
	require.NoError(t, s.SetCurrentQuestionIndex(1)) // q0 flushed with 8s
	clock.Advance(4 * time.Second)                   // q1 mid-timing

	snap := s.Snapshot()

	restored := New(zerolog.Nop(), WithClock(clock.Now))
	restored.Restore(snap)

	clock.Advance(6 * time.Second)
	restored.StopQuestionTimer(questions[1].ID)

	a, _ := restored.Answer(questions[1].ID)
	assert.Equal(t, 10, a.TimeSpent, "restore keeps the original start instant")

	first, _ := restored.Answer(questions[0].ID)
	assert.Equal(t, 8, first.TimeSpent, "flushed seconds survive and are not re-counted")
}

func TestRestoreAllowsFurtherMutation(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	snap := s.Snapshot()

	restored := New(zerolog.Nop(), WithClock(clock.Now))
	restored.Restore(snap)

	require.NoError(t, restored.SetSelectedOption(questions[3].ID, "A"))
	require.NoError(t, restored.SetCurrentQuestionIndex(0))
	restored.AdvancePhase()
	assert.Equal(t, 1, restored.PhaseIndex())
}

func TestRestoreEmptySnapshotStaysUninitialized(t *testing.T) {
	clock := newFakeClock()
	restored := New(zerolog.Nop(), WithClock(clock.Now))
	restored.Restore(Snapshot{})

	assert.Equal(t, uuid.Nil, restored.AttemptID())
	assert.ErrorIs(t, restored.SetCurrentQuestionIndex(0), ErrNotInitialized)
}
