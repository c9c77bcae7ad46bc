package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSelectedOptionRoundTrip(t *testing.T) {
	s, _, questions, _ := newTestSession(t)
	q := questions[0].ID

	require.NoError(t, s.SetSelectedOption(q, "B"))

	a, ok := s.Answer(q)
	require.True(t, ok)
	require.NotNil(t, a.SelectedOption)
	assert.Equal(t, "B", *a.SelectedOption)

	var changes []InteractionEvent
	for _, ev := range a.InteractionLog {
		if ev.Action == ActionOptionChange {
			changes = append(changes, ev)
		}
	}
	require.Len(t, changes, 1, "one selection appends exactly one option_change")
	assert.Equal(t, "B", changes[0].Payload["option"])
}

func TestSetSelectedOptionOverwrites(t *testing.T) {
	s, _, questions, _ := newTestSession(t)
	q := questions[0].ID

	require.NoError(t, s.SetSelectedOption(q, "A"))
	require.NoError(t, s.SetSelectedOption(q, "D"))

	a, _ := s.Answer(q)
	assert.Equal(t, "D", *a.SelectedOption)

	count := 0
	for _, ev := range a.InteractionLog {
		if ev.Action == ActionOptionChange {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestSetConfidenceLevel(t *testing.T) {
	s, _, questions, _ := newTestSession(t)
	q := questions[2].ID

	require.NoError(t, s.SetConfidenceLevel(q, ConfidenceHigh))

	a, _ := s.Answer(q)
	assert.Equal(t, ConfidenceHigh, a.ConfidenceLevel)
	require.Len(t, a.InteractionLog, 1)
	assert.Equal(t, ActionConfidenceChange, a.InteractionLog[0].Action)
	assert.Equal(t, "high", a.InteractionLog[0].Payload["level"])
}

func TestSetWrittenAnswerLeavesLogAlone(t *testing.T) {
	s, _, questions, _ := newTestSession(t)
	q := questions[4].ID

	require.NoError(t, s.SetWrittenAnswer(q, "f'(x) = 2x"))

	a, _ := s.Answer(q)
	require.NotNil(t, a.WrittenAnswer)
	assert.Equal(t, "f'(x) = 2x", *a.WrittenAnswer)
	assert.Empty(t, a.InteractionLog)
}

func TestInteractionLogIsAppendOnlyAndOrdered(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	q := questions[0].ID

	require.NoError(t, s.LogCalculatorUse(q, true))
	clock.Advance(time.Second)
	require.NoError(t, s.LogHintAccess(q))
	clock.Advance(time.Second)
	require.NoError(t, s.LogFormulaSheetAccess(q))

	a, _ := s.Answer(q)
	require.Len(t, a.InteractionLog, 3)
	assert.Equal(t, ActionCalculatorToggle, a.InteractionLog[0].Action)
	assert.Equal(t, true, a.InteractionLog[0].Payload["used"])
	assert.Equal(t, ActionHintAccessed, a.InteractionLog[1].Action)
	assert.Equal(t, ActionFormulaSheetAccess, a.InteractionLog[2].Action)

	for i := 1; i < len(a.InteractionLog); i++ {
		assert.False(t, a.InteractionLog[i].Timestamp.Before(a.InteractionLog[i-1].Timestamp))
	}
}

func TestMutationsOnUnknownQuestionFail(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	stranger := uuid.New()

	assert.ErrorIs(t, s.SetSelectedOption(stranger, "A"), ErrUnknownQuestion)
	assert.ErrorIs(t, s.SetWrittenAnswer(stranger, "x"), ErrUnknownQuestion)
	assert.ErrorIs(t, s.SetConfidenceLevel(stranger, ConfidenceLow), ErrUnknownQuestion)
	assert.ErrorIs(t, s.LogHintAccess(stranger), ErrUnknownQuestion)
}

func TestAnswerReturnsACopy(t *testing.T) {
	s, _, questions, _ := newTestSession(t)
	q := questions[0].ID

	require.NoError(t, s.LogHintAccess(q))

	a, _ := s.Answer(q)
	a.InteractionLog[0].Action = "tampered"
	a.TimeSpent = 999

	fresh, _ := s.Answer(q)
	assert.Equal(t, ActionHintAccessed, fresh.InteractionLog[0].Action)
	assert.Zero(t, fresh.TimeSpent)
}
