package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhasesTraverseStrictlyForward(t *testing.T) {
	s, _, _, phases := newTestSession(t)

	seen := []string{s.CurrentPhase().ID}
	for i := 0; i < len(phases)+3; i++ { // extra advances past the end are no-ops
		s.AdvancePhase()
		seen = append(seen, s.CurrentPhase().ID)
	}

	assert.Equal(t, "intro", seen[0])
	assert.Equal(t, "section-1", seen[1])
	assert.Equal(t, "break", seen[2])
	assert.Equal(t, "section-2", seen[3])
	for _, id := range seen[3:] {
		assert.Equal(t, "section-2", id, "cursor never moves past the last phase")
	}
	assert.False(t, s.Ended(), "running out the cursor alone does not end the exam")
}

func TestAdvanceIntoSectionResetsQuestionIndex(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)

	advanceToPhase(t, s, 1)
	require.NoError(t, s.SetCurrentQuestionIndex(3))
	clock.Advance(25 * time.Second)

	advanceToPhase(t, s, 3) // break, then section 2 starting at question 4

	assert.Equal(t, 4, s.CurrentQuestionIndex())
	third, _ := s.Answer(questions[3].ID)
	assert.Equal(t, 25, third.TimeSpent, "leaving the section flushes the outgoing timer")
}

func TestAdvanceRestartsPhaseClock(t *testing.T) {
	s, clock, _, _ := newTestSession(t)

	start := clock.Now()
	deadline, ok := s.PhaseEndTime()
	require.True(t, ok)
	assert.Equal(t, start.Add(60*time.Second), deadline)

	clock.Advance(45 * time.Second)
	s.AdvancePhase()

	deadline, ok = s.PhaseEndTime()
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(600*time.Second), deadline)
}

func TestTimeUpOnNonLastPhaseAdvances(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	s.TimeUp()

	assert.Equal(t, 1, s.PhaseIndex())
	assert.False(t, s.Ended())
}

func TestTimeUpOnLastPhaseEndsWithoutMovingCursor(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	advanceToPhase(t, s, 3)

	clock.Advance(40 * time.Second)
	s.TimeUp()

	assert.True(t, s.Ended())
	assert.Equal(t, 3, s.PhaseIndex())
	current, _ := s.Answer(questions[4].ID)
	assert.Equal(t, 40, current.TimeSpent, "ending flushes the current question's timer")
}

func TestSubmitOnlyWorksInLastPhase(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	s.Submit()
	assert.False(t, s.Ended())

	advanceToPhase(t, s, 1)
	s.Submit()
	assert.False(t, s.Ended())

	advanceToPhase(t, s, 3)
	s.Submit()
	assert.True(t, s.Ended())
	assert.Equal(t, 3, s.PhaseIndex())
}

func TestEndIsIdempotent(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	advanceToPhase(t, s, 3)

	clock.Advance(10 * time.Second)
	s.Submit()
	clock.Advance(time.Hour)
	s.TimeUp()
	s.Submit()

	current, _ := s.Answer(questions[4].ID)
	assert.Equal(t, 10, current.TimeSpent, "a second end must not flush again")
}

func TestTwoSectionWalkthrough(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)

	// intro runs out
	s.TimeUp()
	assert.Equal(t, "section-1", s.CurrentPhase().ID)
	assert.Equal(t, 0, s.CurrentQuestionIndex())

	// answer the MCQs, 30 seconds each
	for i := 0; i < 4; i++ {
		clock.Advance(30 * time.Second)
		require.NoError(t, s.SetSelectedOption(questions[i].ID, "B"))
		if i < 3 {
			require.NoError(t, s.SetCurrentQuestionIndex(i+1))
		}
	}

	// section 1 runs out, break runs out
	s.TimeUp()
	assert.Equal(t, "break", s.CurrentPhase().ID)
	s.TimeUp()
	assert.Equal(t, "section-2", s.CurrentPhase().ID)
	assert.Equal(t, 4, s.CurrentQuestionIndex())

	clock.Advance(5 * time.Minute)
	s.Submit()

	require.True(t, s.Ended())
	total := 0
	for _, a := range s.AnswersArray() {
		total += a.TimeSpent
	}
	assert.Equal(t, 4*30+5*60, total)
}
