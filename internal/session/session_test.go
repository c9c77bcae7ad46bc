package session

import (
	"sync"
	"testing"
	"time"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced wall clock for deterministic timing
// tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// testExam builds a two-section exam: four MCQs followed by two
// two-page FRQs, with an intro and a break in between.
func testExam() ([]model.Question, []model.Phase) {
	correct := "B"
	questions := make([]model.Question, 0, 6)
	for i := 0; i < 4; i++ {
		questions = append(questions, model.Question{
			ID:            uuid.New(),
			Number:        i + 1,
			Type:          model.QuestionTypeMCQ,
			Text:          "mcq",
			CorrectOption: &correct,
			Options: []model.Option{
				{Key: "A", Text: "first"},
				{Key: "B", Text: "second"},
				{Key: "C", Text: "third"},
				{Key: "D", Text: "fourth"},
			},
		})
	}
	for i := 4; i < 6; i++ {
		questions = append(questions, model.Question{
			ID:     uuid.New(),
			Number: i + 1,
			Type:   model.QuestionTypeFRQ,
			Text:   "frq",
			Pages:  []string{"page1", "page2"},
		})
	}

	phases := []model.Phase{
		{ID: "intro", Type: model.PhaseTypeIntro, DurationSeconds: 60},
		{
			ID:              "section-1",
			Type:            model.PhaseTypeSection,
			Label:           "Section I",
			DurationSeconds: 600,
			QuestionRange:   &[2]int{0, 3},
		},
		{ID: "break", Type: model.PhaseTypeBreak, DurationSeconds: 120},
		{
			ID:              "section-2",
			Type:            model.PhaseTypeSection,
			Label:           "Section II",
			DurationSeconds: 900,
			QuestionRange:   &[2]int{4, 5},
		},
	}
	return questions, phases
}

func newTestSession(t *testing.T) (*Session, *fakeClock, []model.Question, []model.Phase) {
	t.Helper()

	clock := newFakeClock()
	s := New(zerolog.Nop(), WithClock(clock.Now))
	questions, phases := testExam()
	s.Init(uuid.New(), uuid.New(), questions, phases)
	return s, clock, questions, phases
}

func TestInitSeedsDefaultAnswers(t *testing.T) {
	s, _, questions, _ := newTestSession(t)

	answers := s.AnswersArray()
	require.Len(t, answers, len(questions))

	for i, a := range answers {
		assert.Equal(t, questions[i].ID, a.QuestionID)
		assert.Nil(t, a.SelectedOption)
		assert.Nil(t, a.WrittenAnswer)
		assert.Equal(t, ConfidenceMedium, a.ConfidenceLevel)
		assert.Zero(t, a.TimeSpent)
		assert.Empty(t, a.InteractionLog)
		assert.NotNil(t, a.InteractionLog)
	}

	assert.True(t, s.Active())
	assert.False(t, s.Ended())
	assert.Equal(t, 0, s.CurrentQuestionIndex())
	assert.Equal(t, 0, s.PhaseIndex())
}

func TestInitTwiceOverwritesState(t *testing.T) {
	s, _, questions, _ := newTestSession(t)

	require.NoError(t, s.SetSelectedOption(questions[0].ID, "C"))

	freshQuestions, phases := testExam()
	s.Init(uuid.New(), uuid.New(), freshQuestions, phases)

	answers := s.AnswersArray()
	require.Len(t, answers, len(freshQuestions))
	for _, a := range answers {
		assert.Nil(t, a.SelectedOption)
	}

	_, ok := s.Answer(questions[0].ID)
	assert.False(t, ok, "old attempt's answers must be gone")
}

func TestStopQuestionTimerFlushesWholeSeconds(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	q := questions[0].ID

	clock.Advance(4500 * time.Millisecond)
	s.StopQuestionTimer(q)

	a, ok := s.Answer(q)
	require.True(t, ok)
	assert.Equal(t, 4, a.TimeSpent, "elapsed time is floored to whole seconds")
}

func TestStartQuestionTimerIsIdempotent(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	q := questions[0].ID

	clock.Advance(10 * time.Second)
	s.StartQuestionTimer(q) // second start must keep the original instant
	clock.Advance(5 * time.Second)
	s.StopQuestionTimer(q)

	a, _ := s.Answer(q)
	assert.Equal(t, 15, a.TimeSpent)
}

func TestStopQuestionTimerWithoutStartIsNoop(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	q := questions[1].ID // not the current question, so not being timed

	clock.Advance(time.Minute)
	s.StopQuestionTimer(q)
	s.StopQuestionTimer(q)

	a, _ := s.Answer(q)
	assert.Zero(t, a.TimeSpent)
}

func TestTimeSpentAccumulatesAcrossVisits(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	q := questions[0].ID

	clock.Advance(10 * time.Second)
	s.StopQuestionTimer(q)
	clock.Advance(time.Minute)
	s.StartQuestionTimer(q)
	clock.Advance(7 * time.Second)
	s.StopQuestionTimer(q)

	a, _ := s.Answer(q)
	assert.Equal(t, 17, a.TimeSpent, "revisits accumulate, never reset")
}

func TestNavigationSwitchesTimers(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	advanceToPhase(t, s, 1)

	clock.Advance(20 * time.Second)
	require.NoError(t, s.SetCurrentQuestionIndex(2))
	clock.Advance(30 * time.Second)
	require.NoError(t, s.SetCurrentQuestionIndex(0))

	first, _ := s.Answer(questions[0].ID)
	third, _ := s.Answer(questions[2].ID)
	assert.Equal(t, 20, first.TimeSpent)
	assert.Equal(t, 30, third.TimeSpent)
	assert.Equal(t, 0, s.CurrentQuestionIndex())
}

// advanceToPhase walks the phase cursor forward until it sits on the
// given index.
func advanceToPhase(t *testing.T, s *Session, index int) {
	t.Helper()
	for s.PhaseIndex() < index {
		before := s.PhaseIndex()
		s.AdvancePhase()
		if s.PhaseIndex() == before {
			t.Fatalf("phase cursor stuck at %d", before)
		}
	}
}

func TestNavigationOutsideSectionRangeIsRejected(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	advanceToPhase(t, s, 1) // section 1 covers 0..3

	assert.ErrorIs(t, s.SetCurrentQuestionIndex(4), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetCurrentQuestionIndex(-1), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetCurrentQuestionIndex(99), ErrIndexOutOfRange)
	assert.Equal(t, 0, s.CurrentQuestionIndex(), "rejected navigation leaves the cursor alone")
}

func TestPauseResumeDoesNotCountPausedTime(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	q := questions[0].ID

	clock.Advance(10 * time.Second)
	s.Pause()
	assert.False(t, s.Active())

	clock.Advance(5 * time.Minute) // paused, must not count
	s.Resume()
	assert.True(t, s.Active())

	clock.Advance(3 * time.Second)
	s.StopQuestionTimer(q)

	a, _ := s.Answer(q)
	assert.Equal(t, 13, a.TimeSpent)
}

func TestTotalTimeSpentIncludesLiveTimer(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)

	clock.Advance(10 * time.Second)
	s.StopQuestionTimer(questions[0].ID)
	s.StartQuestionTimer(questions[1].ID)
	clock.Advance(6 * time.Second)

	assert.Equal(t, 16, s.TotalTimeSpent())
}

func TestClearResetsEverything(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)

	require.NoError(t, s.SetSelectedOption(questions[0].ID, "A"))
	clock.Advance(time.Minute)
	s.Clear()

	assert.False(t, s.Active())
	assert.Equal(t, uuid.Nil, s.AttemptID())
	assert.Empty(t, s.AnswersArray())
	assert.ErrorIs(t, s.SetCurrentQuestionIndex(0), ErrNotInitialized)
}
