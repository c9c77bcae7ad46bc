// Package session implements the in-memory exam attempt state machine:
// the answer ledger, per-question timing, the phase sequencer and the
// interaction log. The session is the single writer of its own state;
// callers drive it from one goroutine (the WebSocket read loop) and the
// internal mutex only protects against out-of-band readers such as the
// snapshot persister.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session mutation errors.
var (
	ErrNotInitialized  = errors.New("session is not initialized")
	ErrUnknownQuestion = errors.New("question does not belong to this attempt")
	ErrIndexOutOfRange = errors.New("question index outside the current section range")
)

// Session is the aggregate root owning the answer ledger, the phase
// cursor and the question-start-time map. All mutation goes through
// Session methods.
type Session struct {
	mu  sync.Mutex
	now func() time.Time
	log zerolog.Logger

	examID    uuid.UUID
	attemptID uuid.UUID
	questions []model.Question
	phases    []model.Phase

	currentQuestionIndex int
	answers              map[uuid.UUID]*Answer
	questionStartTimes   map[uuid.UUID]time.Time

	phaseIndex     int
	phaseStartedAt time.Time

	uploads map[uuid.UUID]map[string]PageUpload

	active      bool
	ended       bool
	initialized bool
}

// Option customizes a Session at construction time.
type Option func(*Session)

// WithClock substitutes the wall clock, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// New creates an empty, inactive session. Call Init to start an attempt.
func New(log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		now:                time.Now,
		log:                log.With().Str("component", "session").Logger(),
		answers:            make(map[uuid.UUID]*Answer),
		questionStartTimes: make(map[uuid.UUID]time.Time),
		uploads:            make(map[uuid.UUID]map[string]PageUpload),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init seeds the ledger with one default Answer per question, resets the
// phase cursor and starts timing the first question. Initializing twice
// without an intervening Clear is a programming error: it is logged and
// the previous state is overwritten, never a crash.
func (s *Session) Init(examID, attemptID uuid.UUID, questions []model.Question, phases []model.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		s.log.Warn().
			Str("attempt_id", s.attemptID.String()).
			Msg("Init called on an initialized session, overwriting state")
	}

	s.examID = examID
	s.attemptID = attemptID
	s.questions = questions
	s.phases = phases
	s.currentQuestionIndex = 0
	s.answers = make(map[uuid.UUID]*Answer, len(questions))
	s.questionStartTimes = make(map[uuid.UUID]time.Time)
	s.uploads = make(map[uuid.UUID]map[string]PageUpload)
	s.phaseIndex = 0
	s.phaseStartedAt = s.now()
	s.active = true
	s.ended = false
	s.initialized = true

	for _, q := range questions {
		s.answers[q.ID] = newAnswer(q.ID)
	}

	if len(questions) > 0 {
		s.startTimerLocked(questions[0].ID)
	}
}

// Clear stops all running timers and resets the session to its
// pre-attempt state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.questions {
		s.stopTimerLocked(q.ID)
	}

	s.examID = uuid.Nil
	s.attemptID = uuid.Nil
	s.questions = nil
	s.phases = nil
	s.currentQuestionIndex = 0
	s.answers = make(map[uuid.UUID]*Answer)
	s.questionStartTimes = make(map[uuid.UUID]time.Time)
	s.uploads = make(map[uuid.UUID]map[string]PageUpload)
	s.phaseIndex = 0
	s.active = false
	s.ended = false
	s.initialized = false
}

// Pause flushes the current question's timer and marks the session
// inactive. Safe to call repeatedly.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q := s.currentQuestionLocked(); q != nil {
		s.stopTimerLocked(q.ID)
	}
	s.active = false
}

// Resume restarts timing of the current question and marks the session
// active again.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q := s.currentQuestionLocked(); q != nil {
		s.startTimerLocked(q.ID)
	}
	s.active = true
}

// SetCurrentQuestionIndex navigates to another question: the outgoing
// question's timer is stopped first, then the incoming question's timer
// is started. While the current phase is a section the index must fall
// inside its question range.
func (s *Session) SetCurrentQuestionIndex(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	if index < 0 || index >= len(s.questions) {
		return ErrIndexOutOfRange
	}
	if phase := s.currentPhaseLocked(); phase != nil && phase.IsSection() && !phase.Contains(index) {
		return ErrIndexOutOfRange
	}

	if q := s.currentQuestionLocked(); q != nil {
		s.stopTimerLocked(q.ID)
	}

	s.currentQuestionIndex = index
	s.startTimerLocked(s.questions[index].ID)
	return nil
}

// ----------------------------------------------------------------
// Question timing
// ----------------------------------------------------------------

// StartQuestionTimer records the current instant as the question's start
// time. Idempotent: a second start without an intervening stop keeps the
// original instant so no time is double counted.
func (s *Session) StartQuestionTimer(questionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startTimerLocked(questionID)
}

// StopQuestionTimer flushes whole elapsed seconds into the answer's
// time_spent and clears the start time. No-op when the question is not
// being timed; elapsed time is never negative.
func (s *Session) StopQuestionTimer(questionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked(questionID)
}

// TotalTimeSpent sums all flushed time_spent values plus the live
// elapsed time of any question currently mid-timing.
func (s *Session) TotalTimeSpent() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, q := range s.questions {
		if a := s.answers[q.ID]; a != nil {
			total += a.TimeSpent
		}
		if start, ok := s.questionStartTimes[q.ID]; ok {
			total += elapsedSeconds(start, s.now())
		}
	}
	return total
}

func (s *Session) startTimerLocked(questionID uuid.UUID) {
	if _, exists := s.answers[questionID]; !exists {
		return
	}
	if _, running := s.questionStartTimes[questionID]; running {
		return // already timing, keep the original start
	}
	s.questionStartTimes[questionID] = s.now()
}

func (s *Session) stopTimerLocked(questionID uuid.UUID) {
	start, running := s.questionStartTimes[questionID]
	if !running {
		return
	}
	if a := s.answers[questionID]; a != nil {
		a.TimeSpent += elapsedSeconds(start, s.now())
	}
	delete(s.questionStartTimes, questionID)
}

// elapsedSeconds floors the wall-clock delta to whole seconds and never
// returns a negative value.
func elapsedSeconds(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start) / time.Second)
}

// ----------------------------------------------------------------
// Accessors
// ----------------------------------------------------------------

// ExamID returns the exam identifier set at Init.
func (s *Session) ExamID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.examID
}

// AttemptID returns the attempt identifier set at Init.
func (s *Session) AttemptID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attemptID
}

// CurrentQuestionIndex returns the global index of the visible question.
func (s *Session) CurrentQuestionIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuestionIndex
}

// Active reports whether the exam is running (false while paused, before
// Init and after Clear).
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) currentQuestionLocked() *model.Question {
	if s.currentQuestionIndex < 0 || s.currentQuestionIndex >= len(s.questions) {
		return nil
	}
	return &s.questions[s.currentQuestionIndex]
}

func (s *Session) currentPhaseLocked() *model.Phase {
	if s.phaseIndex < 0 || s.phaseIndex >= len(s.phases) {
		return nil
	}
	return &s.phases[s.phaseIndex]
}
