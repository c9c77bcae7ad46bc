package session

import (
	"time"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// Phases are traversed strictly forward:
// intro → section₁ → [break → section]* → ended. The cursor never moves
// backwards and never past the last phase; reaching the end of the last
// section transitions into the FRQ upload collection mode instead.

// CurrentPhase returns the phase under the cursor.
func (s *Session) CurrentPhase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.currentPhaseLocked(); p != nil {
		return *p
	}
	return model.Phase{}
}

// PhaseIndex returns the cursor position.
func (s *Session) PhaseIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phaseIndex
}

// IsLastPhase reports whether the cursor is at the final phase.
func (s *Session) IsLastPhase() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isLastPhaseLocked()
}

// Ended reports whether the exam has entered the terminal
// collect-FRQ-uploads mode.
func (s *Session) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// PhaseEndTime returns the wall-clock deadline of the current phase
// (start + duration). ok is false for a session with no phases.
func (s *Session) PhaseEndTime() (deadline time.Time, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.currentPhaseLocked()
	if p == nil {
		return time.Time{}, false
	}
	return s.phaseStartedAt.Add(time.Duration(p.DurationSeconds) * time.Second), true
}

// AdvancePhase moves the cursor forward one phase and restarts the phase
// clock. On entry to a section the current question index is reset to
// the section's range start. At the last phase this is a no-op; ending
// the exam goes through TimeUp or Submit instead.
func (s *Session) AdvancePhase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advancePhaseLocked()
}

// TimeUp handles the countdown reaching zero: on a non-last phase it is
// identical to AdvancePhase; on the last phase it marks the exam ended
// without moving the cursor.
func (s *Session) TimeUp() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isLastPhaseLocked() {
		s.endLocked()
		return
	}
	s.advancePhaseLocked()
}

// Submit is the student's explicit finish action, valid while in the
// last section. It marks the exam ended without moving the cursor.
func (s *Session) Submit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isLastPhaseLocked() {
		return
	}
	s.endLocked()
}

func (s *Session) isLastPhaseLocked() bool {
	return len(s.phases) > 0 && s.phaseIndex == len(s.phases)-1
}

func (s *Session) advancePhaseLocked() {
	if s.phaseIndex >= len(s.phases)-1 {
		return
	}

	// Leaving a section stops the visible question's timer so break
	// time never counts toward an answer.
	if outgoing := s.currentPhaseLocked(); outgoing != nil && outgoing.IsSection() {
		if q := s.currentQuestionLocked(); q != nil {
			s.stopTimerLocked(q.ID)
		}
	}

	s.phaseIndex++
	s.phaseStartedAt = s.now()

	phase := s.currentPhaseLocked()
	if phase == nil || !phase.IsSection() {
		return
	}

	start := phase.RangeStart()
	if start < 0 || start >= len(s.questions) {
		return
	}
	s.currentQuestionIndex = start
	s.startTimerLocked(s.questions[start].ID)
}

// endLocked flushes the current question's timer and enters the terminal
// collect-uploads mode. The phase cursor stays where it is.
func (s *Session) endLocked() {
	if s.ended {
		return
	}
	if q := s.currentQuestionLocked(); q != nil {
		s.stopTimerLocked(q.ID)
	}
	s.ended = true
}
