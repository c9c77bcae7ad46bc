package session

import (
	"time"

	"github.com/google/uuid"
)

// ConfidenceLevel is the self-reported certainty tag on an answer.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Interaction log actions. The log is analytics-only: it is appended to,
// never read back by the state machine itself.
const (
	ActionOptionChange       = "option_change"
	ActionConfidenceChange   = "confidence_change"
	ActionCalculatorToggle   = "calculator_toggle"
	ActionHintAccessed       = "hint_accessed"
	ActionFormulaSheetAccess = "formula_sheet_accessed"
)

// InteractionEvent is one entry of a question's append-only event trail.
type InteractionEvent struct {
	Action    string         `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Answer is the live per-question record. One Answer exists per question
// from Init until Clear; fields are mutated independently.
type Answer struct {
	QuestionID      uuid.UUID          `json:"question_id"`
	SelectedOption  *string            `json:"selected_option"`
	WrittenAnswer   *string            `json:"written_answer"`
	ConfidenceLevel ConfidenceLevel    `json:"confidence_level"`
	TimeSpent       int                `json:"time_spent"`
	InteractionLog  []InteractionEvent `json:"interaction_log"`
}

func newAnswer(questionID uuid.UUID) *Answer {
	return &Answer{
		QuestionID:      questionID,
		ConfidenceLevel: ConfidenceMedium,
		InteractionLog:  []InteractionEvent{},
	}
}

// clone copies the answer with its own interaction log backing array.
func (a *Answer) clone() Answer {
	out := *a
	out.InteractionLog = make([]InteractionEvent, len(a.InteractionLog))
	copy(out.InteractionLog, a.InteractionLog)
	return out
}

// SetSelectedOption overwrites the chosen MCQ option and appends an
// option_change event. The option is not validated against the option
// set; grading reconciles unknown values later.
func (s *Session) SetSelectedOption(questionID uuid.UUID, option string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	a.SelectedOption = &option
	s.logInteractionLocked(questionID, ActionOptionChange, map[string]any{"option": option})
	return nil
}

// SetWrittenAnswer overwrites the free-text answer.
func (s *Session) SetWrittenAnswer(questionID uuid.UUID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	a.WrittenAnswer = &text
	return nil
}

// SetConfidenceLevel overwrites the confidence tag and appends a
// confidence_change event.
func (s *Session) SetConfidenceLevel(questionID uuid.UUID, level ConfidenceLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[questionID]
	if !ok {
		return ErrUnknownQuestion
	}
	a.ConfidenceLevel = level
	s.logInteractionLocked(questionID, ActionConfidenceChange, map[string]any{"level": string(level)})
	return nil
}

// LogCalculatorUse appends a calculator_toggle event.
func (s *Session) LogCalculatorUse(questionID uuid.UUID, used bool) error {
	return s.LogInteraction(questionID, ActionCalculatorToggle, map[string]any{"used": used})
}

// LogHintAccess appends a hint_accessed event.
func (s *Session) LogHintAccess(questionID uuid.UUID) error {
	return s.LogInteraction(questionID, ActionHintAccessed, nil)
}

// LogFormulaSheetAccess appends a formula_sheet_accessed event.
func (s *Session) LogFormulaSheetAccess(questionID uuid.UUID) error {
	return s.LogInteraction(questionID, ActionFormulaSheetAccess, nil)
}

// LogInteraction appends {action, now, payload} to the question's event
// trail. Entries are never removed or reordered.
func (s *Session) LogInteraction(questionID uuid.UUID, action string, payload map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.answers[questionID]; !ok {
		return ErrUnknownQuestion
	}
	s.logInteractionLocked(questionID, action, payload)
	return nil
}

func (s *Session) logInteractionLocked(questionID uuid.UUID, action string, payload map[string]any) {
	a := s.answers[questionID]
	a.InteractionLog = append(a.InteractionLog, InteractionEvent{
		Action:    action,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// Answer returns a copy of one question's answer record.
func (s *Session) Answer(questionID uuid.UUID) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[questionID]
	if !ok {
		return Answer{}, false
	}
	return a.clone(), true
}

// AnswersArray returns a snapshot of all answers in question order, for
// submission.
func (s *Session) AnswersArray() []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Answer, 0, len(s.questions))
	for _, q := range s.questions {
		if a := s.answers[q.ID]; a != nil {
			out = append(out, a.clone())
		}
	}
	return out
}
