package session

import (
	"time"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/google/uuid"
)

// Snapshot is the full serializable session state. It is written to
// Redis on every mutation and restored when a student reconnects, so a
// page reload or server restart resumes the attempt where it left off.
// In-flight question start times are carried verbatim: seconds already
// flushed into time_spent are never re-counted.
type Snapshot struct {
	ExamID               uuid.UUID                           `json:"exam_id"`
	AttemptID            uuid.UUID                           `json:"attempt_id"`
	Questions            []model.Question                    `json:"questions"`
	Phases               []model.Phase                       `json:"phases"`
	CurrentQuestionIndex int                                 `json:"current_question_index"`
	PhaseIndex           int                                 `json:"phase_index"`
	PhaseStartedAt       time.Time                           `json:"phase_started_at"`
	Answers              []Answer                            `json:"answers"`
	QuestionStartTimes   map[uuid.UUID]time.Time             `json:"question_start_times"`
	Uploads              map[uuid.UUID]map[string]PageUpload `json:"uploads"`
	Active               bool                                `json:"is_exam_active"`
	Ended                bool                                `json:"ended"`
}

// Snapshot captures the current state for the persistence boundary.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	answers := make([]Answer, 0, len(s.questions))
	for _, q := range s.questions {
		if a := s.answers[q.ID]; a != nil {
			answers = append(answers, a.clone())
		}
	}

	starts := make(map[uuid.UUID]time.Time, len(s.questionStartTimes))
	for qid, t := range s.questionStartTimes {
		starts[qid] = t
	}

	uploads := make(map[uuid.UUID]map[string]PageUpload, len(s.uploads))
	for qid, pages := range s.uploads {
		cp := make(map[string]PageUpload, len(pages))
		for k, v := range pages {
			cp[k] = v
		}
		uploads[qid] = cp
	}

	return Snapshot{
		ExamID:               s.examID,
		AttemptID:            s.attemptID,
		Questions:            s.questions,
		Phases:               s.phases,
		CurrentQuestionIndex: s.currentQuestionIndex,
		PhaseIndex:           s.phaseIndex,
		PhaseStartedAt:       s.phaseStartedAt,
		Answers:              answers,
		QuestionStartTimes:   starts,
		Uploads:              uploads,
		Active:               s.active,
		Ended:                s.ended,
	}
}

// Restore replaces the session state with a previously captured
// snapshot.
func (s *Session) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.examID = snap.ExamID
	s.attemptID = snap.AttemptID
	s.questions = snap.Questions
	s.phases = snap.Phases
	s.currentQuestionIndex = snap.CurrentQuestionIndex
	s.phaseIndex = snap.PhaseIndex
	s.phaseStartedAt = snap.PhaseStartedAt
	s.active = snap.Active
	s.ended = snap.Ended
	s.initialized = snap.AttemptID != uuid.Nil

	s.answers = make(map[uuid.UUID]*Answer, len(snap.Answers))
	for i := range snap.Answers {
		a := snap.Answers[i].clone()
		s.answers[a.QuestionID] = &a
	}

	s.questionStartTimes = make(map[uuid.UUID]time.Time, len(snap.QuestionStartTimes))
	for qid, t := range snap.QuestionStartTimes {
		s.questionStartTimes[qid] = t
	}

	s.uploads = make(map[uuid.UUID]map[string]PageUpload, len(snap.Uploads))
	for qid, pages := range snap.Uploads {
		cp := make(map[string]PageUpload, len(pages))
		for k, v := range pages {
			cp[k] = v
		}
		s.uploads[qid] = cp
	}
}
