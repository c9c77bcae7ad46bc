package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states.
// Transitions: in_progress → paused → in_progress → completed.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusPaused     AttemptStatus = "paused"
	AttemptStatusCompleted  AttemptStatus = "completed"
)

// Attempt is one student's full pass through an exam, from start to
// final submission.
type Attempt struct {
	ID             uuid.UUID     `json:"id"`
	ExamID         uuid.UUID     `json:"exam_id"`
	ParticipantID  uuid.UUID     `json:"participant_id"`
	Status         AttemptStatus `json:"status"`
	RawScore       *int          `json:"raw_score,omitempty"`
	TotalMCQ       *int          `json:"total_mcq,omitempty"`
	TotalTimeSpent *int          `json:"total_time_spent,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	PausedAt       *time.Time    `json:"paused_at,omitempty"`
	ResumedAt      *time.Time    `json:"resumed_at,omitempty"`
	SubmittedAt    *time.Time    `json:"submitted_at,omitempty"`
}

// AnswerRow is the persisted per-question record written at submission.
type AnswerRow struct {
	ID              uuid.UUID       `json:"id"`
	AttemptID       uuid.UUID       `json:"attempt_id"`
	QuestionID      uuid.UUID       `json:"question_id"`
	SelectedOption  *string         `json:"selected_option"`
	WrittenAnswer   *string         `json:"written_answer"`
	CorrectOption   *string         `json:"correct_option"`
	IsCorrect       bool            `json:"is_correct"`
	ConfidenceLevel string          `json:"confidence_level"`
	TimeSpent       int             `json:"time_spent"`
	QuestionType    QuestionType    `json:"question_type"`
	InteractionLog  json.RawMessage `json:"interaction_log,omitempty"`
}

// TempAnswer is the crash-recovery snapshot of a single answer, upserted
// keyed by (attempt_id, question_id) while the exam is in progress.
type TempAnswer struct {
	AttemptID       uuid.UUID       `json:"attempt_id"`
	QuestionID      uuid.UUID       `json:"question_id"`
	SelectedOption  *string         `json:"selected_option"`
	WrittenAnswer   *string         `json:"written_answer"`
	ConfidenceLevel string          `json:"confidence_level"`
	TimeSpent       int             `json:"time_spent"`
	InteractionLog  json.RawMessage `json:"interaction_log,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// StartAttemptRequest is the payload for a student starting an exam.
type StartAttemptRequest struct {
	ExamID string `json:"exam_id" binding:"required,uuid"`
}
