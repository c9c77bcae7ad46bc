package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// Exam represents an exam entity. The phase plan is stored as JSONB and
// decoded into []Phase.
type Exam struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Subject   string     `json:"subject"`
	Phases    []Phase    `json:"phases"`
	Status    ExamStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ExamPayload is the Redis-cached payload sent to students: questions
// without grading metadata plus the phase plan.
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Title     string               `json:"title"`
	Subject   string               `json:"subject"`
	Phases    []Phase              `json:"phases"`
	Questions []QuestionForStudent `json:"questions"`
}
