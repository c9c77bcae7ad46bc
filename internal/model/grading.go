package model

import (
	"time"

	"github.com/google/uuid"
)

// RubricItem is one scoring criterion of an FRQ rubric, independently
// satisfied or not.
type RubricItem struct {
	Criterion string `json:"criterion"`
	Met       bool   `json:"met"`
}

// FRQGrade is the persisted AI-assisted grading result for one FRQ
// question of one attempt.
type FRQGrade struct {
	ID         uuid.UUID    `json:"id"`
	AttemptID  uuid.UUID    `json:"attempt_id"`
	QuestionID uuid.UUID    `json:"question_id"`
	Score      int          `json:"score"`
	MaxScore   int          `json:"max_score"`
	Feedback   string       `json:"feedback"`
	Rubric     []RubricItem `json:"rubric"`
	GradedAt   time.Time    `json:"graded_at"`
}
