// Package grader scores free-response submissions. The only
// implementation today is a simulator returning fixture results; it sits
// behind an interface so a real model-backed grader can replace it
// without touching the worker.
package grader

import (
	"context"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// Result is the outcome of grading one free-response question.
type Result struct {
	Score    int                `json:"score"`
	MaxScore int                `json:"max_score"`
	Feedback string             `json:"feedback"`
	Rubric   []model.RubricItem `json:"rubric"`
}

// Grader scores an FRQ from its uploaded page images.
type Grader interface {
	Grade(ctx context.Context, question model.Question, pageURLs []string) (Result, error)
}
