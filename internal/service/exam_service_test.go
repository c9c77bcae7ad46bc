package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/apexamhq/apexam-backend/internal/model"
)

func TestValidateQuestion(t *testing.T) {
	options := []model.Option{{Key: "A", Text: "first"}, {Key: "B", Text: "second"}}

	tests := []struct {
		name     string
		question model.Question
		wantOK   bool
	}{
		{
			name: "valid mcq",
			question: model.Question{
				ID: uuid.New(), Type: model.QuestionTypeMCQ,
				Options: options, CorrectOption: strPtr("B"),
			},
			wantOK: true,
		},
		{
			name: "valid frq",
			question: model.Question{
				ID: uuid.New(), Type: model.QuestionTypeFRQ,
				Pages: []string{"page1", "page2"},
			},
			wantOK: true,
		},
		{
			name:     "mcq without options",
			question: model.Question{ID: uuid.New(), Type: model.QuestionTypeMCQ, CorrectOption: strPtr("B")},
			wantOK:   false,
		},
		{
			name:     "mcq without correct option",
			question: model.Question{ID: uuid.New(), Type: model.QuestionTypeMCQ, Options: options},
			wantOK:   false,
		},
		{
			name:     "mcq with empty correct option",
			question: model.Question{ID: uuid.New(), Type: model.QuestionTypeMCQ, Options: options, CorrectOption: strPtr("")},
			wantOK:   false,
		},
		{
			name:     "frq without pages",
			question: model.Question{ID: uuid.New(), Type: model.QuestionTypeFRQ},
			wantOK:   false,
		},
		{
			name:     "unknown type",
			question: model.Question{ID: uuid.New(), Type: "essay"},
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := validateQuestion(&tt.question)
			if tt.wantOK {
				assert.Empty(t, reason)
			} else {
				assert.NotEmpty(t, reason)
			}
		})
	}
}
