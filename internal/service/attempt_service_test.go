package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/apexamhq/apexam-backend/internal/session"
)

func strPtr(s string) *string { return &s }

func TestComputeRawScore(t *testing.T) {
	q1, q2, q3, q4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	frq := uuid.New()

	answerKey := map[uuid.UUID]string{q1: "B", q2: "B", q3: "B", q4: "B"}

	tests := []struct {
		name     string
		answers  []session.Answer
		wantRaw  int
		wantMCQ  int
	}{
		{
			name: "mixed answers",
			answers: []session.Answer{
				{QuestionID: q1, SelectedOption: strPtr("B")},
				{QuestionID: q2, SelectedOption: strPtr("A")},
				{QuestionID: q3, SelectedOption: strPtr("B")},
				{QuestionID: q4, SelectedOption: nil},
			},
			wantRaw: 2,
			wantMCQ: 4,
		},
		{
			name: "all correct",
			answers: []session.Answer{
				{QuestionID: q1, SelectedOption: strPtr("B")},
				{QuestionID: q2, SelectedOption: strPtr("B")},
				{QuestionID: q3, SelectedOption: strPtr("B")},
				{QuestionID: q4, SelectedOption: strPtr("B")},
			},
			wantRaw: 4,
			wantMCQ: 4,
		},
		{
			name:    "nothing answered",
			answers: []session.Answer{{QuestionID: q1}, {QuestionID: q2}},
			wantRaw: 0,
			wantMCQ: 4,
		},
		{
			name: "frq answers never count",
			answers: []session.Answer{
				{QuestionID: q1, SelectedOption: strPtr("B")},
				{QuestionID: frq, SelectedOption: strPtr("B"), WrittenAnswer: strPtr("work shown")},
			},
			wantRaw: 1,
			wantMCQ: 4,
		},
		{
			name: "case and whitespace are not normalized",
			answers: []session.Answer{
				{QuestionID: q1, SelectedOption: strPtr("b")},
				{QuestionID: q2, SelectedOption: strPtr(" B")},
			},
			wantRaw: 0,
			wantMCQ: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, total := ComputeRawScore(tt.answers, answerKey)
			assert.Equal(t, tt.wantRaw, raw)
			assert.Equal(t, tt.wantMCQ, total)
		})
	}
}
