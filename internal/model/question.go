package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType is the tagged variant discriminator for questions.
type QuestionType string

const (
	// QuestionTypeMCQ is a multiple-choice question with a single correct
	// option among a fixed set, answered on screen.
	QuestionTypeMCQ QuestionType = "mcq"
	// QuestionTypeFRQ is a free-response question answered on paper and
	// submitted as photographed page images.
	QuestionTypeFRQ QuestionType = "frq"
)

// Option is a single MCQ choice.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a single exam question. Immutable for the lifetime of an
// attempt. MCQ questions carry Options and CorrectOption; FRQ questions
// carry Pages (upload page keys) and optionally a Rubric.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	ExamID        uuid.UUID       `json:"exam_id"`
	Number        int             `json:"question_number"`
	Type          QuestionType    `json:"question_type"`
	Text          string          `json:"question_text"`
	Passage       *string         `json:"passage,omitempty"`
	ImageURL      *string         `json:"image_url,omitempty"`
	Options       []Option        `json:"options,omitempty"`
	CorrectOption *string         `json:"correct_option,omitempty"`
	Pages         []string        `json:"pages,omitempty"`
	Rubric        json.RawMessage `json:"rubric,omitempty"`
	Explanation   *string         `json:"explanation,omitempty"`
	OrderNum      int             `json:"order_num"`
}

// IsMCQ reports whether the question is graded against a correct option.
func (q *Question) IsMCQ() bool { return q.Type == QuestionTypeMCQ }

// IsFRQ reports whether the question is answered via page uploads.
func (q *Question) IsFRQ() bool { return q.Type == QuestionTypeFRQ }

// QuestionForStudent is a question with grading metadata stripped, sent
// to students while the exam is in progress.
type QuestionForStudent struct {
	ID       uuid.UUID    `json:"id"`
	Number   int          `json:"question_number"`
	Type     QuestionType `json:"question_type"`
	Text     string       `json:"question_text"`
	Passage  *string      `json:"passage,omitempty"`
	ImageURL *string      `json:"image_url,omitempty"`
	Options  []Option     `json:"options,omitempty"`
	Pages    []string     `json:"pages,omitempty"`
	OrderNum int          `json:"order_num"`
}

// ForStudent strips correct option, explanation and rubric.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:       q.ID,
		Number:   q.Number,
		Type:     q.Type,
		Text:     q.Text,
		Passage:  q.Passage,
		ImageURL: q.ImageURL,
		Options:  q.Options,
		Pages:    q.Pages,
		OrderNum: q.OrderNum,
	}
}
