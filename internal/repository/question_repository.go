package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for an exam ordered by order_num.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_number, question_type, question_text,
		        passage, image_url, options, correct_option, pages, rubric,
		        explanation, order_num
		 FROM questions
		 WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a single question.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, question_number, question_type, question_text,
		        passage, image_url, options, correct_option, pages, rubric,
		        explanation, order_num
		 FROM questions WHERE id = $1`, id,
	)
	q, err := scanQuestion(row.Scan)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	pages, err := json.Marshal(q.Pages)
	if err != nil {
		return fmt.Errorf("encode pages: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, question_number, question_type, question_text,
		                        passage, image_url, options, correct_option, pages,
		                        rubric, explanation, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		q.ExamID, q.Number, q.Type, q.Text, q.Passage, q.ImageURL,
		options, q.CorrectOption, pages, q.Rubric, q.Explanation, q.OrderNum,
	).Scan(&q.ID)
}

// scanQuestion decodes one question row including its JSONB columns.
func scanQuestion(scan func(dest ...any) error) (model.Question, error) {
	var q model.Question
	var options, pages []byte
	if err := scan(
		&q.ID, &q.ExamID, &q.Number, &q.Type, &q.Text,
		&q.Passage, &q.ImageURL, &options, &q.CorrectOption, &pages,
		&q.Rubric, &q.Explanation, &q.OrderNum,
	); err != nil {
		return model.Question{}, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return model.Question{}, fmt.Errorf("decode options for question %s: %w", q.ID, err)
		}
	}
	if len(pages) > 0 {
		if err := json.Unmarshal(pages, &q.Pages); err != nil {
			return model.Question{}, fmt.Errorf("decode pages for question %s: %w", q.ID, err)
		}
	}
	return q, nil
}
