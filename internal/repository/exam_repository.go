package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves a single exam with its phase plan.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	var phases []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, subject, phases, status, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.Subject, &phases, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(phases, &e.Phases); err != nil {
		return nil, fmt.Errorf("decode phase plan: %w", err)
	}
	return e, nil
}

// ListPublished retrieves all exams visible to students.
func (r *ExamRepository) ListPublished(ctx context.Context) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, subject, phases, status, created_at, updated_at
		 FROM exams
		 WHERE status = $1
		 ORDER BY created_at DESC`, model.ExamStatusPublished,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		var phases []byte
		if err := rows.Scan(&e.ID, &e.Title, &e.Subject, &phases, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(phases, &e.Phases); err != nil {
			return nil, fmt.Errorf("decode phase plan for exam %s: %w", e.ID, err)
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	phases, err := json.Marshal(e.Phases)
	if err != nil {
		return fmt.Errorf("encode phase plan: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, subject, phases, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Subject, phases, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// UpdateStatus publishes or archives an exam.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ExamStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}
