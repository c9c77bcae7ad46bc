package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// GradingRepository handles FRQ grade data access.
type GradingRepository struct {
	pool *pgxpool.Pool
}

// NewGradingRepository creates a new GradingRepository.
func NewGradingRepository(pool *pgxpool.Pool) *GradingRepository {
	return &GradingRepository{pool: pool}
}

// Upsert records a grading result. A regrade replaces the previous one.
func (r *GradingRepository) Upsert(ctx context.Context, g *model.FRQGrade) error {
	rubric, err := json.Marshal(g.Rubric)
	if err != nil {
		return fmt.Errorf("encode rubric: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO frq_grades (attempt_id, question_id, score, max_score,
		                         feedback, rubric, graded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET score = EXCLUDED.score,
		     max_score = EXCLUDED.max_score,
		     feedback = EXCLUDED.feedback,
		     rubric = EXCLUDED.rubric,
		     graded_at = EXCLUDED.graded_at
		 RETURNING id, graded_at`,
		g.AttemptID, g.QuestionID, g.Score, g.MaxScore, g.Feedback, rubric,
	).Scan(&g.ID, &g.GradedAt)
}

// ListByAttempt retrieves all grading results for one attempt.
func (r *GradingRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.FRQGrade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, score, max_score, feedback, rubric, graded_at
		 FROM frq_grades
		 WHERE attempt_id = $1
		 ORDER BY question_id`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grades []model.FRQGrade
	for rows.Next() {
		var g model.FRQGrade
		var rubric []byte
		if err := rows.Scan(&g.ID, &g.AttemptID, &g.QuestionID, &g.Score, &g.MaxScore,
			&g.Feedback, &rubric, &g.GradedAt); err != nil {
			return nil, err
		}
		if len(rubric) > 0 {
			if err := json.Unmarshal(rubric, &g.Rubric); err != nil {
				return nil, fmt.Errorf("decode rubric for grade %s: %w", g.ID, err)
			}
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// Get retrieves one question's grading result for an attempt.
func (r *GradingRepository) Get(ctx context.Context, attemptID, questionID uuid.UUID) (*model.FRQGrade, error) {
	g := &model.FRQGrade{}
	var rubric []byte
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, question_id, score, max_score, feedback, rubric, graded_at
		 FROM frq_grades
		 WHERE attempt_id = $1 AND question_id = $2`, attemptID, questionID,
	).Scan(&g.ID, &g.AttemptID, &g.QuestionID, &g.Score, &g.MaxScore, &g.Feedback, &rubric, &g.GradedAt)
	if err != nil {
		return nil, err
	}
	if len(rubric) > 0 {
		if err := json.Unmarshal(rubric, &g.Rubric); err != nil {
			return nil, fmt.Errorf("decode rubric: %w", err)
		}
	}
	return g, nil
}
