package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// FRQSubmissionRepository handles uploaded FRQ page data access.
type FRQSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewFRQSubmissionRepository creates a new FRQSubmissionRepository.
func NewFRQSubmissionRepository(pool *pgxpool.Pool) *FRQSubmissionRepository {
	return &FRQSubmissionRepository{pool: pool}
}

// Upsert records an uploaded page. Re-uploading the same
// (participant, question, page) replaces the previous file reference.
func (r *FRQSubmissionRepository) Upsert(ctx context.Context, s *model.FRQSubmission) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO frq_submissions (participant_id, question_id, page_key,
		                              file_url, file_name, submitted_by, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (participant_id, question_id, page_key) DO UPDATE
		 SET file_url = EXCLUDED.file_url,
		     file_name = EXCLUDED.file_name,
		     submitted_by = EXCLUDED.submitted_by,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, updated_at`,
		s.ParticipantID, s.QuestionID, s.PageKey, s.FileURL, s.FileName, s.SubmittedBy,
	).Scan(&s.ID, &s.UpdatedAt)
}

// ListByParticipant retrieves all uploaded pages of one participant.
func (r *FRQSubmissionRepository) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]model.FRQSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_id, question_id, page_key, file_url, file_name,
		        submitted_by, updated_at
		 FROM frq_submissions
		 WHERE participant_id = $1
		 ORDER BY question_id, page_key`, participantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.FRQSubmission
	for rows.Next() {
		var s model.FRQSubmission
		if err := rows.Scan(&s.ID, &s.ParticipantID, &s.QuestionID, &s.PageKey,
			&s.FileURL, &s.FileName, &s.SubmittedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListByParticipantAndQuestion retrieves the uploaded pages of one FRQ.
func (r *FRQSubmissionRepository) ListByParticipantAndQuestion(ctx context.Context, participantID, questionID uuid.UUID) ([]model.FRQSubmission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, participant_id, question_id, page_key, file_url, file_name,
		        submitted_by, updated_at
		 FROM frq_submissions
		 WHERE participant_id = $1 AND question_id = $2
		 ORDER BY page_key`, participantID, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.FRQSubmission
	for rows.Next() {
		var s model.FRQSubmission
		if err := rows.Scan(&s.ID, &s.ParticipantID, &s.QuestionID, &s.PageKey,
			&s.FileURL, &s.FileName, &s.SubmittedBy, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}
