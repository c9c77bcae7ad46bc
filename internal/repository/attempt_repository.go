package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// AttemptRepository handles attempt and answer data access. The attempt
// header and its answer rows are written in one transaction: either the
// full result lands or nothing does.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new in-progress attempt. A participant gets one
// attempt per exam; re-joining returns the existing row untouched.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (exam_id, participant_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (exam_id, participant_id) DO UPDATE SET exam_id = EXCLUDED.exam_id
		 RETURNING id, status, started_at`,
		a.ExamID, a.ParticipantID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.Status, &a.StartedAt)
}

// GetByID retrieves a single attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, participant_id, status, raw_score, total_mcq,
		        total_time_spent, started_at, paused_at, resumed_at, submitted_at
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.ExamID, &a.ParticipantID, &a.Status, &a.RawScore, &a.TotalMCQ,
		&a.TotalTimeSpent, &a.StartedAt, &a.PausedAt, &a.ResumedAt, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByExamAndParticipant retrieves the attempt for one exam-participant
// pair.
func (r *AttemptRepository) GetByExamAndParticipant(ctx context.Context, examID, participantID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, participant_id, status, raw_score, total_mcq,
		        total_time_spent, started_at, paused_at, resumed_at, submitted_at
		 FROM attempts WHERE exam_id = $1 AND participant_id = $2`,
		examID, participantID,
	).Scan(&a.ID, &a.ExamID, &a.ParticipantID, &a.Status, &a.RawScore, &a.TotalMCQ,
		&a.TotalTimeSpent, &a.StartedAt, &a.PausedAt, &a.ResumedAt, &a.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListByExam retrieves all attempts for an exam, newest first.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, participant_id, status, raw_score, total_mcq,
		        total_time_spent, started_at, paused_at, resumed_at, submitted_at
		 FROM attempts
		 WHERE exam_id = $1
		 ORDER BY started_at DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.ID, &a.ExamID, &a.ParticipantID, &a.Status, &a.RawScore,
			&a.TotalMCQ, &a.TotalTimeSpent, &a.StartedAt, &a.PausedAt, &a.ResumedAt,
			&a.SubmittedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// SetPaused records a pause or resume timestamp and flips the status.
func (r *AttemptRepository) SetPaused(ctx context.Context, id uuid.UUID, paused bool) error {
	var query string
	if paused {
		query = `UPDATE attempts SET status = 'paused', paused_at = NOW()
		         WHERE id = $1 AND status = 'in_progress'`
	} else {
		query = `UPDATE attempts SET status = 'in_progress', resumed_at = NOW()
		         WHERE id = $1 AND status = 'paused'`
	}
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Submit completes the attempt and bulk inserts its answer rows in a
// single transaction.
func (r *AttemptRepository) Submit(ctx context.Context, a *model.Attempt, answers []model.AnswerRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin submit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	tag, err := tx.Exec(ctx,
		`UPDATE attempts
		 SET status = 'completed',
		     raw_score = $1,
		     total_mcq = $2,
		     total_time_spent = $3,
		     submitted_at = $4
		 WHERE id = $5 AND status IN ('in_progress', 'paused')`,
		a.RawScore, a.TotalMCQ, a.TotalTimeSpent, now, a.ID)
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if err := bulkInsertAnswers(ctx, tx, a.ID, answers); err != nil {
		return fmt.Errorf("insert answers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit submit tx: %w", err)
	}

	a.Status = model.AttemptStatusCompleted
	a.SubmittedAt = &now
	return nil
}

// bulkInsertAnswers writes all answer rows in one statement using
// UNNEST.
func bulkInsertAnswers(ctx context.Context, tx pgx.Tx, attemptID uuid.UUID, answers []model.AnswerRow) error {
	n := len(answers)
	if n == 0 {
		return nil
	}

	attemptIDs := make([]uuid.UUID, n)
	questionIDs := make([]uuid.UUID, n)
	selected := make([]*string, n)
	written := make([]*string, n)
	correct := make([]*string, n)
	isCorrect := make([]bool, n)
	confidence := make([]string, n)
	timeSpent := make([]int, n)
	qTypes := make([]string, n)
	logs := make([][]byte, n)

	for i, ans := range answers {
		attemptIDs[i] = attemptID
		questionIDs[i] = ans.QuestionID
		selected[i] = ans.SelectedOption
		written[i] = ans.WrittenAnswer
		correct[i] = ans.CorrectOption
		isCorrect[i] = ans.IsCorrect
		confidence[i] = ans.ConfidenceLevel
		timeSpent[i] = ans.TimeSpent
		qTypes[i] = string(ans.QuestionType)
		if len(ans.InteractionLog) > 0 {
			logs[i] = ans.InteractionLog
		} else {
			logs[i] = []byte("[]")
		}
	}

	query := `
		INSERT INTO answers (attempt_id, question_id, selected_option, written_answer,
		                     correct_option, is_correct, confidence_level, time_spent,
		                     question_type, interaction_log)
		SELECT
			u.attempt_id,
			u.question_id,
			u.selected_option,
			u.written_answer,
			u.correct_option,
			u.is_correct,
			u.confidence_level,
			u.time_spent,
			u.question_type,
			u.interaction_log
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::text[],
			$5::text[],
			$6::bool[],
			$7::text[],
			$8::int[],
			$9::text[],
			$10::jsonb[]
		) AS u (attempt_id, question_id, selected_option, written_answer,
		        correct_option, is_correct, confidence_level, time_spent,
		        question_type, interaction_log)
	`

	_, err := tx.Exec(ctx, query, attemptIDs, questionIDs, selected, written,
		correct, isCorrect, confidence, timeSpent, qTypes, logs)
	return err
}

// ListAnswers retrieves the persisted answer rows of a completed
// attempt, ordered by the question sequence.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.attempt_id, a.question_id, a.selected_option, a.written_answer,
		        a.correct_option, a.is_correct, a.confidence_level, a.time_spent,
		        a.question_type, a.interaction_log
		 FROM answers a
		 JOIN questions q ON a.question_id = q.id
		 WHERE a.attempt_id = $1
		 ORDER BY q.order_num`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.AnswerRow
	for rows.Next() {
		var ans model.AnswerRow
		if err := rows.Scan(&ans.ID, &ans.AttemptID, &ans.QuestionID, &ans.SelectedOption,
			&ans.WrittenAnswer, &ans.CorrectOption, &ans.IsCorrect, &ans.ConfidenceLevel,
			&ans.TimeSpent, &ans.QuestionType, &ans.InteractionLog); err != nil {
			return nil, err
		}
		answers = append(answers, ans)
	}
	return answers, rows.Err()
}

// UpsertTempAnswers writes crash-recovery snapshots keyed by
// (attempt_id, question_id) in one UNNEST statement.
func (r *AttemptRepository) UpsertTempAnswers(ctx context.Context, temps []model.TempAnswer) error {
	n := len(temps)
	if n == 0 {
		return nil
	}

	attemptIDs := make([]uuid.UUID, n)
	questionIDs := make([]uuid.UUID, n)
	selected := make([]*string, n)
	written := make([]*string, n)
	confidence := make([]string, n)
	timeSpent := make([]int, n)
	logs := make([][]byte, n)

	for i, t := range temps {
		attemptIDs[i] = t.AttemptID
		questionIDs[i] = t.QuestionID
		selected[i] = t.SelectedOption
		written[i] = t.WrittenAnswer
		confidence[i] = t.ConfidenceLevel
		timeSpent[i] = t.TimeSpent
		if len(t.InteractionLog) > 0 {
			logs[i] = t.InteractionLog
		} else {
			logs[i] = []byte("[]")
		}
	}

	query := `
		INSERT INTO temp_answers (attempt_id, question_id, selected_option, written_answer,
		                          confidence_level, time_spent, interaction_log, updated_at)
		SELECT
			u.attempt_id, u.question_id, u.selected_option, u.written_answer,
			u.confidence_level, u.time_spent, u.interaction_log, NOW()
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::text[],
			$4::text[],
			$5::text[],
			$6::int[],
			$7::jsonb[]
		) AS u (attempt_id, question_id, selected_option, written_answer,
		        confidence_level, time_spent, interaction_log)
		ON CONFLICT (attempt_id, question_id) DO UPDATE
		SET selected_option = EXCLUDED.selected_option,
		    written_answer = EXCLUDED.written_answer,
		    confidence_level = EXCLUDED.confidence_level,
		    time_spent = EXCLUDED.time_spent,
		    interaction_log = EXCLUDED.interaction_log,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, attemptIDs, questionIDs, selected, written,
		confidence, timeSpent, logs)
	return err
}

// DeleteTempAnswers clears the crash-recovery rows after a successful
// submission.
func (r *AttemptRepository) DeleteTempAnswers(ctx context.Context, attemptID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM temp_answers WHERE attempt_id = $1`, attemptID)
	return err
}

// ListTempAnswers retrieves the crash-recovery rows of an attempt.
func (r *AttemptRepository) ListTempAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.TempAnswer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, selected_option, written_answer,
		        confidence_level, time_spent, interaction_log, updated_at
		 FROM temp_answers WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var temps []model.TempAnswer
	for rows.Next() {
		var t model.TempAnswer
		var log json.RawMessage
		if err := rows.Scan(&t.AttemptID, &t.QuestionID, &t.SelectedOption, &t.WrittenAnswer,
			&t.ConfidenceLevel, &t.TimeSpent, &log, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.InteractionLog = log
		temps = append(temps, t)
	}
	return temps, rows.Err()
}
