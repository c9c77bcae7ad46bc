package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
	"github.com/apexamhq/apexam-backend/internal/session"
)

// Attempt lifecycle errors.
var (
	ErrExamNotAvailable    = errors.New("exam is not available")
	ErrAttemptNotActive    = errors.New("attempt is not active")
	ErrAttemptCompleted    = errors.New("attempt is already completed")
	ErrAttemptInconsistent = errors.New("attempt header and answer rows were not written as a unit")
)

// AttemptService orchestrates the attempt lifecycle: starting, pausing
// and the final submission that freezes a live session into PostgreSQL.
type AttemptService struct {
	attemptRepo *repository.AttemptRepository
	examService *ExamService
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	examService *ExamService,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		examService: examService,
		rdb:         rdb,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start creates (or returns the existing) attempt for a participant on a
// published exam. A completed attempt is returned as-is so the client
// can route to review.
func (s *AttemptService) Start(ctx context.Context, examID, participantID uuid.UUID) (*model.Attempt, error) {
	exam, err := s.examService.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotAvailable
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}

	attempt := &model.Attempt{ExamID: examID, ParticipantID: participantID}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	attempt.ExamID = examID
	attempt.ParticipantID = participantID
	return attempt, nil
}

// Get retrieves one attempt.
func (s *AttemptService) Get(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return s.attemptRepo.GetByID(ctx, id)
}

// GetByExamAndParticipant retrieves the attempt for one exam-participant
// pair.
func (s *AttemptService) GetByExamAndParticipant(ctx context.Context, examID, participantID uuid.UUID) (*model.Attempt, error) {
	return s.attemptRepo.GetByExamAndParticipant(ctx, examID, participantID)
}

// Pause records a pause.
func (s *AttemptService) Pause(ctx context.Context, id uuid.UUID) error {
	if err := s.attemptRepo.SetPaused(ctx, id, true); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotActive
		}
		return err
	}
	return nil
}

// Resume records a resume.
func (s *AttemptService) Resume(ctx context.Context, id uuid.UUID) error {
	if err := s.attemptRepo.SetPaused(ctx, id, false); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotActive
		}
		return err
	}
	return nil
}

// ComputeRawScore counts exact MCQ matches against the answer key. The
// denominator is the full MCQ set of the exam, not just the answered
// questions: an unanswered MCQ simply scores zero.
func ComputeRawScore(answers []session.Answer, answerKey map[uuid.UUID]string) (raw, totalMCQ int) {
	totalMCQ = len(answerKey)
	for _, a := range answers {
		correct, isMCQ := answerKey[a.QuestionID]
		if !isMCQ || a.SelectedOption == nil {
			continue
		}
		if *a.SelectedOption == correct {
			raw++
		}
	}
	return raw, totalMCQ
}

// Submit freezes the session into the database: it computes the raw MCQ
// score, builds one answer row per question and writes the attempt
// header plus all rows in a single transaction. A partial write never
// survives; any transaction failure surfaces as ErrAttemptInconsistent.
func (s *AttemptService) Submit(ctx context.Context, sess *session.Session) (*model.Attempt, error) {
	attemptID := sess.AttemptID()
	examID := sess.ExamID()

	answerKey, err := s.examService.GetAnswerKey(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	questions, err := s.examService.Questions(ctx, examID)
	if err != nil {
		return nil, err
	}
	questionTypes := make(map[uuid.UUID]model.QuestionType, len(questions))
	for i := range questions {
		questionTypes[questions[i].ID] = questions[i].Type
	}

	answers := sess.AnswersArray()
	raw, totalMCQ := ComputeRawScore(answers, answerKey)
	totalTime := sess.TotalTimeSpent()

	rows := make([]model.AnswerRow, 0, len(answers))
	for _, a := range answers {
		row := model.AnswerRow{
			AttemptID:       attemptID,
			QuestionID:      a.QuestionID,
			SelectedOption:  a.SelectedOption,
			WrittenAnswer:   a.WrittenAnswer,
			ConfidenceLevel: string(a.ConfidenceLevel),
			TimeSpent:       a.TimeSpent,
			QuestionType:    questionTypes[a.QuestionID],
		}
		if correct, ok := answerKey[a.QuestionID]; ok {
			row.CorrectOption = &correct
			row.IsCorrect = a.SelectedOption != nil && *a.SelectedOption == correct
		}
		if logRaw, err := json.Marshal(a.InteractionLog); err == nil {
			row.InteractionLog = logRaw
		}
		rows = append(rows, row)
	}

	attempt := &model.Attempt{
		ID:             attemptID,
		ExamID:         examID,
		Status:         model.AttemptStatusCompleted,
		RawScore:       &raw,
		TotalMCQ:       &totalMCQ,
		TotalTimeSpent: &totalTime,
	}

	if err := s.attemptRepo.Submit(ctx, attempt, rows); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptCompleted
		}
		return nil, fmt.Errorf("%w: %v", ErrAttemptInconsistent, err)
	}

	// Post-submit cleanup is best-effort; the result row is already safe.
	if err := s.attemptRepo.DeleteTempAnswers(ctx, attemptID); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to clear temp answers")
	}
	if err := s.rdb.Del(ctx, config.CacheKey.AttemptSnapshotKey(attemptID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to drop session snapshot")
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Int("raw_score", raw).
		Int("total_mcq", totalMCQ).
		Int("total_time_spent", totalTime).
		Msg("Attempt submitted")
	return attempt, nil
}

// ListAnswers retrieves the persisted answer rows of an attempt.
func (s *AttemptService) ListAnswers(ctx context.Context, attemptID uuid.UUID) ([]model.AnswerRow, error) {
	return s.attemptRepo.ListAnswers(ctx, attemptID)
}

// ListByExam retrieves all attempts of one exam for the monitor.
func (s *AttemptService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	return s.attemptRepo.ListByExam(ctx, examID)
}
