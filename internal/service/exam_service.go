package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
)

// Domain errors.
var (
	ErrExamNotPublished = errors.New("exam status is not PUBLISHED")
	ErrExamNotDraft     = errors.New("exam status is not DRAFT")
	ErrNoQuestions      = errors.New("exam has no questions, cannot publish")
	ErrNoPhases         = errors.New("exam has no phase plan, cannot publish")
)

// ExamService handles exam business logic and Redis caching. Published
// exams keep their full payload and MCQ answer key in Redis so the hot
// path (students joining and submitting) never touches PostgreSQL.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// ListPublished retrieves the exams visible to students.
func (s *ExamService) ListPublished(ctx context.Context) ([]model.Exam, error) {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// Create inserts a new exam as DRAFT with its questions.
func (s *ExamService) Create(ctx context.Context, exam *model.Exam, questions []model.Question) error {
	exam.Status = model.ExamStatusDraft
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return fmt.Errorf("create exam: %w", err)
	}
	for i := range questions {
		questions[i].ExamID = exam.ID
		if err := s.questionRepo.Create(ctx, &questions[i]); err != nil {
			return fmt.Errorf("create question %d: %w", questions[i].Number, err)
		}
	}
	return nil
}

// Publish moves an exam to PUBLISHED and prewarms its caches.
func (s *ExamService) Publish(ctx context.Context, examID uuid.UUID) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusDraft {
		return ErrExamNotDraft
	}
	if len(exam.Phases) == 0 {
		return ErrNoPhases
	}

	if err := s.WarmExamCache(ctx, exam); err != nil {
		return err
	}

	if err := s.examRepo.UpdateStatus(ctx, examID, model.ExamStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// WarmExamCache builds and stores the exam payload plus the MCQ answer
// key in Redis.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.Questions(ctx, exam.ID)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	payload := model.ExamPayload{
		ExamID:    exam.ID,
		Title:     exam.Title,
		Subject:   exam.Subject,
		Phases:    exam.Phases,
		Questions: make([]model.QuestionForStudent, 0, len(questions)),
	}
	answerKey := make(map[uuid.UUID]string)
	for i := range questions {
		payload.Questions = append(payload.Questions, questions[i].ForStudent())
		if questions[i].IsMCQ() {
			answerKey[questions[i].ID] = *questions[i].CorrectOption
		}
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	rawKey, err := json.Marshal(answerKey)
	if err != nil {
		return fmt.Errorf("encode answer key: %w", err)
	}

	examID := exam.ID.String()
	if err := s.rdb.Set(ctx, config.CacheKey.ExamPayloadKey(examID), rawPayload, 0).Err(); err != nil {
		return fmt.Errorf("cache payload: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamAnswerKey(examID), rawKey, 0).Err(); err != nil {
		return fmt.Errorf("cache answer key: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID).
		Int("questions", len(questions)).
		Int("mcq", len(answerKey)).
		Msg("Exam cache warmed")
	return nil
}

// PrewarmPublishedExams fills the caches for every published exam at
// boot so the first student in never hits a cold cache.
func (s *ExamService) PrewarmPublishedExams(ctx context.Context) error {
	exams, err := s.examRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published exams: %w", err)
	}
	for i := range exams {
		if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
			s.log.Error().Err(err).
				Str("exam_id", exams[i].ID.String()).
				Msg("Failed to prewarm exam cache")
		}
	}
	return nil
}

// Questions returns the canonical question list of an exam. Rows whose
// stored data cannot back their declared type (an MCQ without options or
// a correct option, an FRQ without upload pages) are skipped with a
// warning rather than poisoning the whole exam.
func (s *ExamService) Questions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := s.questionRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	questions := make([]model.Question, 0, len(rows))
	for i := range rows {
		if reason := validateQuestion(&rows[i]); reason != "" {
			s.log.Warn().
				Str("exam_id", examID.String()).
				Str("question_id", rows[i].ID.String()).
				Str("reason", reason).
				Msg("Skipping malformed question")
			continue
		}
		questions = append(questions, rows[i])
	}
	return questions, nil
}

func validateQuestion(q *model.Question) string {
	switch q.Type {
	case model.QuestionTypeMCQ:
		if len(q.Options) == 0 {
			return "mcq has no options"
		}
		if q.CorrectOption == nil || *q.CorrectOption == "" {
			return "mcq has no correct option"
		}
	case model.QuestionTypeFRQ:
		if len(q.Pages) == 0 {
			return "frq has no upload pages"
		}
	default:
		return fmt.Sprintf("unknown question type %q", q.Type)
	}
	return ""
}

// GetPayload returns the cached student payload, rebuilding the cache
// from PostgreSQL on a miss.
func (s *ExamService) GetPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Result()
	if err == nil {
		payload := &model.ExamPayload{}
		if err := json.Unmarshal([]byte(raw), payload); err == nil {
			return payload, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt cached payload, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached payload: %w", err)
	}

	// Cache miss. Rebuild from the source of truth and self-heal.
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotPublished
	}
	if err := s.WarmExamCache(ctx, exam); err != nil {
		return nil, err
	}

	questions, err := s.Questions(ctx, examID)
	if err != nil {
		return nil, err
	}
	payload := &model.ExamPayload{
		ExamID:    exam.ID,
		Title:     exam.Title,
		Subject:   exam.Subject,
		Phases:    exam.Phases,
		Questions: make([]model.QuestionForStudent, 0, len(questions)),
	}
	for i := range questions {
		payload.Questions = append(payload.Questions, questions[i].ForStudent())
	}
	return payload, nil
}

// GetAnswerKey returns the cached MCQ answer key, rebuilding on a miss.
func (s *ExamService) GetAnswerKey(ctx context.Context, examID uuid.UUID) (map[uuid.UUID]string, error) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err == nil {
		key := make(map[uuid.UUID]string)
		if err := json.Unmarshal([]byte(raw), &key); err == nil {
			return key, nil
		}
		s.log.Warn().Str("exam_id", examID.String()).Msg("Corrupt cached answer key, rebuilding")
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cached answer key: %w", err)
	}

	questions, err := s.Questions(ctx, examID)
	if err != nil {
		return nil, err
	}
	key := make(map[uuid.UUID]string)
	for i := range questions {
		if questions[i].IsMCQ() {
			key[questions[i].ID] = *questions[i].CorrectOption
		}
	}
	return key, nil
}
