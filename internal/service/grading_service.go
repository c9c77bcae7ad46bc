package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
)

// GradeJob is one FRQ grading request queued for the grading worker.
type GradeJob struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID uuid.UUID `json:"question_id"`
	PageURLs   []string  `json:"page_urls"`
}

// GradingService queues FRQ grading work after submission and serves
// the results back for review.
type GradingService struct {
	gradingRepo *repository.GradingRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewGradingService creates a new GradingService.
func NewGradingService(gradingRepo *repository.GradingRepository, rdb *redis.Client, log zerolog.Logger) *GradingService {
	return &GradingService{
		gradingRepo: gradingRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "grading_service").Logger(),
	}
}

// EnqueueAttempt queues one grading job per FRQ question that has at
// least one uploaded page.
func (s *GradingService) EnqueueAttempt(ctx context.Context, attemptID uuid.UUID, questions []model.Question, pages map[uuid.UUID][]string) error {
	queued := 0
	for i := range questions {
		if !questions[i].IsFRQ() {
			continue
		}
		urls := pages[questions[i].ID]
		if len(urls) == 0 {
			continue // nothing to grade
		}
		raw, err := json.Marshal(GradeJob{
			AttemptID:  attemptID,
			QuestionID: questions[i].ID,
			PageURLs:   urls,
		})
		if err != nil {
			return fmt.Errorf("encode grade job: %w", err)
		}
		if err := s.rdb.RPush(ctx, config.WorkerKey.GradeFRQQueue, raw).Err(); err != nil {
			return fmt.Errorf("enqueue grade job: %w", err)
		}
		queued++
	}

	if queued > 0 {
		s.log.Info().
			Str("attempt_id", attemptID.String()).
			Int("jobs", queued).
			Msg("FRQ grading queued")
	}
	return nil
}

// ListByAttempt retrieves the grading results of one attempt.
func (s *GradingService) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.FRQGrade, error) {
	return s.gradingRepo.ListByAttempt(ctx, attemptID)
}
