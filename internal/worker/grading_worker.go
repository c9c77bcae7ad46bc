package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/grader"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
	"github.com/apexamhq/apexam-backend/internal/service"
)

const GradingPollTimeout = 1 * time.Second

// GradingWorker consumes grade_frq_queue: one job per FRQ question of a
// submitted attempt. Jobs run one at a time since the grader dominates
// the latency; a failed job is requeued.
type GradingWorker struct {
	questionRepo *repository.QuestionRepository
	gradingRepo  *repository.GradingRepository
	grader       grader.Grader
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewGradingWorker creates a new GradingWorker.
func NewGradingWorker(
	questionRepo *repository.QuestionRepository,
	gradingRepo *repository.GradingRepository,
	g grader.Grader,
	rdb *redis.Client,
	log zerolog.Logger,
) *GradingWorker {
	return &GradingWorker{
		questionRepo: questionRepo,
		gradingRepo:  gradingRepo,
		grader:       g,
		rdb:          rdb,
		log:          log.With().Str("component", "grading_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("GradingWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("GradingWorker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *GradingWorker) processNext(ctx context.Context) {
	item, err := w.rdb.BLPop(ctx, GradingPollTimeout, config.WorkerKey.GradeFRQQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(item) < 2 {
		return
	}

	var job service.GradeJob
	if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.grade(ctx, &job); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", job.AttemptID.String()).
			Str("question_id", job.QuestionID.String()).
			Msg("Grading failed, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.GradeFRQQueue, item[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *GradingWorker) grade(ctx context.Context, job *service.GradeJob) error {
	question, err := w.questionRepo.GetByID(ctx, job.QuestionID)
	if err != nil {
		return err
	}

	result, err := w.grader.Grade(ctx, *question, job.PageURLs)
	if err != nil {
		return err
	}

	g := &model.FRQGrade{
		AttemptID:  job.AttemptID,
		QuestionID: job.QuestionID,
		Score:      result.Score,
		MaxScore:   result.MaxScore,
		Feedback:   result.Feedback,
		Rubric:     result.Rubric,
	}
	if err := w.gradingRepo.Upsert(ctx, g); err != nil {
		return err
	}

	w.log.Info().
		Str("attempt_id", job.AttemptID.String()).
		Str("question_id", job.QuestionID.String()).
		Int("score", result.Score).
		Int("max_score", result.MaxScore).
		Msg("FRQ graded")
	return nil
}
