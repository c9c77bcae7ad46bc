package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
	"github.com/apexamhq/apexam-backend/internal/storage"
)

// Upload validation errors.
var (
	ErrNotFRQQuestion = errors.New("question does not accept page uploads")
	ErrUnknownPageKey = errors.New("page key is not defined for this question")
)

// UploadService handles FRQ page uploads arriving from the mobile
// capture flow: it stores the image, upserts the submission row and
// fans the event out to the student's exam screen and the teacher
// monitor.
type UploadService struct {
	frqRepo      *repository.FRQSubmissionRepository
	questionRepo *repository.QuestionRepository
	store        storage.Store
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(
	frqRepo *repository.FRQSubmissionRepository,
	questionRepo *repository.QuestionRepository,
	store storage.Store,
	rdb *redis.Client,
	log zerolog.Logger,
) *UploadService {
	return &UploadService{
		frqRepo:      frqRepo,
		questionRepo: questionRepo,
		store:        store,
		rdb:          rdb,
		log:          log.With().Str("component", "upload_service").Logger(),
	}
}

// SaveUpload validates, stores and records one uploaded page, then
// publishes the upload event. Re-uploading the same page replaces the
// previous file reference.
func (s *UploadService) SaveUpload(
	ctx context.Context,
	participantID, questionID uuid.UUID,
	pageKey string,
	file io.Reader,
	size int64,
	contentType, fileName, submittedBy string,
) (*model.FRQSubmission, error) {
	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	if !question.IsFRQ() {
		return nil, ErrNotFRQQuestion
	}
	if !pageDefined(question.Pages, pageKey) {
		return nil, ErrUnknownPageKey
	}

	url, err := s.store.Save(ctx, file, size, contentType)
	if err != nil {
		return nil, err
	}

	sub := &model.FRQSubmission{
		ParticipantID: participantID,
		QuestionID:    questionID,
		PageKey:       pageKey,
		FileURL:       url,
		FileName:      fileName,
		SubmittedBy:   submittedBy,
	}
	if err := s.frqRepo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("record submission: %w", err)
	}

	s.publish(ctx, question.ExamID, model.UploadEvent{
		ParticipantID: participantID,
		QuestionID:    questionID,
		PageKey:       pageKey,
		FileURL:       sub.FileURL,
		FileName:      sub.FileName,
		SubmittedBy:   sub.SubmittedBy,
		OccurredAt:    sub.UpdatedAt,
	})

	s.log.Info().
		Str("participant_id", participantID.String()).
		Str("question_id", questionID.String()).
		Str("page_key", pageKey).
		Str("submitted_by", submittedBy).
		Msg("FRQ page uploaded")
	return sub, nil
}

// ListByParticipant retrieves all uploaded pages of one participant.
func (s *UploadService) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]model.FRQSubmission, error) {
	return s.frqRepo.ListByParticipant(ctx, participantID)
}

// PageURLs groups a participant's uploads by question for grading.
func (s *UploadService) PageURLs(ctx context.Context, participantID uuid.UUID) (map[uuid.UUID][]string, error) {
	subs, err := s.frqRepo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID][]string)
	for _, sub := range subs {
		out[sub.QuestionID] = append(out[sub.QuestionID], sub.FileURL)
	}
	return out, nil
}

// publish fans the event out over Redis Pub/Sub: once to the student's
// exam screen, once to the teacher monitor channel. Delivery is
// best-effort; the database row is already the source of truth.
func (s *UploadService) publish(ctx context.Context, examID uuid.UUID, ev model.UploadEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.ParticipantUploadsChannel(ev.ParticipantID.String()), raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish upload event to participant channel")
	}

	monitorEv := MonitorEvent{
		Type:          MonitorEventUpload,
		ParticipantID: ev.ParticipantID,
		QuestionID:    &ev.QuestionID,
		PageKey:       ev.PageKey,
		OccurredAt:    time.Now(),
	}
	if rawMonitor, err := json.Marshal(monitorEv); err == nil {
		if err := s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), rawMonitor).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish upload event to monitor channel")
		}
	}
}

func pageDefined(pages []string, key string) bool {
	for _, p := range pages {
		if p == key {
			return true
		}
	}
	return false
}
