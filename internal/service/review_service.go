package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/model"
)

// ReviewQuestion is one question of the post-exam review: the full
// question (explanation and correct option included), what the student
// did, and the grading result when one exists.
type ReviewQuestion struct {
	Question model.Question       `json:"question"`
	Answer   *model.AnswerRow     `json:"answer,omitempty"`
	Uploads  []model.FRQSubmission `json:"uploads,omitempty"`
	Grade    *model.FRQGrade      `json:"grade,omitempty"`
}

// Review is the full post-exam report for one attempt.
type Review struct {
	Attempt   model.Attempt    `json:"attempt"`
	Questions []ReviewQuestion `json:"questions"`
}

// ReviewService assembles the post-exam review from the persisted
// attempt, answers, uploads and grades.
type ReviewService struct {
	attemptService *AttemptService
	examService    *ExamService
	uploadService  *UploadService
	gradingService *GradingService
	log            zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	attemptService *AttemptService,
	examService *ExamService,
	uploadService *UploadService,
	gradingService *GradingService,
	log zerolog.Logger,
) *ReviewService {
	return &ReviewService{
		attemptService: attemptService,
		examService:    examService,
		uploadService:  uploadService,
		gradingService: gradingService,
		log:            log.With().Str("component", "review_service").Logger(),
	}
}

// Get builds the review for one attempt. Only completed attempts have a
// review; callers gate on status.
func (s *ReviewService) Get(ctx context.Context, attemptID uuid.UUID) (*Review, error) {
	attempt, err := s.attemptService.Get(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusCompleted {
		return nil, ErrAttemptNotActive
	}

	questions, err := s.examService.Questions(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	answers, err := s.attemptService.ListAnswers(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	uploads, err := s.uploadService.ListByParticipant(ctx, attempt.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	grades, err := s.gradingService.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}

	answerByQuestion := make(map[uuid.UUID]*model.AnswerRow, len(answers))
	for i := range answers {
		answerByQuestion[answers[i].QuestionID] = &answers[i]
	}
	gradeByQuestion := make(map[uuid.UUID]*model.FRQGrade, len(grades))
	for i := range grades {
		gradeByQuestion[grades[i].QuestionID] = &grades[i]
	}
	uploadsByQuestion := make(map[uuid.UUID][]model.FRQSubmission)
	for _, u := range uploads {
		uploadsByQuestion[u.QuestionID] = append(uploadsByQuestion[u.QuestionID], u)
	}

	review := &Review{
		Attempt:   *attempt,
		Questions: make([]ReviewQuestion, 0, len(questions)),
	}
	for i := range questions {
		review.Questions = append(review.Questions, ReviewQuestion{
			Question: questions[i],
			Answer:   answerByQuestion[questions[i].ID],
			Uploads:  uploadsByQuestion[questions[i].ID],
			Grade:    gradeByQuestion[questions[i].ID],
		})
	}
	return review, nil
}
