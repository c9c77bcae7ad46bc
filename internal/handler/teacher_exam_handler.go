package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/response"
	"github.com/apexamhq/apexam-backend/internal/service"
	"github.com/apexamhq/apexam-backend/internal/storage"
	"github.com/apexamhq/apexam-backend/internal/validator"
)

// TeacherExamHandler serves the teacher surface: exam authoring and
// publishing, the attempt roster and manual page uploads on behalf of a
// student.
type TeacherExamHandler struct {
	examService    *service.ExamService
	monitorService *service.MonitorService
	reviewService  *service.ReviewService
	uploadService  *service.UploadService
	log            zerolog.Logger
}

// NewTeacherExamHandler creates a new TeacherExamHandler.
func NewTeacherExamHandler(
	examService *service.ExamService,
	monitorService *service.MonitorService,
	reviewService *service.ReviewService,
	uploadService *service.UploadService,
	log zerolog.Logger,
) *TeacherExamHandler {
	return &TeacherExamHandler{
		examService:    examService,
		monitorService: monitorService,
		reviewService:  reviewService,
		uploadService:  uploadService,
		log:            log.With().Str("component", "teacher_exam_handler").Logger(),
	}
}

type createQuestionRequest struct {
	Number        int             `json:"question_number" binding:"required,min=1"`
	Type          string          `json:"question_type" binding:"required,oneof=mcq frq"`
	Text          string          `json:"question_text" binding:"required"`
	Passage       *string         `json:"passage"`
	ImageURL      *string         `json:"image_url"`
	Options       []model.Option  `json:"options"`
	CorrectOption *string         `json:"correct_option"`
	Pages         []string        `json:"pages"`
	Rubric        json.RawMessage `json:"rubric"`
	Explanation   *string         `json:"explanation"`
}

type createExamRequest struct {
	Title     string                  `json:"title" binding:"required"`
	Subject   string                  `json:"subject" binding:"required"`
	Phases    []model.Phase           `json:"phases" binding:"required,min=1"`
	Questions []createQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// CreateExam godoc
// POST /api/v1/teacher/exams
// Inserts the exam as DRAFT. Publishing is a separate, gated step.
func (h *TeacherExamHandler) CreateExam(c *gin.Context) {
	var req createExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam := &model.Exam{
		Title:   req.Title,
		Subject: req.Subject,
		Phases:  req.Phases,
	}
	questions := make([]model.Question, 0, len(req.Questions))
	for i, q := range req.Questions {
		questions = append(questions, model.Question{
			Number:        q.Number,
			Type:          model.QuestionType(q.Type),
			Text:          q.Text,
			Passage:       q.Passage,
			ImageURL:      q.ImageURL,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Pages:         q.Pages,
			Rubric:        q.Rubric,
			Explanation:   q.Explanation,
			OrderNum:      i + 1,
		})
	}

	if err := h.examService.Create(c.Request.Context(), exam, questions); err != nil {
		h.log.Error().Err(err).Msg("Failed to create exam")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, exam)
}

// PublishExam godoc
// POST /api/v1/teacher/exams/:exam_id/publish
func (h *TeacherExamHandler) PublishExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.examService.Publish(c.Request.Context(), examID); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamNotDraft):
			response.Fail(c, http.StatusConflict, response.ErrConflict)
		case errors.Is(err, service.ErrNoQuestions), errors.Is(err, service.ErrNoPhases):
			response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation,
				map[string]string{"detail": err.Error()})
		default:
			h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to publish exam")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": string(model.ExamStatusPublished)})
}

// ListAttempts godoc
// GET /api/v1/teacher/exams/:exam_id/attempts
// Static roster, the SSE monitor serves the live variant.
func (h *TeacherExamHandler) ListAttempts(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	roster, err := h.monitorService.Roster(c.Request.Context(), examID)
	if err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to build roster")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, roster)
}

// GetAttemptReview godoc
// GET /api/v1/teacher/attempts/:attempt_id/review
func (h *TeacherExamHandler) GetAttemptReview(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	review, err := h.reviewService.Get(c.Request.Context(), attemptID)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrAttemptNotActive):
			response.Fail(c, http.StatusConflict, response.ErrGradingPending)
		default:
			h.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to build review")
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, review)
}

// UploadPageForParticipant godoc
// POST /api/v1/teacher/uploads (multipart/form-data)
// Same shape as the mobile upload, recorded as teacher manual support.
func (h *TeacherExamHandler) UploadPageForParticipant(c *gin.Context) {
	participantID, err := uuid.Parse(c.PostForm("participant_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.PostForm("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	pageKey := c.PostForm("page")
	if pageKey == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidUploadLink)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to open uploaded file")
		response.Fail(c, http.StatusInternalServerError, response.ErrUploadFailed)
		return
	}
	defer file.Close()

	sub, err := h.uploadService.SaveUpload(
		c.Request.Context(),
		participantID, questionID, pageKey,
		file, fileHeader.Size,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Filename,
		model.SubmittedByTeacher,
	)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotFRQQuestion), errors.Is(err, service.ErrUnknownPageKey):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidUploadLink)
		case errors.Is(err, storage.ErrUnsupportedFileType):
			response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
		case errors.Is(err, storage.ErrFileTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		default:
			h.log.Error().Err(err).Msg("Teacher upload failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrUploadFailed)
		}
		return
	}

	response.Success(c, http.StatusCreated, sub)
}
