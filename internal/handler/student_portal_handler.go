package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/middleware"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/response"
	"github.com/apexamhq/apexam-backend/internal/service"
	"github.com/apexamhq/apexam-backend/internal/validator"
)

// StudentPortalHandler serves the student-facing REST surface: the exam
// list, the paper payload, attempt start and the post-exam review. The
// live exam itself runs over the WebSocket stream.
type StudentPortalHandler struct {
	cfg            *config.Config
	examService    *service.ExamService
	attemptService *service.AttemptService
	reviewService  *service.ReviewService
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	cfg *config.Config,
	examService *service.ExamService,
	attemptService *service.AttemptService,
	reviewService *service.ReviewService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		cfg:            cfg,
		examService:    examService,
		attemptService: attemptService,
		reviewService:  reviewService,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// examListEntry is one row of the student exam list: the exam plus the
// participant's attempt when one exists.
type examListEntry struct {
	Exam    model.Exam     `json:"exam"`
	Attempt *model.Attempt `json:"attempt,omitempty"`
}

// ListExams godoc
// GET /api/v1/student/exams
func (h *StudentPortalHandler) ListExams(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	participantID, err := uuid.Parse(claims.ParticipantID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	exams, err := h.examService.ListPublished(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list exams")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	entries := make([]examListEntry, 0, len(exams))
	for i := range exams {
		entry := examListEntry{Exam: exams[i]}
		attempt, err := h.attemptService.GetByExamAndParticipant(c.Request.Context(), exams[i].ID, participantID)
		if err == nil {
			entry.Attempt = attempt
		} else if !errors.Is(err, pgx.ErrNoRows) {
			h.log.Warn().Err(err).Str("exam_id", exams[i].ID.String()).Msg("Attempt lookup failed")
		}
		entries = append(entries, entry)
	}

	response.Success(c, http.StatusOK, entries)
}

// GetExamPaper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Serves the cached student payload: questions without grading metadata
// plus the phase plan. Requires a started attempt.
func (h *StudentPortalHandler) GetExamPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	participantID, err := uuid.Parse(claims.ParticipantID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.attemptService.GetByExamAndParticipant(c.Request.Context(), examID, participantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusForbidden, response.ErrAttemptNotActive)
			return
		}
		h.log.Error().Err(err).Msg("Attempt lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	payload, err := h.examService.GetPayload(c.Request.Context(), examID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotPublished) || errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
			return
		}
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to load exam payload")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// StartAttempt godoc
// POST /api/v1/student/attempts
// Idempotent: starting an already started exam returns the existing
// attempt, a completed one included so the client can route to review.
func (h *StudentPortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	participantID, err := uuid.Parse(claims.ParticipantID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	var req model.StartAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), examID, participantID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotAvailable) {
			response.Fail(c, http.StatusNotFound, response.ErrExamNotAvailable)
			return
		}
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to start attempt")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, attempt)
}

// GetReview godoc
// GET /api/v1/student/attempts/:attempt_id/review
func (h *StudentPortalHandler) GetReview(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	participantID, err := uuid.Parse(claims.ParticipantID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Attempt lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if attempt.ParticipantID != participantID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	review, err := h.reviewService.Get(c.Request.Context(), attemptID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotActive) {
			response.Fail(c, http.StatusConflict, response.ErrGradingPending)
			return
		}
		h.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to build review")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, review)
}

// GetUploadLink godoc
// GET /api/v1/student/questions/:question_id/upload-link?page=page1
// Returns the URL the exam screen encodes into a QR code. The mobile
// page reads the query parameters and posts the captured image back.
func (h *StudentPortalHandler) GetUploadLink(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	participantID, err := uuid.Parse(claims.ParticipantID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	pageKey := c.Query("page")
	if pageKey == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidUploadLink)
		return
	}

	link, err := url.Parse(h.cfg.MobileUploadBaseURL)
	if err != nil {
		h.log.Error().Err(err).Msg("Malformed mobile upload base URL")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	q := link.Query()
	q.Set("participant_id", participantID.String())
	q.Set("question_id", questionID.String())
	q.Set("page", pageKey)
	link.RawQuery = q.Encode()

	response.Success(c, http.StatusOK, gin.H{
		"upload_url":   link.String(),
		"generated_at": time.Now().UTC(),
	})
}
