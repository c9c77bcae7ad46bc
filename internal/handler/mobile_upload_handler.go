package handler

import (
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
)

// MobileUploadHandler receives FRQ page photos from the phone capture
// page. The page is opened from a QR code, so the route is keyed by the
// link parameters rather than a JWT.
type MobileUploadHandler struct {
	uploadService *service.UploadService
	log           zerolog.Logger
}

// NewMobileUploadHandler creates a new MobileUploadHandler.
func NewMobileUploadHandler(uploadService *service.UploadService, log zerolog.Logger) *MobileUploadHandler {
	return &MobileUploadHandler{
		uploadService: uploadService,
		log:           log.With().Str("component", "mobile_upload_handler").Logger(),
	}
}

// UploadPage godoc
// POST /api/v1/mobile/uploads (multipart/form-data)
// Fields: participant_id, question_id, page, file.
func (h *MobileUploadHandler) UploadPage(c *gin.Context) {
	participantID, err := uuid.Parse(c.PostForm("participant_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidUploadLink)
		return
	}
	questionID, err := uuid.Parse(c.PostForm("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidUploadLink)
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
		model.SubmittedByStudent,
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
			h.log.Error().Err(err).
				Str("participant_id", participantID.String()).
				Str("question_id", questionID.String()).
				Msg("Upload failed")
			response.Fail(c, http.StatusInternalServerError, response.ErrUploadFailed)
		}
		return
	}

	response.Success(c, http.StatusCreated, sub)
}
