package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/response"
	"github.com/apexamhq/apexam-backend/internal/service"
	"github.com/apexamhq/apexam-backend/internal/validator"
)

// AuthHandler handles participant and teacher sign-in.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// ParticipantLogin godoc
// POST /api/v1/auth/participant/login
func (h *AuthHandler) ParticipantLogin(c *gin.Context) {
	var req model.ParticipantLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, token, err := h.authService.LoginParticipant(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Msg("Participant login failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":       token,
		"participant": participant,
	})
}

// TeacherLogin godoc
// POST /api/v1/auth/teacher/login
func (h *AuthHandler) TeacherLogin(c *gin.Context) {
	var req model.TeacherLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	teacher, token, err := h.authService.LoginTeacher(c.Request.Context(), req.Email, req.Passcode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		h.log.Error().Err(err).Msg("Teacher login failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token":   token,
		"teacher": teacher,
	})
}
