package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/middleware"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/response"
	"github.com/apexamhq/apexam-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams the live exam roster to the teacher dashboard
// over SSE: an initial snapshot, realtime Pub/Sub events and a periodic
// full refresh.
type MonitorHandler struct {
	rdb            *redis.Client
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	examService *service.ExamService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/teacher/exams/:exam_id/monitor
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.sendSnapshot(c, reqCtx, examID, exam.Title)

	channelName := config.CacheKey.ExamMonitorChannel(examID.String())
	pubsub := h.rdb.Subscribe(reqCtx, channelName)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().
		Int("teacher_id", claims.TeacherID).
		Str("exam_id", examID.String()).
		Msg("Teacher attached to live monitor SSE")

	// Pre-allocate a reusable ping payload (never changes)
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Teacher disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendRefresh(c, reqCtx, examID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the first SSE event: exam header, aggregate stats
// and the full roster.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, examID uuid.UUID, examTitle string) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	roster, err := h.monitorService.Roster(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to build roster snapshot")
		roster = []service.RosterEntry{}
	}

	totalInProgress := 0
	totalCompleted := 0
	for _, entry := range roster {
		switch entry.Status {
		case model.AttemptStatusInProgress, model.AttemptStatusPaused:
			totalInProgress++
		case model.AttemptStatusCompleted:
			totalCompleted++
		}
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"exam": map[string]interface{}{
				"id":    examID.String(),
				"title": examTitle,
			},
			"stats": map[string]interface{}{
				"total_joined":      len(roster),
				"total_in_progress": totalInProgress,
				"total_completed":   totalCompleted,
			},
			"participants": roster,
		},
	})
	c.Writer.Flush()
}

// sendRefresh re-polls the roster and sends a compact refresh event.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	// Scoped timeout prevents a slow query from stalling the SSE loop
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	roster, err := h.monitorService.Roster(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch roster for refresh")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type":         "refresh",
		"participants": roster,
	})
	c.Writer.Flush()
}
