package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/middleware"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/service"
	"github.com/apexamhq/apexam-backend/internal/session"
	ws "github.com/apexamhq/apexam-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// attemptStream is the per-connection state: the socket plus the phase
// ticker. Three goroutines write to the socket (the read loop, the phase
// ticker and the upload fan-in), so every write goes through send.
type attemptStream struct {
	conn          *websocket.Conn
	participantID uuid.UUID
	writeMu       sync.Mutex

	tickerMu sync.Mutex
	ticker   *session.PhaseTicker
}

func (st *attemptStream) send(v interface{}) {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	ws.WriteTyped(st.conn, v)
}

func (st *attemptStream) sendError(msg string) {
	st.writeMu.Lock()
	defer st.writeMu.Unlock()
	ws.WriteError(st.conn, msg)
}

// setTicker swaps in a new phase ticker, stopping the previous one.
func (st *attemptStream) setTicker(t *session.PhaseTicker) {
	st.tickerMu.Lock()
	defer st.tickerMu.Unlock()
	if st.ticker != nil {
		st.ticker.Stop()
	}
	st.ticker = t
}

func (st *attemptStream) stopTicker() {
	st.setTicker(nil)
}

// WSHandler drives the exam session state machine over a WebSocket. The
// read loop is the single writer of session state; the phase ticker and
// the upload subscription only touch the session through its own
// synchronized methods.
type WSHandler struct {
	rdb            *redis.Client
	examService    *service.ExamService
	attemptService *service.AttemptService
	uploadService  *service.UploadService
	gradingService *service.GradingService
	sessions       *service.SessionManager
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	rdb *redis.Client,
	examService *service.ExamService,
	attemptService *service.AttemptService,
	uploadService *service.UploadService,
	gradingService *service.GradingService,
	sessions *service.SessionManager,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		rdb:            rdb,
		examService:    examService,
		attemptService: attemptService,
		uploadService:  uploadService,
		gradingService: gradingService,
		sessions:       sessions,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/attempts/:attempt_id/stream
// Upgrades to WebSocket and drives the live exam session.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	participantID, err := uuid.Parse(claims.ParticipantID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attempt ID"})
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
		return
	}
	if attempt.ParticipantID != participantID {
		c.JSON(http.StatusForbidden, gin.H{"error": "attempt belongs to another participant"})
		return
	}
	if attempt.Status == model.AttemptStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "attempt already completed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("participant_id", participantID.String()).
		Str("attempt_id", attemptID.String()).
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, restored, err := h.sessions.Acquire(ctx, attemptID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Failed to acquire session")
		ws.WriteError(conn, "failed to acquire session")
		return
	}

	st := &attemptStream{conn: conn, participantID: participantID}
	defer st.stopTicker()

	submitted := false
	defer func() {
		if !submitted {
			h.sessions.Release(context.Background(), attemptID)
		}
	}()

	if !restored {
		exam, err := h.examService.GetByID(ctx, attempt.ExamID)
		if err != nil {
			wsLog.Error().Err(err).Msg("Failed to load exam")
			st.sendError("failed to load exam")
			return
		}
		questions, err := h.examService.Questions(ctx, attempt.ExamID)
		if err != nil || len(questions) == 0 {
			wsLog.Error().Err(err).Msg("Failed to load questions")
			st.sendError("failed to load exam")
			return
		}
		sess.Init(attempt.ExamID, attemptID, questions, exam.Phases)
	}

	// Pages uploaded while the socket was down never reached the
	// snapshot, so the database state is merged in on every connect.
	// ApplyUpload is last-write-wins, re-applying known pages is safe.
	if subs, err := h.uploadService.ListByParticipant(ctx, participantID); err == nil {
		for _, sub := range subs {
			sess.ApplyUpload(model.UploadEvent{
				ParticipantID: sub.ParticipantID,
				QuestionID:    sub.QuestionID,
				PageKey:       sub.PageKey,
				FileURL:       sub.FileURL,
				FileName:      sub.FileName,
				SubmittedBy:   sub.SubmittedBy,
				OccurredAt:    sub.UpdatedAt,
			})
		}
	} else {
		wsLog.Warn().Err(err).Msg("Failed to hydrate uploads")
	}

	if err := h.sessions.Persist(ctx, sess); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to persist session")
	}

	st.send(ws.StateResponse{Event: ws.EventState, State: buildClientState(sess)})
	h.armPhaseTicker(st, sess, wsLog)
	go h.forwardUploads(ctx, st, sess, participantID, wsLog)

	wsLog.Info().Bool("restored", restored).Msg("Participant connected")

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			st.sendError("malformed message")
			continue
		}

		switch env.Action {
		case ws.ActionSelectOption:
			h.handleSelectOption(ctx, st, sess, raw)
		case ws.ActionWritten:
			h.handleWrittenAnswer(ctx, st, sess, raw)
		case ws.ActionConfidence:
			h.handleConfidence(ctx, st, sess, raw)
		case ws.ActionCalculator:
			h.handleCalculator(ctx, st, sess, raw)
		case ws.ActionHint:
			h.handleInteraction(ctx, st, sess, raw, ws.ActionHint)
		case ws.ActionFormulaSheet:
			h.handleInteraction(ctx, st, sess, raw, ws.ActionFormulaSheet)
		case ws.ActionNavigate:
			h.handleNavigate(ctx, st, sess, raw)
		case ws.ActionNextPhase:
			h.handleNextPhase(ctx, st, sess, wsLog)
		case ws.ActionPause:
			h.handlePause(ctx, st, sess, attemptID, wsLog)
		case ws.ActionResume:
			h.handleResume(ctx, st, sess, attemptID, wsLog)
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, st, sess, participantID, wsLog) {
				submitted = true
				return
			}
		case ws.ActionPing:
			st.send(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			st.sendError("unknown action: " + string(env.Action))
		}
	}
}

// ----------------------------------------------------------------
// Ledger actions
// ----------------------------------------------------------------

func (h *WSHandler) handleSelectOption(ctx context.Context, st *attemptStream, sess *session.Session, raw []byte) {
	var req ws.SelectOptionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		st.sendError("malformed select_option payload")
		return
	}
	qid, err := uuid.Parse(req.QID)
	if err != nil {
		st.sendError("invalid q_id format")
		return
	}
	if err := sess.SetSelectedOption(qid, req.Option); err != nil {
		st.sendError(err.Error())
		return
	}
	h.afterMutation(ctx, st, sess, ws.ActionSelectOption, true)
	h.publishProgress(ctx, st, sess)
}

func (h *WSHandler) handleWrittenAnswer(ctx context.Context, st *attemptStream, sess *session.Session, raw []byte) {
	var req ws.WrittenAnswerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		st.sendError("malformed written_answer payload")
		return
	}
	qid, err := uuid.Parse(req.QID)
	if err != nil {
		st.sendError("invalid q_id format")
		return
	}
	if err := sess.SetWrittenAnswer(qid, req.Text); err != nil {
		st.sendError(err.Error())
		return
	}
	h.afterMutation(ctx, st, sess, ws.ActionWritten, true)
}

func (h *WSHandler) handleConfidence(ctx context.Context, st *attemptStream, sess *session.Session, raw []byte) {
	var req ws.ConfidenceRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		st.sendError("malformed confidence payload")
		return
	}
	qid, err := uuid.Parse(req.QID)
	if err != nil {
		st.sendError("invalid q_id format")
		return
	}
	if err := sess.SetConfidenceLevel(qid, session.ConfidenceLevel(req.Level)); err != nil {
		st.sendError(err.Error())
		return
	}
	h.afterMutation(ctx, st, sess, ws.ActionConfidence, true)
}

func (h *WSHandler) handleCalculator(ctx context.Context, st *attemptStream, sess *session.Session, raw []byte) {
	var req ws.CalculatorRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		st.sendError("malformed calculator payload")
		return
	}
	qid, err := uuid.Parse(req.QID)
	if err != nil {
		st.sendError("invalid q_id format")
		return
	}
	if err := sess.LogCalculatorUse(qid, req.Used); err != nil {
		st.sendError(err.Error())
		return
	}
	h.afterMutation(ctx, st, sess, ws.ActionCalculator, false)
}

func (h *WSHandler) handleInteraction(ctx context.Context, st *attemptStream, sess *session.Session, raw []byte, action ws.Action) {
	var req ws.InteractionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		st.sendError("malformed interaction payload")
		return
	}
	qid, err := uuid.Parse(req.QID)
	if err != nil {
		st.sendError("invalid q_id format")
		return
	}

	var logErr error
	if action == ws.ActionHint {
		logErr = sess.LogHintAccess(qid)
	} else {
		logErr = sess.LogFormulaSheetAccess(qid)
	}
	if logErr != nil {
		st.sendError(logErr.Error())
		return
	}
	h.afterMutation(ctx, st, sess, action, false)
}

// ----------------------------------------------------------------
// Navigation and lifecycle actions
// ----------------------------------------------------------------

func (h *WSHandler) handleNavigate(ctx context.Context, st *attemptStream, sess *session.Session, raw []byte) {
	var req ws.NavigateRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		st.sendError("malformed navigate payload")
		return
	}
	if err := sess.SetCurrentQuestionIndex(req.Index); err != nil {
		st.sendError(err.Error())
		return
	}
	h.afterMutation(ctx, st, sess, ws.ActionNavigate, false)
}

func (h *WSHandler) handleNextPhase(ctx context.Context, st *attemptStream, sess *session.Session, wsLog zerolog.Logger) {
	sess.AdvancePhase()
	if err := h.sessions.Persist(ctx, sess); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to persist session")
	}
	h.armPhaseTicker(st, sess, wsLog)
	h.publishPhase(ctx, st, sess)
	st.send(ws.PhaseResponse{Event: ws.EventPhase, State: buildClientState(sess)})
}

func (h *WSHandler) handlePause(ctx context.Context, st *attemptStream, sess *session.Session, attemptID uuid.UUID, wsLog zerolog.Logger) {
	sess.Pause()
	if err := h.attemptService.Pause(ctx, attemptID); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to record pause")
	}
	if err := h.sessions.Persist(ctx, sess); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to persist session")
	}
	st.send(ws.SavedResponse{Event: ws.EventSaved, Action: ws.ActionPause})
}

func (h *WSHandler) handleResume(ctx context.Context, st *attemptStream, sess *session.Session, attemptID uuid.UUID, wsLog zerolog.Logger) {
	sess.Resume()
	if err := h.attemptService.Resume(ctx, attemptID); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to record resume")
	}
	if err := h.sessions.Persist(ctx, sess); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to persist session")
	}
	st.send(ws.SavedResponse{Event: ws.EventSaved, Action: ws.ActionResume})
}

// handleSubmit is two-staged: in the last section it first transitions
// the session into the terminal upload-collection mode, and once ended a
// second submit freezes everything into PostgreSQL and queues grading.
// Returns true when the attempt was finalized and the stream should end.
func (h *WSHandler) handleSubmit(ctx context.Context, st *attemptStream, sess *session.Session, participantID uuid.UUID, wsLog zerolog.Logger) bool {
	if !sess.Ended() {
		if !sess.IsLastPhase() {
			st.sendError("submit is only allowed in the last section")
			return false
		}
		sess.Submit()
		st.stopTicker()
		if err := h.sessions.Persist(ctx, sess); err != nil {
			wsLog.Warn().Err(err).Msg("Failed to persist session")
		}
		st.send(ws.EndedResponse{Event: ws.EventEnded, Submitted: false})
		return false
	}

	attemptID := sess.AttemptID()
	snap := sess.Snapshot()

	attempt, err := h.attemptService.Submit(ctx, sess)
	if err != nil {
		wsLog.Error().Err(err).Msg("Final submission failed")
		st.sendError(err.Error())
		return false
	}

	pages, err := h.uploadService.PageURLs(ctx, participantID)
	if err != nil {
		wsLog.Warn().Err(err).Msg("Failed to collect page URLs for grading")
		pages = map[uuid.UUID][]string{}
	}
	if err := h.gradingService.EnqueueAttempt(ctx, attemptID, snap.Questions, pages); err != nil {
		wsLog.Error().Err(err).Msg("Failed to enqueue grading")
	}

	h.publishMonitor(ctx, snap.ExamID, service.MonitorEvent{
		Type:          service.MonitorEventSubmit,
		ParticipantID: participantID,
		OccurredAt:    time.Now(),
	})

	h.sessions.Discard(ctx, attemptID)

	wsLog.Info().
		Int("raw_score", *attempt.RawScore).
		Int("total_mcq", *attempt.TotalMCQ).
		Msg("Attempt finalized over WebSocket")

	st.send(ws.EndedResponse{
		Event:     ws.EventEnded,
		Submitted: true,
		RawScore:  attempt.RawScore,
		TotalMCQ:  attempt.TotalMCQ,
	})
	return true
}

// ----------------------------------------------------------------
// Phase countdown and upload fan-in
// ----------------------------------------------------------------

// armPhaseTicker points the countdown at the current phase's deadline.
// A restored session whose deadline already passed fires immediately.
func (h *WSHandler) armPhaseTicker(st *attemptStream, sess *session.Session, wsLog zerolog.Logger) {
	if sess.Ended() {
		st.stopTicker()
		return
	}
	deadline, ok := sess.PhaseEndTime()
	if !ok {
		st.stopTicker()
		return
	}
	st.setTicker(session.StartPhaseTicker(deadline, time.Now, func() {
		h.handleTimeUp(st, sess, wsLog)
	}))
}

func (h *WSHandler) handleTimeUp(st *attemptStream, sess *session.Session, wsLog zerolog.Logger) {
	ctx := context.Background()

	sess.TimeUp()
	if err := h.sessions.Persist(ctx, sess); err != nil {
		wsLog.Warn().Err(err).Msg("Failed to persist session")
	}

	if sess.Ended() {
		st.stopTicker()
	} else {
		h.armPhaseTicker(st, sess, wsLog)
		h.publishPhase(ctx, st, sess)
	}

	wsLog.Info().Int("phase_index", sess.PhaseIndex()).Bool("ended", sess.Ended()).Msg("Phase time up")
	st.send(ws.TimeUpResponse{Event: ws.EventTimeUp, State: buildClientState(sess)})
}

// forwardUploads merges realtime page uploads into the session and fans
// them to the exam screen so the progress indicator flips live.
func (h *WSHandler) forwardUploads(ctx context.Context, st *attemptStream, sess *session.Session, participantID uuid.UUID, wsLog zerolog.Logger) {
	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.ParticipantUploadsChannel(participantID.String()))
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			var ev model.UploadEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				wsLog.Warn().Err(err).Msg("Malformed upload event")
				continue
			}
			sess.ApplyUpload(ev)
			if err := h.sessions.Persist(ctx, sess); err != nil {
				wsLog.Warn().Err(err).Msg("Failed to persist session")
			}
			st.send(ws.FRQUploadResponse{
				Event:       ws.EventFRQUpload,
				QuestionID:  ev.QuestionID,
				PageKey:     ev.PageKey,
				FileURL:     ev.FileURL,
				FileName:    ev.FileName,
				SubmittedBy: ev.SubmittedBy,
				OccurredAt:  ev.OccurredAt,
			})
		}
	}
}

// ----------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------

// afterMutation persists the snapshot, optionally queues the crash
// recovery autosave, and acknowledges the action.
func (h *WSHandler) afterMutation(ctx context.Context, st *attemptStream, sess *session.Session, action ws.Action, autosave bool) {
	if err := h.sessions.Persist(ctx, sess); err != nil {
		h.log.Warn().Err(err).Msg("Failed to persist session")
	}
	if autosave {
		h.sessions.EnqueueAutosave(ctx, sess)
	}
	st.send(ws.SavedResponse{Event: ws.EventSaved, Action: action})
}

func (h *WSHandler) publishProgress(ctx context.Context, st *attemptStream, sess *session.Session) {
	snap := sess.Snapshot()
	answered := 0
	for i := range snap.Questions {
		if sess.QuestionAnswered(snap.Questions[i].ID) {
			answered++
		}
	}
	h.publishMonitor(ctx, snap.ExamID, service.MonitorEvent{
		Type:          service.MonitorEventProgress,
		ParticipantID: st.participantID,
		AnsweredCount: &answered,
		OccurredAt:    time.Now(),
	})
}

func (h *WSHandler) publishPhase(ctx context.Context, st *attemptStream, sess *session.Session) {
	phaseIndex := sess.PhaseIndex()
	h.publishMonitor(ctx, sess.ExamID(), service.MonitorEvent{
		Type:          service.MonitorEventPhase,
		ParticipantID: st.participantID,
		PhaseIndex:    &phaseIndex,
		OccurredAt:    time.Now(),
	})
}

func (h *WSHandler) publishMonitor(ctx context.Context, examID uuid.UUID, ev service.MonitorEvent) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := h.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), raw).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to publish monitor event")
	}
}

func buildClientState(sess *session.Session) ws.ClientState {
	snap := sess.Snapshot()
	state := ws.ClientState{
		AttemptID:            snap.AttemptID,
		ExamID:               snap.ExamID,
		PhaseIndex:           snap.PhaseIndex,
		CurrentQuestionIndex: snap.CurrentQuestionIndex,
		Active:               snap.Active,
		Ended:                snap.Ended,
		Answers:              snap.Answers,
		Uploads:              snap.Uploads,
		TotalTimeSpent:       sess.TotalTimeSpent(),
	}
	if deadline, ok := sess.PhaseEndTime(); ok && !snap.Ended {
		state.PhaseEndsAt = &deadline
	}
	return state
}
