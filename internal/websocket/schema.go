package websocket

import (
	"time"

	"github.com/google/uuid"

	"github.com/apexamhq/apexam-backend/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelectOption Action = "select_option"
	ActionWritten      Action = "written_answer"
	ActionConfidence   Action = "confidence"
	ActionCalculator   Action = "calculator"
	ActionHint         Action = "hint"
	ActionFormulaSheet Action = "formula_sheet"
	ActionNavigate     Action = "navigate"
	ActionNextPhase    Action = "next_phase"
	ActionPause        Action = "pause"
	ActionResume       Action = "resume"
	ActionSubmit       Action = "submit"
	ActionPing         Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SelectOptionRequest records an MCQ option choice.
type SelectOptionRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Option string `json:"option"`
}

// WrittenAnswerRequest records free-text work for a question.
type WrittenAnswerRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Text   string `json:"text"`
}

// ConfidenceRequest records the student's self-reported confidence.
type ConfidenceRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Level  string `json:"level"`
}

// CalculatorRequest records opening or closing the calculator.
type CalculatorRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Used   bool   `json:"used"`
}

// InteractionRequest records hint and formula sheet access.
type InteractionRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
}

// NavigateRequest moves the visible question within the current
// section.
type NavigateRequest struct {
	Action Action `json:"action"`
	Index  int    `json:"index"`
}

// BareRequest covers the actions that carry no payload: next_phase,
// pause, resume, submit, ping.
type BareRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventSaved     Event = "saved"
	EventTimeUp    Event = "time_up"
	EventPhase     Event = "phase_changed"
	EventEnded     Event = "ended"
	EventFRQUpload Event = "frq_upload"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// ClientState is the session state as exposed to the student's screen.
// Grading metadata never travels here; the question content itself is
// served over the REST paper endpoint.
type ClientState struct {
	AttemptID            uuid.UUID                                     `json:"attempt_id"`
	ExamID               uuid.UUID                                     `json:"exam_id"`
	PhaseIndex           int                                           `json:"phase_index"`
	PhaseEndsAt          *time.Time                                    `json:"phase_ends_at,omitempty"`
	CurrentQuestionIndex int                                           `json:"current_question_index"`
	Active               bool                                          `json:"is_exam_active"`
	Ended                bool                                          `json:"ended"`
	Answers              []session.Answer                              `json:"answers"`
	Uploads              map[uuid.UUID]map[string]session.PageUpload   `json:"uploads"`
	TotalTimeSpent       int                                           `json:"total_time_spent"`
}

// StateResponse pushes the full client state, sent on connect and after
// phase transitions.
type StateResponse struct {
	Event Event       `json:"event"`
	State ClientState `json:"state"`
}

// SavedResponse acknowledges a mutation.
type SavedResponse struct {
	Event  Event  `json:"event"`
	Action Action `json:"action"`
}

// TimeUpResponse notifies that the phase countdown expired, carrying
// the state after the automatic transition.
type TimeUpResponse struct {
	Event Event       `json:"event"`
	State ClientState `json:"state"`
}

// PhaseResponse notifies a phase change the client asked for.
type PhaseResponse struct {
	Event Event       `json:"event"`
	State ClientState `json:"state"`
}

// EndedResponse notifies that the attempt entered the terminal
// FRQ-upload collection mode or was fully submitted.
type EndedResponse struct {
	Event     Event  `json:"event"`
	Submitted bool   `json:"submitted"`
	RawScore  *int   `json:"raw_score,omitempty"`
	TotalMCQ  *int   `json:"total_mcq,omitempty"`
}

// FRQUploadResponse fans a page upload into the exam screen.
type FRQUploadResponse struct {
	Event       Event     `json:"event"`
	QuestionID  uuid.UUID `json:"question_id"`
	PageKey     string    `json:"page_key"`
	FileURL     string    `json:"file_url"`
	FileName    string    `json:"file_name"`
	SubmittedBy string    `json:"submitted_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
