package model

import (
	"time"

	"github.com/google/uuid"
)

// Uploader roles recorded on an FRQ page submission. Teachers may upload
// on behalf of a student from the live monitor.
const (
	SubmittedByStudent = "student"
	SubmittedByTeacher = "teacher_manual_support"
)

// FRQSubmission is one uploaded handwritten page, keyed by
// (participant_id, question_id, page_key). Re-uploads overwrite in place.
type FRQSubmission struct {
	ID            uuid.UUID `json:"id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	PageKey       string    `json:"page_key"`
	FileURL       string    `json:"file_url"`
	FileName      string    `json:"file_name"`
	SubmittedBy   string    `json:"submitted_by"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UploadEvent is the realtime notification published when a page lands.
// Consumers merge it last-write-wins per (question_id, page_key) using
// OccurredAt, so out-of-order delivery is safe.
type UploadEvent struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	PageKey       string    `json:"page_key"`
	FileURL       string    `json:"file_url"`
	FileName      string    `json:"file_name"`
	SubmittedBy   string    `json:"submitted_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}
