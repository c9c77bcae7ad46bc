package session

import (
	"time"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/google/uuid"
)

// PageUpload is the locally known state of one uploaded FRQ page.
type PageUpload struct {
	FileURL     string    `json:"file_url"`
	FileName    string    `json:"file_name"`
	SubmittedBy string    `json:"submitted_by"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ApplyUpload merges a realtime upload event into the local upload
// status. Merging is last-write-wins per (question_id, page_key) keyed
// on the event's OccurredAt, so out-of-order and duplicate deliveries
// are idempotent and never produce a mix of two events' fields.
func (s *Session) ApplyUpload(ev model.UploadEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pages, ok := s.uploads[ev.QuestionID]
	if !ok {
		pages = make(map[string]PageUpload)
		s.uploads[ev.QuestionID] = pages
	}

	if existing, ok := pages[ev.PageKey]; ok && ev.OccurredAt.Before(existing.OccurredAt) {
		return // stale event, keep the newer state
	}

	pages[ev.PageKey] = PageUpload{
		FileURL:     ev.FileURL,
		FileName:    ev.FileName,
		SubmittedBy: ev.SubmittedBy,
		OccurredAt:  ev.OccurredAt,
	}
}

// UploadStatus returns a copy of the per-question upload state.
func (s *Session) UploadStatus() map[uuid.UUID]map[string]PageUpload {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uuid.UUID]map[string]PageUpload, len(s.uploads))
	for qid, pages := range s.uploads {
		cp := make(map[string]PageUpload, len(pages))
		for k, v := range pages {
			cp[k] = v
		}
		out[qid] = cp
	}
	return out
}

// QuestionAnswered reports the progress-indicator state of a question:
// an MCQ is answered once an option is selected; an FRQ is answered once
// at least one of its defined upload pages has a recorded file URL (both
// pages are not required).
func (s *Session) QuestionAnswered(questionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	var question *model.Question
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			question = &s.questions[i]
			break
		}
	}
	if question == nil {
		return false
	}

	if question.IsFRQ() {
		pages := s.uploads[questionID]
		for _, key := range question.Pages {
			if up, ok := pages[key]; ok && up.FileURL != "" {
				return true
			}
		}
		return false
	}

	a := s.answers[questionID]
	return a != nil && a.SelectedOption != nil
}
