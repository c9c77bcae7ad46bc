package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
)

// Monitor event types published on the exam monitor channel.
const (
	MonitorEventProgress = "progress"
	MonitorEventUpload   = "frq_upload"
	MonitorEventPhase    = "phase_change"
	MonitorEventSubmit   = "submitted"
)

// MonitorEvent is one realtime notification for the teacher monitor.
type MonitorEvent struct {
	Type          string     `json:"type"`
	ParticipantID uuid.UUID  `json:"participant_id"`
	QuestionID    *uuid.UUID `json:"question_id,omitempty"`
	PageKey       string     `json:"page_key,omitempty"`
	PhaseIndex    *int       `json:"phase_index,omitempty"`
	AnsweredCount *int       `json:"answered_count,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// RosterEntry is one participant's row in the monitor table.
type RosterEntry struct {
	ParticipantID uuid.UUID           `json:"participant_id"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	AttemptID     uuid.UUID           `json:"attempt_id"`
	Status        model.AttemptStatus `json:"status"`
	RawScore      *int                `json:"raw_score,omitempty"`
	TotalMCQ      *int                `json:"total_mcq,omitempty"`
	UploadedPages int                 `json:"uploaded_pages"`
	StartedAt     time.Time           `json:"started_at"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
}

// MonitorService assembles the live roster for the teacher monitor.
type MonitorService struct {
	attemptRepo     *repository.AttemptRepository
	participantRepo *repository.ParticipantRepository
	frqRepo         *repository.FRQSubmissionRepository
	log             zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(
	attemptRepo *repository.AttemptRepository,
	participantRepo *repository.ParticipantRepository,
	frqRepo *repository.FRQSubmissionRepository,
	log zerolog.Logger,
) *MonitorService {
	return &MonitorService{
		attemptRepo:     attemptRepo,
		participantRepo: participantRepo,
		frqRepo:         frqRepo,
		log:             log.With().Str("component", "monitor_service").Logger(),
	}
}

// Roster returns every attempt of the exam joined with participant
// identity and upload progress. Per-participant lookups run
// concurrently; a failed lookup degrades that row instead of failing
// the whole roster.
func (s *MonitorService) Roster(ctx context.Context, examID uuid.UUID) ([]RosterEntry, error) {
	attempts, err := s.attemptRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	entries := make([]RosterEntry, len(attempts))
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a := attempts[i]
			entry := RosterEntry{
				ParticipantID: a.ParticipantID,
				AttemptID:     a.ID,
				Status:        a.Status,
				RawScore:      a.RawScore,
				TotalMCQ:      a.TotalMCQ,
				StartedAt:     a.StartedAt,
				SubmittedAt:   a.SubmittedAt,
			}

			if p, err := s.participantRepo.GetByID(ctx, a.ParticipantID); err == nil {
				entry.Name = p.Name
				entry.Email = p.Email
			} else {
				s.log.Warn().Err(err).
					Str("participant_id", a.ParticipantID.String()).
					Msg("Roster participant lookup failed")
			}

			if subs, err := s.frqRepo.ListByParticipant(ctx, a.ParticipantID); err == nil {
				entry.UploadedPages = len(subs)
			}

			entries[i] = entry
		}(i)
	}
	wg.Wait()

	return entries, nil
}
