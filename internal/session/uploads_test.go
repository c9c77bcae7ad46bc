package session

import (
	"testing"
	"time"

	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadEvent(q model.Question, page, url string, at time.Time) model.UploadEvent {
	return model.UploadEvent{
		QuestionID:  q.ID,
		PageKey:     page,
		FileURL:     url,
		FileName:    "scan.jpg",
		SubmittedBy: model.SubmittedByStudent,
		OccurredAt:  at,
	}
}

func TestApplyUploadLastWriteWins(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	frq := questions[4]
	t0 := clock.Now()

	s.ApplyUpload(uploadEvent(frq, "page1", "https://cdn/u1.jpg", t0.Add(2*time.Second)))
	// a stale event delivered late must not clobber the newer state
	s.ApplyUpload(uploadEvent(frq, "page1", "https://cdn/u0.jpg", t0))

	status := s.UploadStatus()
	require.Contains(t, status, frq.ID)
	assert.Equal(t, "https://cdn/u1.jpg", status[frq.ID]["page1"].FileURL)

	// a newer event replaces it
	s.ApplyUpload(uploadEvent(frq, "page1", "https://cdn/u2.jpg", t0.Add(5*time.Second)))
	assert.Equal(t, "https://cdn/u2.jpg", s.UploadStatus()[frq.ID]["page1"].FileURL)
}

func TestApplyUploadEqualTimestampWins(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	frq := questions[4]
	at := clock.Now()

	s.ApplyUpload(uploadEvent(frq, "page1", "https://cdn/a.jpg", at))
	s.ApplyUpload(uploadEvent(frq, "page1", "https://cdn/b.jpg", at))

	assert.Equal(t, "https://cdn/b.jpg", s.UploadStatus()[frq.ID]["page1"].FileURL)
}

func TestApplyUploadKeysArePerQuestionPage(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	frq1, frq2 := questions[4], questions[5]
	at := clock.Now()

	s.ApplyUpload(uploadEvent(frq1, "page1", "https://cdn/1-1.jpg", at))
	s.ApplyUpload(uploadEvent(frq1, "page2", "https://cdn/1-2.jpg", at))
	s.ApplyUpload(uploadEvent(frq2, "page1", "https://cdn/2-1.jpg", at))

	status := s.UploadStatus()
	assert.Equal(t, "https://cdn/1-1.jpg", status[frq1.ID]["page1"].FileURL)
	assert.Equal(t, "https://cdn/1-2.jpg", status[frq1.ID]["page2"].FileURL)
	assert.Equal(t, "https://cdn/2-1.jpg", status[frq2.ID]["page1"].FileURL)
	assert.NotContains(t, status[frq2.ID], "page2")
}

func TestQuestionAnsweredFRQ(t *testing.T) {
	s, clock, questions, _ := newTestSession(t)
	frq := questions[4]

	assert.False(t, s.QuestionAnswered(frq.ID))

	// one of the two pages is enough
	s.ApplyUpload(uploadEvent(frq, "page2", "https://cdn/p2.jpg", clock.Now()))
	assert.True(t, s.QuestionAnswered(frq.ID))

	// an undefined page key never counts
	other := questions[5]
	s.ApplyUpload(uploadEvent(other, "page9", "https://cdn/p9.jpg", clock.Now()))
	assert.False(t, s.QuestionAnswered(other.ID))
}

func TestQuestionAnsweredMCQ(t *testing.T) {
	s, _, questions, _ := newTestSession(t)
	mcq := questions[0]

	assert.False(t, s.QuestionAnswered(mcq.ID))
	require.NoError(t, s.SetSelectedOption(mcq.ID, "C"))
	assert.True(t, s.QuestionAnswered(mcq.ID))
}
