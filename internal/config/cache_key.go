package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptSnapshotKey returns the cache key holding a session snapshot.
// The snapshot is rewritten on every session mutation and restored when
// a student reconnects mid-attempt.
func (r *CacheKeyStruct) AttemptSnapshotKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:snapshot", attemptID)
}

// ExamPayloadKey returns the cache key for an exam's student payload
// (questions and phases, correct options stripped).
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamAnswerKey returns the cache key for an exam's MCQ answer key.
func (r *CacheKeyStruct) ExamAnswerKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

// ParticipantUploadsChannel returns the Pub/Sub channel carrying FRQ
// page upload events for one participant.
func (r *CacheKeyStruct) ParticipantUploadsChannel(participantID string) string {
	return fmt.Sprintf("participant:%s:frq_uploads", participantID)
}

// ExamMonitorChannel returns the Pub/Sub channel name for the teacher
// live monitor of an exam.
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
