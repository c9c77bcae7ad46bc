package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/session"
)

// snapshotTTL bounds how long an orphaned session snapshot lives. An
// active client refreshes it on every mutation.
const snapshotTTL = 24 * time.Hour

// SessionManager owns the live exam sessions of this process and their
// persistence boundary. Each attempt has at most one Session; the
// WebSocket read loop is its single driver, and Redis holds a snapshot
// so a reconnect (or another node after failover) can pick the attempt
// back up.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session

	rdb *redis.Client
	log zerolog.Logger
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(rdb *redis.Client, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[uuid.UUID]*session.Session),
		rdb:      rdb,
		log:      log.With().Str("component", "session_manager").Logger(),
	}
}

// Acquire returns the live session for an attempt, restoring it from
// the Redis snapshot if this process does not hold it yet. ok is false
// when no live session and no snapshot exist: the caller must Init.
func (m *SessionManager) Acquire(ctx context.Context, attemptID uuid.UUID) (*session.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, live := m.sessions[attemptID]; live {
		return sess, true, nil
	}

	sess := session.New(m.log)

	raw, err := m.rdb.Get(ctx, config.CacheKey.AttemptSnapshotKey(attemptID.String())).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			m.sessions[attemptID] = sess
			return sess, false, nil
		}
		return nil, false, fmt.Errorf("get snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt snapshot is unrecoverable; start fresh rather than
		// locking the student out.
		m.log.Error().Err(err).
			Str("attempt_id", attemptID.String()).
			Msg("Corrupt session snapshot, discarding")
		m.sessions[attemptID] = sess
		return sess, false, nil
	}

	sess.Restore(snap)
	m.sessions[attemptID] = sess
	m.log.Info().Str("attempt_id", attemptID.String()).Msg("Session restored from snapshot")
	return sess, true, nil
}

// Persist writes the session snapshot to Redis. Called after every
// mutation so a disconnect never loses more than the in-flight action.
func (m *SessionManager) Persist(ctx context.Context, sess *session.Session) error {
	snap := sess.Snapshot()
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	key := config.CacheKey.AttemptSnapshotKey(snap.AttemptID.String())
	if err := m.rdb.Set(ctx, key, raw, snapshotTTL).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Release drops the live session from this process after persisting it.
// The snapshot stays in Redis for the next connection.
func (m *SessionManager) Release(ctx context.Context, attemptID uuid.UUID) {
	m.mu.Lock()
	sess, ok := m.sessions[attemptID]
	delete(m.sessions, attemptID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := m.Persist(ctx, sess); err != nil {
		m.log.Error().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to persist session on release")
	}
}

// Discard removes the live session and its snapshot, used after the
// final submission.
func (m *SessionManager) Discard(ctx context.Context, attemptID uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, attemptID)
	m.mu.Unlock()

	if err := m.rdb.Del(ctx, config.CacheKey.AttemptSnapshotKey(attemptID.String())).Err(); err != nil {
		m.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to delete session snapshot")
	}
}

// EnqueueAutosave pushes the session's answers to the temp-answer queue
// for crash recovery in PostgreSQL. Fire-and-forget: the snapshot in
// Redis is the primary recovery path.
func (m *SessionManager) EnqueueAutosave(ctx context.Context, sess *session.Session) {
	attemptID := sess.AttemptID()
	for _, a := range sess.AnswersArray() {
		logRaw, err := json.Marshal(a.InteractionLog)
		if err != nil {
			continue
		}
		payload, err := json.Marshal(model.TempAnswer{
			AttemptID:       attemptID,
			QuestionID:      a.QuestionID,
			SelectedOption:  a.SelectedOption,
			WrittenAnswer:   a.WrittenAnswer,
			ConfidenceLevel: string(a.ConfidenceLevel),
			TimeSpent:       a.TimeSpent,
			InteractionLog:  logRaw,
		})
		if err != nil {
			continue
		}
		if err := m.rdb.RPush(ctx, config.WorkerKey.PersistTempAnswersQueue, payload).Err(); err != nil {
			m.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to enqueue autosave")
			return
		}
	}
}
