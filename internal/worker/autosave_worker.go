package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/model"
	"github.com/apexamhq/apexam-backend/internal/repository"
)

const (
	AutosaveBatchSize    = 50
	AutosaveBatchTimeout = 2 * time.Second
	AutosavePollTimeout  = 1 * time.Second
)

// AutosaveWorker consumes persist_temp_answers_queue and UPSERTs the
// crash-recovery answer rows to PostgreSQL in batches. The Redis session
// snapshot is the primary recovery path; these rows are the backstop for
// a Redis loss.
type AutosaveWorker struct {
	attemptRepo *repository.AttemptRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(attemptRepo *repository.AttemptRepository, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		attemptRepo: attemptRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "autosave_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AutosaveWorker started")

	batch := make([]model.TempAnswer, 0, AutosaveBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= AutosaveBatchSize || time.Since(lastFlush) >= AutosaveBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AutosavePollTimeout, config.WorkerKey.PersistTempAnswersQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var t model.TempAnswer
			if err := json.Unmarshal([]byte(item[1]), &t); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, t)
		}
	}
}

// ----------------------------------------------------------------
// Batch upsert wrapper
// ----------------------------------------------------------------

// flushSafe tries the bulk upsert first and falls back to row-by-row so
// one poisoned payload cannot sink the whole batch. Rows that still fail
// are requeued.
func (w *AutosaveWorker) flushSafe(ctx context.Context, batch []model.TempAnswer) {
	if len(batch) == 0 {
		return
	}

	if err := w.attemptRepo.UpsertTempAnswers(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("Bulk temp-answer upsert failed, using fallback")

		for i := range batch {
			if err := w.attemptRepo.UpsertTempAnswers(ctx, batch[i:i+1]); err != nil {
				w.log.Error().Err(err).
					Str("attempt_id", batch[i].AttemptID.String()).
					Msg("Single temp-answer upsert failed, requeueing")
				raw, _ := json.Marshal(batch[i])
				w.rdb.RPush(ctx, config.WorkerKey.PersistTempAnswersQueue, raw)
			}
		}
		return
	}

	w.log.Debug().Int("count", len(batch)).Msg("Temp answers persisted")
}
