package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/database"
	"github.com/apexamhq/apexam-backend/internal/grader"
	"github.com/apexamhq/apexam-backend/internal/handler"
	"github.com/apexamhq/apexam-backend/internal/logger"
	"github.com/apexamhq/apexam-backend/internal/repository"
	"github.com/apexamhq/apexam-backend/internal/router"
	"github.com/apexamhq/apexam-backend/internal/service"
	"github.com/apexamhq/apexam-backend/internal/storage"
	"github.com/apexamhq/apexam-backend/internal/validator"
	"github.com/apexamhq/apexam-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Apexam Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Storage ────────────────────────────────────────────
	var store storage.Store
	switch cfg.StorageDriver {
	case "s3":
		store, err = storage.NewS3Store(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
		log.Info().Str("bucket", cfg.S3Bucket).Msg("Using S3 storage")
	default:
		store = storage.NewLocalStore(cfg.UploadDir, cfg.MaxUploadBytes)
		log.Info().Str("dir", cfg.UploadDir).Msg("Using local storage")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	participantRepo := repository.NewParticipantRepository(pool)
	frqRepo := repository.NewFRQSubmissionRepository(pool)
	gradingRepo := repository.NewGradingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, participantRepo)
	examService := service.NewExamService(examRepo, questionRepo, rdb, log)
	attemptService := service.NewAttemptService(attemptRepo, examService, rdb, log)
	sessionManager := service.NewSessionManager(rdb, log)
	uploadService := service.NewUploadService(frqRepo, questionRepo, store, rdb, log)
	gradingService := service.NewGradingService(gradingRepo, rdb, log)
	monitorService := service.NewMonitorService(attemptRepo, participantRepo, frqRepo, log)
	reviewService := service.NewReviewService(attemptService, examService, uploadService, gradingService, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, log),
		StudentPortal: handler.NewStudentPortalHandler(cfg, examService, attemptService, reviewService, log),
		WS:            handler.NewWSHandler(rdb, examService, attemptService, uploadService, gradingService, sessionManager, log, cfg.AllowedOrigins),
		MobileUpload:  handler.NewMobileUploadHandler(uploadService, log),
		TeacherExam:   handler.NewTeacherExamHandler(examService, monitorService, reviewService, uploadService, log),
		Monitor:       handler.NewMonitorHandler(rdb, examService, monitorService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	autosaveWorker := worker.NewAutosaveWorker(attemptRepo, rdb, log)
	gradingWorker := worker.NewGradingWorker(questionRepo, gradingRepo, grader.NewSimulator(), rdb, log)

	go autosaveWorker.Start(workerCtx)
	go gradingWorker.Start(workerCtx)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published exams into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := examService.PrewarmPublishedExams(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
