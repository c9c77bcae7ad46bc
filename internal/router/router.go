package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/apexamhq/apexam-backend/internal/config"
	"github.com/apexamhq/apexam-backend/internal/handler"
	"github.com/apexamhq/apexam-backend/internal/middleware"
	"github.com/apexamhq/apexam-backend/internal/response"
	"github.com/apexamhq/apexam-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	WS            *handler.WSHandler
	MobileUpload  *handler.MobileUploadHandler
	TeacherExam   *handler.TeacherExamHandler
	Monitor       *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Serve uploaded page images statically with aggressive caching
	// (1 year); re-uploads get a fresh object name.
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Auth Group (Public) ────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/participant/login", handlers.Auth.ParticipantLogin)
		auth.POST("/teacher/login", handlers.Auth.TeacherLogin)
	}

	// ─── 2. Student Group (Participant JWT) ────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireParticipantJWT(authService))
	{
		studentAPI.GET("/exams", handlers.StudentPortal.ListExams)
		studentAPI.GET("/exams/:exam_id/paper", handlers.StudentPortal.GetExamPaper)
		studentAPI.POST("/attempts", handlers.StudentPortal.StartAttempt)
		studentAPI.GET("/attempts/:attempt_id/review", handlers.StudentPortal.GetReview)
		studentAPI.GET("/questions/:question_id/upload-link", handlers.StudentPortal.GetUploadLink)
	}

	// ─── 3. WebSocket Group (Participant WS Auth) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireParticipantWSAuth(authService))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Mobile Upload Group (Link-Keyed, No Auth) ──────────────────
	mobileAPI := router.Group("/api/v1/mobile")
	{
		mobileAPI.POST("/uploads", handlers.MobileUpload.UploadPage)
	}

	// ─── 5. Teacher Group (Teacher JWT) ────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.POST("/exams", handlers.TeacherExam.CreateExam)
		teacherAPI.POST("/exams/:exam_id/publish", handlers.TeacherExam.PublishExam)
		teacherAPI.GET("/exams/:exam_id/attempts", handlers.TeacherExam.ListAttempts)
		teacherAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.MonitorExamSSE)
		teacherAPI.GET("/attempts/:attempt_id/review", handlers.TeacherExam.GetAttemptReview)
		teacherAPI.POST("/uploads", handlers.TeacherExam.UploadPageForParticipant)
	}

	return router
}
