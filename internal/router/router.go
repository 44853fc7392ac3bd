package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/handler"
	"github.com/panotify/exam-backend/internal/middleware"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/observability"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam          *handler.ExamHandler
	Report        *handler.ReportHandler
	StudentPortal *handler.StudentPortalHandler
	WS            *handler.WSHandler
	Monitor       *handler.MonitorHandler
	System        *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// limiter may be nil to disable student rate limiting.
func SetupRouter(
	tokens middleware.TokenValidator,
	handlers *Handlers,
	limiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", response.HeaderRequestID}
	corsConfig.ExposeHeaders = []string{response.HeaderRequestID}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(
		response.RequestIDMiddleware(),
		middleware.RequestLogger(log),
		observability.Middleware(),
		middleware.Brotli(),
	)

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", observability.MetricsHandler())

	// ─── 1. Instructor Group (JWT + role) ──────────────────────────────
	instructorAPI := router.Group("/api/v1/instructor")
	instructorAPI.Use(
		middleware.RequireJWT(tokens),
		middleware.RequireRole(model.RoleInstructor),
	)
	{
		instructorAPI.POST("/exams", handlers.Exam.CreateExam)
		instructorAPI.GET("/courses/:course_id/exams", handlers.Exam.ListExams)
		instructorAPI.GET("/exams/:exam_id", handlers.Exam.GetExam)
		instructorAPI.PUT("/exams/:exam_id", handlers.Exam.UpdateExam)
		instructorAPI.DELETE("/exams/:exam_id", handlers.Exam.DeleteExam)

		instructorAPI.PUT("/exams/:exam_id/questions", handlers.Exam.ReplaceQuestions)
		instructorAPI.GET("/exams/:exam_id/questions", handlers.Exam.ListQuestions)

		instructorAPI.POST("/exams/:exam_id/publish", handlers.Exam.PublishExam)
		instructorAPI.POST("/exams/:exam_id/unpublish", handlers.Exam.UnpublishExam)

		// Reports
		instructorAPI.GET("/exams/:exam_id/statistics", handlers.Report.GetStatistics)
		instructorAPI.GET("/exams/:exam_id/reports", handlers.Report.ListReports)
		instructorAPI.GET("/courses/:course_id/report", handlers.Report.GetCourseReport)

		// Live monitor (SSE; EventSource sends the token as ?token=)
		instructorAPI.GET("/exams/:exam_id/monitor", handlers.Monitor.MonitorExamSSE)

		instructorAPI.POST("/sweep", handlers.System.RunSweep)
	}

	// ─── 2. Student Group (JWT + role + rate limit) ────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireJWT(tokens),
		middleware.RequireRole(model.RoleStudent),
	)
	if limiter != nil {
		studentAPI.Use(limiter.Middleware())
	}
	{
		studentAPI.GET("/courses/:course_id/exams", handlers.StudentPortal.GetLobby)
		studentAPI.GET("/courses/:course_id/report", handlers.StudentPortal.GetCourseReport)

		studentAPI.POST("/exams/:exam_id/start", handlers.StudentPortal.StartAttempt)
		studentAPI.GET("/exams/:exam_id/paper", middleware.NoStore(), handlers.StudentPortal.GetExamPaper)
		studentAPI.PUT("/exams/:exam_id/answers/:question_id", handlers.StudentPortal.SaveAnswer)
		studentAPI.GET("/exams/:exam_id/state", middleware.NoStore(), handlers.StudentPortal.GetExamState)
		studentAPI.POST("/exams/:exam_id/submit", handlers.StudentPortal.SubmitAttempt)
		studentAPI.GET("/exams/:exam_id/result", handlers.StudentPortal.GetResult)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(tokens),
		middleware.RequireRole(model.RoleStudent),
	)
	{
		ws.GET("/student/exams/:exam_id/stream", handlers.WS.ExamWebSocketStream)
	}

	return router
}
