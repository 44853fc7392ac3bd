package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/panotify/exam-backend/internal/auth"
	"github.com/panotify/exam-backend/internal/cache"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/database"
	"github.com/panotify/exam-backend/internal/events"
	"github.com/panotify/exam-backend/internal/grading"
	"github.com/panotify/exam-backend/internal/handler"
	"github.com/panotify/exam-backend/internal/logger"
	"github.com/panotify/exam-backend/internal/middleware"
	"github.com/panotify/exam-backend/internal/repository"
	"github.com/panotify/exam-backend/internal/repository/memstore"
	"github.com/panotify/exam-backend/internal/router"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/panotify/exam-backend/internal/validator"
	"github.com/panotify/exam-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting exam backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.Real{}

	// ─── Open Store ────────────────────────────────────────────────────
	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// Interfaces stay nil without Redis; a typed nil pointer would not.
	var (
		expiry      service.ExpiryCache
		attemptSink service.AttemptEvents
	)
	if rdb != nil {
		defer rdb.Close()
		expiry = cache.NewExpiryCache(rdb, cfg.ExpiryCacheTTL)
		attemptSink = events.NewPublisher(rdb)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	examService := service.NewExamService(store, log)
	attemptService := service.NewAttemptService(store, grading.NewEngine(store), expiry, attemptSink, log)
	reportService := service.NewReportService(store, log)
	monitorService := service.NewMonitorService(store)
	scheduler := service.NewScheduler(store, attemptService, log)

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry, clk)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	sweepWorker := worker.NewSweepWorker(scheduler, rdb, clk, cfg.SweepInterval, cfg.SweepLockTTL, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute, clk)

	var workers sync.WaitGroup
	workers.Add(2)
	go func() {
		defer workers.Done()
		sweepWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		limiter.Start(workerCtx)
	}()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:          handler.NewExamHandler(examService, clk),
		Report:        handler.NewReportHandler(examService, reportService),
		StudentPortal: handler.NewStudentPortalHandler(attemptService, reportService, clk),
		WS:            handler.NewWSHandler(attemptService, clk, log, cfg.AllowedOrigins),
		Monitor:       handler.NewMonitorHandler(rdb, examService, monitorService, log),
		System:        handler.NewSystemHandler(rdb, sweepWorker, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokens, handlers, limiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 2. Stop background workers; an in-flight sweep finishes its attempt.
	workerCancel()
	stopped := make(chan struct{})
	go func() {
		workers.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Workers did not stop before shutdown deadline")
	}

	log.Info().Msg("Shutdown complete")
}

// openStore selects the storage backend from config. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Store, func()) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("Using in-memory store; data is lost on restart")
		return memstore.New(), func() {}
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		return repository.NewPostgresStore(pool), pool.Close
	default:
		log.Fatal().Str("store", cfg.StoreDriver).Msg("Unknown STORE_DRIVER")
		return nil, nil
	}
}
