package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const healthTimeout = 2 * time.Second

// Sweeper runs one leased sweep of expired attempts.
type Sweeper interface {
	Sweep(ctx context.Context) (res service.SweepResult, ran bool, err error)
}

// SystemHandler serves health and operational endpoints.
type SystemHandler struct {
	rdb     *redis.Client
	sweeper Sweeper
	log     zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil.
func NewSystemHandler(rdb *redis.Client, sweeper Sweeper, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:     rdb,
		sweeper: sweeper,
		log:     log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Reports liveness and, when configured, Redis reachability. Redis is
// optional, so a failing ping degrades instead of failing the check.
func (h *SystemHandler) Health(c *gin.Context) {
	status := gin.H{"status": "ok"}

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis health check failed")
			status["status"] = "degraded"
			status["redis"] = "unreachable"
		} else {
			status["redis"] = "ok"
		}
	}

	response.Success(c, http.StatusOK, status)
}

// RunSweep godoc
// POST /api/v1/instructor/sweep
// Finalizes every expired in-progress attempt now. skipped is true when
// another replica is sweeping.
func (h *SystemHandler) RunSweep(c *gin.Context) {
	res, ran, err := h.sweeper.Sweep(c.Request.Context())
	switch {
	case err != nil && res.Failed == 0:
		// Nothing was attempted: the lease or the attempt scan failed.
		h.log.Error().Err(err).Msg("Manual sweep failed")
		failService(c, err)
		return
	case err != nil:
		h.log.Warn().Err(err).Int("failed", res.Failed).Msg("Manual sweep finished with failures")
	}

	response.Success(c, http.StatusOK, gin.H{
		"skipped": !ran,
		"result":  res,
	})
}
