package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live attempt progress of an exam to its instructor.
type MonitorHandler struct {
	rdb            *redis.Client
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler. rdb may be nil, in which
// case the stream is refreshed by polling only.
func NewMonitorHandler(
	rdb *redis.Client,
	examService *service.ExamService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/instructor/exams/:exam_id/monitor
// Sends a snapshot, then forwards attempt-finalized events and periodic
// refreshes until the client disconnects.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	reqCtx := c.Request.Context()
	exam, err := h.examService.GetOwnedExam(reqCtx, instructorID, examID)
	if err != nil {
		failService(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, exam, "snapshot")

	// A nil channel never fires, leaving only the tickers without Redis.
	var events <-chan *redis.Message
	if h.rdb != nil {
		pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.AttemptEventsChannel(examID.String()))
		defer pubsub.Close()
		events = pubsub.Channel()
	}

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("exam_id", examID.String()).Msg("Instructor attached to live monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Instructor disconnected from live monitor SSE")
			return

		case msg, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// Forward raw JSON directly, no deserialization needed.
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write([]byte(msg.Payload))
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendSnapshot(c, reqCtx, exam, "refresh")

		case <-keepAliveTicker.C:
			c.SSEvent("message", map[string]string{"type": "ping"})
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the current progress of every attempt as one event.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, exam *model.Exam, kind string) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.Snapshot(ctx, exam.ID)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to build monitor snapshot")
		return
	}

	c.SSEvent("message", map[string]interface{}{
		"type": kind,
		"exam": map[string]interface{}{
			"id":       exam.ID,
			"title":    exam.Title,
			"duration": exam.DurationMinutes,
			"deadline": exam.Deadline,
		},
		"data": snapshot,
	})
	c.Writer.Flush()
}
