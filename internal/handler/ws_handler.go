package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/middleware"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
	ws "github.com/panotify/exam-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket attempt stream.
type WSHandler struct {
	attemptService *service.AttemptService
	clock          clock.Clock
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(attemptService *service.AttemptService, clk clock.Clock, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		attemptService: attemptService,
		clock:          clk,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Upgrades to WebSocket for autosave, live state and submission of an
// in-progress attempt.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	studentID := claims.UserID

	// Refuse the upgrade for students who have not started the exam.
	if _, err := h.attemptService.GetAttempt(c.Request.Context(), studentID, examID); err != nil {
		failService(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	ctx := c.Request.Context()

	if err := h.sendState(ctx, conn, wsLog, studentID, examID); err != nil {
		return
	}

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var writeErr error
		switch msg.Action {
		case ws.ActionAutosave:
			writeErr = h.handleAutosave(ctx, conn, studentID, examID, &msg)
		case ws.ActionSubmit:
			writeErr = h.handleSubmit(ctx, conn, wsLog, studentID, examID, &msg)
		case ws.ActionState:
			writeErr = h.sendState(ctx, conn, wsLog, studentID, examID)
		case ws.ActionPing:
			writeErr = ws.WriteEvent(conn, ws.EventPong, nil)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			writeErr = ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action), nil)
		}
		if writeErr != nil {
			wsLog.Warn().Err(writeErr).Msg("Write failed, closing stream")
			return
		}
	}
}

// writeServiceError sends err as an error event with its API code.
func writeServiceError(conn *websocket.Conn, err error, data interface{}) error {
	code := errCode(err)
	return ws.WriteError(conn, string(code), response.GetMessage(code), data)
}

// handleAutosave records one raw answer.
func (h *WSHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, studentID int, examID uuid.UUID, msg *ws.RequestPayload) error {
	if msg.QID == "" {
		return ws.WriteError(conn, string(response.ErrValidation), "q_id is required", nil)
	}
	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		return ws.WriteError(conn, string(response.ErrInvalidID), "invalid q_id format", nil)
	}

	if err := h.attemptService.SaveAnswer(ctx, studentID, examID, questionID, msg.Answer, h.clock.Now()); err != nil {
		return writeServiceError(conn, err, nil)
	}
	return ws.WriteEvent(conn, ws.EventSuccess, ws.AutosaveData{Status: "saved", QID: msg.QID})
}

// handleSubmit finalizes the attempt and sends the graded report.
func (h *WSHandler) handleSubmit(
	ctx context.Context,
	conn *websocket.Conn,
	wsLog zerolog.Logger,
	studentID int,
	examID uuid.UUID,
	msg *ws.RequestPayload,
) error {
	answers, err := parseAnswers(msg.Answers)
	if err != nil {
		return ws.WriteError(conn, string(response.ErrValidation), err.Error(), nil)
	}

	report, err := h.attemptService.SubmitAttempt(ctx, studentID, examID, answers, h.clock.Now())
	if err != nil {
		var data interface{}
		if errors.Is(err, service.ErrDeadlinePassed) && report != nil {
			data = graded(report)
		} else {
			wsLog.Error().Err(err).Msg("Submit failed")
		}
		return writeServiceError(conn, err, data)
	}

	return ws.WriteEvent(conn, ws.EventGraded, graded(report))
}

// sendState pushes the live attempt state.
func (h *WSHandler) sendState(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, studentID int, examID uuid.UUID) error {
	state, err := h.attemptService.State(ctx, studentID, examID, h.clock.Now())
	if err != nil {
		wsLog.Warn().Err(err).Msg("State lookup failed")
		return writeServiceError(conn, err, nil)
	}
	return ws.WriteEvent(conn, ws.EventState, state)
}

func graded(report *model.Attempt) ws.GradedData {
	return ws.GradedData{
		Status:     string(report.Status),
		TotalScore: report.TotalScore,
		MaxScore:   report.MaxScore,
		Percent:    report.Percent(),
	}
}
