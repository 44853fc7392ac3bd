package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/auth"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/grading"
	"github.com/panotify/exam-backend/internal/handler"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/repository/memstore"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/router"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/panotify/exam-backend/internal/validator"
	"github.com/panotify/exam-backend/internal/worker"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	instructorID = 1
	otherTeacher = 2
	studentID    = 7
	courseID     = 10
)

var t0 = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type api struct {
	t      *testing.T
	engine *gin.Engine
	store  *memstore.Store
	clock  *clock.Fake
	tokens *auth.TokenService
}

// envelope is response.Response with the data left raw for per-test decoding.
type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func newAPI(t *testing.T) *api {
	t.Helper()
	validator.Setup()

	log := zerolog.Nop()
	store := memstore.New()
	clk := clock.NewFake(t0)
	tokens := auth.NewTokenService("test-secret", "exam-backend", 24*time.Hour, clk)

	exams := service.NewExamService(store, log)
	attempts := service.NewAttemptService(store, grading.NewEngine(store), nil, nil, log)
	reports := service.NewReportService(store, log)
	monitor := service.NewMonitorService(store)
	sweeper := worker.NewSweepWorker(service.NewScheduler(store, attempts, log), nil, clk, time.Minute, time.Minute, log)

	handlers := &router.Handlers{
		Exam:          handler.NewExamHandler(exams, clk),
		Report:        handler.NewReportHandler(exams, reports),
		StudentPortal: handler.NewStudentPortalHandler(attempts, reports, clk),
		WS:            handler.NewWSHandler(attempts, clk, log, nil),
		Monitor:       handler.NewMonitorHandler(nil, exams, monitor, log),
		System:        handler.NewSystemHandler(nil, sweeper, log),
	}
	cfg := &config.Config{GinMode: gin.TestMode}

	return &api{
		t:      t,
		engine: router.SetupRouter(tokens, handlers, nil, cfg, log),
		store:  store,
		clock:  clk,
		tokens: tokens,
	}
}

func (a *api) token(userID int, role model.Role) string {
	a.t.Helper()
	tok, err := a.tokens.Issue(userID, role)
	require.NoError(a.t, err)
	return tok
}

func (a *api) instructor() string { return a.token(instructorID, model.RoleInstructor) }
func (a *api) student() string    { return a.token(studentID, model.RoleStudent) }

func (a *api) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func requireCode(t *testing.T, env envelope, code response.ErrCode) {
	t.Helper()
	require.NotNil(t, env.Error, "expected error %s", code)
	require.Equal(t, code, env.Error.Code)
}

func sampleQuestions() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"question_text":        "2 + 2 = ?",
			"question_type":        "MULTIPLE_CHOICE",
			"points":               2,
			"options":              []string{"3", "4", "5"},
			"correct_option_index": 1,
		},
		{
			"question_text":  "Capital of France",
			"question_type":  "IDENTIFICATION",
			"points":         3,
			"correct_answer": "Paris",
		},
	}
}

// publishedExam creates, fills and publishes an exam through the API.
func (a *api) publishedExam(duration int, deadline *time.Time) (model.Exam, []model.Question) {
	a.t.Helper()
	tok := a.instructor()

	body := map[string]interface{}{
		"title":            "Midterm",
		"course_id":        courseID,
		"duration_minutes": duration,
	}
	if deadline != nil {
		body["deadline"] = deadline
	}
	code, env := a.do(http.MethodPost, "/api/v1/instructor/exams", tok, body)
	require.Equal(a.t, http.StatusCreated, code, env.Error)
	exam := decode[struct{ Exam model.Exam }](a.t, env).Exam

	code, env = a.do(http.MethodPut, examPath(exam, "questions"), tok, map[string]interface{}{"questions": sampleQuestions()})
	require.Equal(a.t, http.StatusOK, code, env.Error)
	questions := decode[struct{ Questions []model.Question }](a.t, env).Questions

	code, env = a.do(http.MethodPost, examPath(exam, "publish"), tok, nil)
	require.Equal(a.t, http.StatusOK, code, env.Error)
	return decode[struct{ Exam model.Exam }](a.t, env).Exam, questions
}

func examPath(exam model.Exam, suffix string) string {
	return fmt.Sprintf("/api/v1/instructor/exams/%s/%s", exam.ID, suffix)
}

func studentPath(exam model.Exam, suffix string) string {
	return fmt.Sprintf("/api/v1/student/exams/%s/%s", exam.ID, suffix)
}
