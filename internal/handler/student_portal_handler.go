package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/panotify/exam-backend/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints (lobby, exam taking, results).
type StudentPortalHandler struct {
	attemptService *service.AttemptService
	reportService  *service.ReportService
	clock          clock.Clock
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	attemptService *service.AttemptService,
	reportService *service.ReportService,
	clk clock.Clock,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		attemptService: attemptService,
		reportService:  reportService,
		clock:          clk,
	}
}

// errInvalidAnswerKey rejects answer maps keyed by something other than a question UUID.
var errInvalidAnswerKey = errors.New("answer keys must be question ids")

// parseAnswers converts client answers keyed by question id strings.
func parseAnswers(raw map[string]string) (map[uuid.UUID]string, error) {
	answers := make(map[uuid.UUID]string, len(raw))
	for k, v := range raw {
		qid, err := uuid.Parse(k)
		if err != nil {
			return nil, errInvalidAnswerKey
		}
		answers[qid] = v
	}
	return answers, nil
}

// GetLobby godoc
// GET /api/v1/student/courses/:course_id/exams
// Lists published exams of a course with the caller's attempt status.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}

	lobby, err := h.reportService.Lobby(c.Request.Context(), studentID, courseID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/start
// Opens the caller's single attempt at a published exam.
func (h *StudentPortalHandler) StartAttempt(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), studentID, examID, h.clock.Now())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// GetExamPaper godoc
// GET /api/v1/student/exams/:exam_id/paper
// Returns the questions without answer keys. Only while the attempt is in progress.
func (h *StudentPortalHandler) GetExamPaper(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	paper, err := h.attemptService.Paper(c.Request.Context(), studentID, examID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// SaveAnswer godoc
// PUT /api/v1/student/exams/:exam_id/answers/:question_id
// Records a raw answer. Grading happens on submit.
func (h *StudentPortalHandler) SaveAnswer(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	err = h.attemptService.SaveAnswer(c.Request.Context(), studentID, examID, questionID, req.AnswerText, h.clock.Now())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// GetExamState godoc
// GET /api/v1/student/exams/:exam_id/state
// Returns status, remaining seconds and recorded answers.
func (h *StudentPortalHandler) GetExamState(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), studentID, examID, h.clock.Now())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// SubmitAttempt godoc
// POST /api/v1/student/exams/:exam_id/submit
// Grades and closes the attempt. The body is optional; its answers are
// merged over the recorded ones. A late submission is closed as a timeout
// and answered with DEADLINE_PASSED plus that report.
func (h *StudentPortalHandler) SubmitAttempt(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}
	answers, err := parseAnswers(req.Answers)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"answers": err.Error()})
		return
	}

	report, err := h.attemptService.SubmitAttempt(c.Request.Context(), studentID, examID, answers, h.clock.Now())
	switch {
	case errors.Is(err, service.ErrDeadlinePassed) && report != nil:
		response.FailWithData(c, response.ErrDeadlinePassed, gin.H{"report": report, "percent": report.Percent()})
		return
	case err != nil:
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report, "percent": report.Percent()})
}

// GetResult godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the finalized report with the per-question review.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	result, err := h.reportService.AttemptResult(c.Request.Context(), studentID, examID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetCourseReport godoc
// GET /api/v1/student/courses/:course_id/report
// Returns the caller's aggregated results within a course.
func (h *StudentPortalHandler) GetCourseReport(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}

	report, err := h.reportService.StudentCourseReport(c.Request.Context(), studentID, courseID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"report": report})
}
