package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/panotify/exam-backend/internal/validator"
)

// ExamHandler handles instructor exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
	clock       clock.Clock
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, clk clock.Clock) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		clock:       clk,
	}
}

// ListExams godoc
// GET /api/v1/instructor/courses/:course_id/exams
// Lists every exam of a course, drafts included.
func (h *ExamHandler) ListExams(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}

	exams, err := h.examService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/instructor/exams
// Creates a new draft exam owned by the caller.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.CreateExam(c.Request.Context(), instructorID, &req, h.clock.Now())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/instructor/exams/:exam_id
func (h *ExamHandler) GetExam(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	exam, err := h.examService.GetOwnedExam(c.Request.Context(), instructorID, examID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/instructor/exams/:exam_id
// Edits title, duration or deadline. Rejected once attempts exist.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.UpdateExam(c.Request.Context(), instructorID, examID, &req, h.clock.Now())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/instructor/exams/:exam_id
// Deletes the exam with its questions, answers and reports.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	if err := h.examService.DeleteExam(c.Request.Context(), instructorID, examID); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Exam deleted"})
}

// ReplaceQuestions godoc
// PUT /api/v1/instructor/exams/:exam_id/questions
// Replaces the whole question set. Rejected once attempts exist.
func (h *ExamHandler) ReplaceQuestions(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	var req model.ReplaceQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.examService.ReplaceQuestions(c.Request.Context(), instructorID, examID, req.Questions)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// ListQuestions godoc
// GET /api/v1/instructor/exams/:exam_id/questions
// Lists questions with their answer keys.
func (h *ExamHandler) ListQuestions(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	questions, err := h.examService.ListQuestions(c.Request.Context(), instructorID, examID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// PublishExam godoc
// POST /api/v1/instructor/exams/:exam_id/publish
func (h *ExamHandler) PublishExam(c *gin.Context) {
	h.setPublished(c, true)
}

// UnpublishExam godoc
// POST /api/v1/instructor/exams/:exam_id/unpublish
// Fails with CANNOT_UNPUBLISH once any student has started the exam.
func (h *ExamHandler) UnpublishExam(c *gin.Context) {
	h.setPublished(c, false)
}

func (h *ExamHandler) setPublished(c *gin.Context, published bool) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.examService.GetOwnedExam(ctx, instructorID, examID); err != nil {
		failService(c, err)
		return
	}

	exam, err := h.examService.SetPublished(ctx, examID, published, h.clock.Now())
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}
