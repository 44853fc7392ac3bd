package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
)

// ReportHandler serves instructor-facing report endpoints.
type ReportHandler struct {
	examService   *service.ExamService
	reportService *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(examService *service.ExamService, reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{
		examService:   examService,
		reportService: reportService,
	}
}

// GetStatistics godoc
// GET /api/v1/instructor/exams/:exam_id/statistics
// Returns the average score percentage, attempted count and enrolled count.
func (h *ReportHandler) GetStatistics(c *gin.Context) {
	instructorID, ok := callerID(c)
	if !ok {
		return
	}
	examID, ok := examIDParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	exam, err := h.examService.GetOwnedExam(ctx, instructorID, examID)
	if err != nil {
		failService(c, err)
		return
	}

	stats, err := h.reportService.Statistics(ctx, exam)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"statistics": stats})
}

// ListReports godoc
// GET /api/v1/instructor/exams/:exam_id/reports
// Lists every attempt of the exam, newest submission first.
func (h *ReportHandler) ListReports(c *gin.Context) {
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

	reports, err := h.reportService.ExamReports(ctx, examID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reports": reports})
}

// GetCourseReport godoc
// GET /api/v1/instructor/courses/:course_id/report
// Returns one report per enrolled student.
func (h *ReportHandler) GetCourseReport(c *gin.Context) {
	courseID, ok := courseIDParam(c)
	if !ok {
		return
	}

	reports, err := h.reportService.CourseReport(c.Request.Context(), courseID)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": reports})
}
