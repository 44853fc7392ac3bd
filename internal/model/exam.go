package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is an instructor-authored exam. It starts as a draft
// (Published=false) and becomes visible to students once published.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	CourseID        int        `json:"course_id"`
	InstructorID    int        `json:"instructor_id"`
	DurationMinutes int        `json:"duration_minutes"`
	Deadline        *time.Time `json:"deadline,omitempty"`
	Published       bool       `json:"published"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Duration returns the per-attempt time budget.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// CreateExamRequest is the payload for creating a new draft exam.
type CreateExamRequest struct {
	Title           string     `json:"title" binding:"required,notblank,min=3,max=255"`
	CourseID        int        `json:"course_id" binding:"required,min=1"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=1440"`
	Deadline        *time.Time `json:"deadline" binding:"omitempty"`
}

// UpdateExamRequest is the payload for editing an exam's title, duration or deadline.
// ClearDeadline removes an existing deadline.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"omitempty,notblank,min=3,max=255"`
	DurationMinutes int        `json:"duration_minutes" binding:"omitempty,min=1,max=1440"`
	Deadline        *time.Time `json:"deadline" binding:"omitempty"`
	ClearDeadline   bool       `json:"clear_deadline"`
}

// ExamPaper is the student-facing view of an exam (no answer keys).
type ExamPaper struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	DurationMinutes int                  `json:"duration_minutes"`
	Deadline        *time.Time           `json:"deadline,omitempty"`
	Questions       []QuestionForStudent `json:"questions"`
}
