package model

import "github.com/google/uuid"

// ExamStatistics rolls up reports for one exam.
type ExamStatistics struct {
	ExamID              uuid.UUID `json:"exam_id"`
	AverageScorePercent float64   `json:"average_score_percent"`
	AttemptedCount      int       `json:"attempted_count"`
	EnrolledCount       int       `json:"enrolled_count"`
}

// QuestionResult is the per-question review of a finalized attempt.
type QuestionResult struct {
	QuestionID     uuid.UUID `json:"question_id"`
	QuestionNumber int       `json:"question_number"`
	QuestionText   string    `json:"question_text"`
	StudentAnswer  string    `json:"student_answer"`
	CorrectAnswer  string    `json:"correct_answer"`
	IsCorrect      bool      `json:"is_correct"`
	Points         int       `json:"points"`
}

// AttemptResult is a finalized attempt together with its question review.
type AttemptResult struct {
	Report    Attempt          `json:"report"`
	Percent   float64          `json:"percent"`
	Questions []QuestionResult `json:"questions"`
}

// ExamResult summarizes one exam inside a student's course report.
type ExamResult struct {
	ExamID     uuid.UUID     `json:"exam_id"`
	ExamTitle  string        `json:"exam_title"`
	Status     AttemptStatus `json:"status"`
	TotalScore int           `json:"total_score"`
	MaxScore   int           `json:"max_score"`
	Percent    float64       `json:"percent"`
}

// StudentReport aggregates a student's finalized attempts within a course.
type StudentReport struct {
	StudentID         int          `json:"student_id"`
	CourseID          int          `json:"course_id"`
	ExamsTaken        int          `json:"exams_taken"`
	TotalScore        int          `json:"total_score"`
	MaxScore          int          `json:"max_score"`
	AveragePercentage float64      `json:"average_percentage"`
	ExamResults       []ExamResult `json:"exam_results"`
}

// LobbyExam is a published exam as listed for a student, with the
// student's attempt overlaid when one exists.
type LobbyExam struct {
	Exam
	AttemptStatus *AttemptStatus `json:"attempt_status,omitempty"`
	TotalScore    *int           `json:"total_score,omitempty"`
	MaxScore      *int           `json:"max_score,omitempty"`
}
