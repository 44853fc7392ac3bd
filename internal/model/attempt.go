package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates the states of a student's attempt.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
	AttemptStatusTimeout    AttemptStatus = "timeout"
)

// Terminal reports whether no further transition may leave s.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptStatusCompleted || s == AttemptStatusTimeout
}

// Attempt is one student's single try at one exam, persisted as a report
// row. It is unique per (StudentID, ExamID). Scores are only meaningful
// once Status is terminal.
type Attempt struct {
	StudentID   int           `json:"student_id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	Status      AttemptStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	TotalScore  int           `json:"total_score"`
	MaxScore    int           `json:"max_score"`
}

// Percent returns TotalScore as a percentage of MaxScore, 0 when MaxScore is 0.
func (a *Attempt) Percent() float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return float64(a.TotalScore) / float64(a.MaxScore) * 100
}

// AttemptState is the live view of an attempt for the exam-taking client.
type AttemptState struct {
	ExamID           uuid.UUID         `json:"exam_id"`
	StudentID        int               `json:"student_id"`
	Status           AttemptStatus     `json:"status"`
	StartedAt        time.Time         `json:"started_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	RemainingSeconds float64           `json:"remaining_seconds"`
	RecordedAnswers  map[string]string `json:"recorded_answers"`
}

// SaveAnswerRequest records a raw answer while the attempt is in progress.
type SaveAnswerRequest struct {
	AnswerText string `json:"answer_text" binding:"max=2000"`
}

// SubmitAttemptRequest submits final answers keyed by question ID.
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"omitempty,dive,max=2000"`
}
