package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is a student's response to one question. AnswerText is the raw
// input: an option index as a decimal string, or free text.
type Answer struct {
	StudentID  int       `json:"student_id"`
	QuestionID uuid.UUID `json:"question_id"`
	ExamID     uuid.UUID `json:"exam_id"`
	AnswerText string    `json:"answer_text"`
	IsCorrect  bool      `json:"is_correct"`
	UpdatedAt  time.Time `json:"updated_at"`
}
