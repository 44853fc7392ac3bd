package grading

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/model"
)

// QuestionLister loads the question set of an exam.
type QuestionLister interface {
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// Engine grades attempts against the question set held by a store.
type Engine struct {
	questions QuestionLister
}

// NewEngine creates a new Engine.
func NewEngine(questions QuestionLister) *Engine {
	return &Engine{questions: questions}
}

// GradeAttempt scores answers for a student against the exam's current
// question set.
func (e *Engine) GradeAttempt(ctx context.Context, examID uuid.UUID, studentID int, answers map[uuid.UUID]string) (*Report, error) {
	questions, err := e.questions.ListQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	r := Score(questions, answers)
	r.ExamID = examID
	r.StudentID = studentID
	return &r, nil
}
