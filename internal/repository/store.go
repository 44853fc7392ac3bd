package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/model"
)

// Store errors. Any other error returned by a Store means the backing
// store could not serve the call.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrExamNotOpen   = errors.New("exam is not published")
	ErrHasAttempts   = errors.New("exam has attempts")
	ErrNotInProgress = errors.New("attempt is not in progress")
)

// ExamStore persists exams.
type ExamStore interface {
	CreateExam(ctx context.Context, e *model.Exam) error
	GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListExamsByCourse(ctx context.Context, courseID int, publishedOnly bool) ([]model.Exam, error)
	// UpdateExam writes title, duration and deadline. It fails with
	// ErrHasAttempts when the exam is published and has any attempt.
	UpdateExam(ctx context.Context, e *model.Exam) error
	// SetPublished fails with ErrHasAttempts when unpublishing an exam
	// that has any attempt. The check and the write are atomic.
	SetPublished(ctx context.Context, id uuid.UUID, published bool, at time.Time) (*model.Exam, error)
	// DeleteExam removes the exam with its questions, attempts and answers.
	DeleteExam(ctx context.Context, id uuid.UUID) error
}

// QuestionStore persists questions.
type QuestionStore interface {
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	// ReplaceQuestions swaps the whole question set. It fails with
	// ErrHasAttempts when the exam has any attempt.
	ReplaceQuestions(ctx context.Context, examID uuid.UUID, questions []model.Question) error
}

// AttemptStore persists attempts (report rows).
type AttemptStore interface {
	// CreateAttempt inserts an in-progress attempt. It fails with
	// ErrDuplicate when the (student, exam) pair already has one and with
	// ErrExamNotOpen when the exam is not published at insert time.
	CreateAttempt(ctx context.Context, a *model.Attempt) error
	GetAttempt(ctx context.Context, studentID int, examID uuid.UUID) (*model.Attempt, error)
	ListAttemptsByExam(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error)
	ListAttemptsByStudent(ctx context.Context, studentID int) ([]model.Attempt, error)
	ListInProgressAttempts(ctx context.Context) ([]model.Attempt, error)
	CountAttempts(ctx context.Context, examID uuid.UUID) (int, error)
	// FinalizeAttempt moves an in-progress attempt to a.Status with its
	// scores and replaces the pair's answers with the graded ones in the
	// same transaction, so no answer survives that the score did not see.
	// It fails with ErrNotInProgress when the attempt is already terminal.
	FinalizeAttempt(ctx context.Context, a *model.Attempt, answers []model.Answer) error
}

// AnswerStore persists raw answers.
type AnswerStore interface {
	// SaveAnswer upserts a raw answer. It fails with ErrNotInProgress when
	// the owning attempt is missing or terminal.
	SaveAnswer(ctx context.Context, a *model.Answer) error
	ListAnswers(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Answer, error)
	// CountAnswersByStudent returns the number of recorded answers per
	// student for an exam.
	CountAnswersByStudent(ctx context.Context, examID uuid.UUID) (map[int]int, error)
}

// EnrollmentStore answers the course enrollment queries the exam engine needs.
type EnrollmentStore interface {
	CountEnrolled(ctx context.Context, courseID int) (int, error)
	ListEnrolledStudents(ctx context.Context, courseID int) ([]int, error)
}

// Store is the full persistence contract of the exam engine.
type Store interface {
	ExamStore
	QuestionStore
	AttemptStore
	AnswerStore
	EnrollmentStore
}
