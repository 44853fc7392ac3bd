package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ExamService handles exam authoring and the publish lifecycle.
type ExamService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(store repository.Store, log zerolog.Logger) *ExamService {
	return &ExamService{
		store: store,
		log:   log.With().Str("component", "exam_service").Logger(),
	}
}

// GetExam retrieves an exam by its UUID.
func (s *ExamService) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, examErr("get exam", err)
	}
	return exam, nil
}

// GetOwnedExam retrieves an exam and checks it belongs to the instructor.
func (s *ExamService) GetOwnedExam(ctx context.Context, instructorID int, examID uuid.UUID) (*model.Exam, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.InstructorID != instructorID {
		return nil, ErrNotExamOwner
	}
	return exam, nil
}

// ListByCourse lists every exam of a course, drafts included.
func (s *ExamService) ListByCourse(ctx context.Context, courseID int) ([]model.Exam, error) {
	exams, err := s.store.ListExamsByCourse(ctx, courseID, false)
	if err != nil {
		return nil, storeErr("list exams", err)
	}
	if exams == nil {
		exams = []model.Exam{}
	}
	return exams, nil
}

// CreateExam inserts a new draft exam owned by the instructor.
func (s *ExamService) CreateExam(ctx context.Context, instructorID int, req *model.CreateExamRequest, now time.Time) (*model.Exam, error) {
	now = clock.Normalize(now)
	exam := &model.Exam{
		ID:              uuid.New(),
		Title:           req.Title,
		CourseID:        req.CourseID,
		InstructorID:    instructorID,
		DurationMinutes: req.DurationMinutes,
		Deadline:        normalizePtr(req.Deadline),
		Published:       false,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateExam(ctx, exam); err != nil {
		return nil, storeErr("create exam", err)
	}

	s.log.Info().
		Str("exam_id", exam.ID.String()).
		Int("course_id", exam.CourseID).
		Msg("Exam created")
	return exam, nil
}

// UpdateExam edits title, duration and deadline. Only allowed while the
// exam is unpublished or nobody has attempted it.
func (s *ExamService) UpdateExam(ctx context.Context, instructorID int, examID uuid.UUID, req *model.UpdateExamRequest, now time.Time) (*model.Exam, error) {
	exam, err := s.GetOwnedExam(ctx, instructorID, examID)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		exam.Title = req.Title
	}
	if req.DurationMinutes > 0 {
		exam.DurationMinutes = req.DurationMinutes
	}
	switch {
	case req.ClearDeadline:
		exam.Deadline = nil
	case req.Deadline != nil:
		exam.Deadline = normalizePtr(req.Deadline)
	}
	exam.UpdatedAt = clock.Normalize(now)

	err = s.store.UpdateExam(ctx, exam)
	switch {
	case errors.Is(err, repository.ErrHasAttempts):
		return nil, ErrExamLocked
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrExamNotFound
	case err != nil:
		return nil, storeErr("update exam", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam updated")
	return exam, nil
}

// DeleteExam removes an exam together with its questions, attempts and answers.
func (s *ExamService) DeleteExam(ctx context.Context, instructorID int, examID uuid.UUID) error {
	if _, err := s.GetOwnedExam(ctx, instructorID, examID); err != nil {
		return err
	}
	if err := s.store.DeleteExam(ctx, examID); err != nil {
		return examErr("delete exam", err)
	}

	s.log.Info().Str("exam_id", examID.String()).Msg("Exam deleted")
	return nil
}

// ReplaceQuestions swaps the whole question set of an exam. The set is
// frozen once any attempt exists.
func (s *ExamService) ReplaceQuestions(ctx context.Context, instructorID int, examID uuid.UUID, reqs []model.QuestionRequest) ([]model.Question, error) {
	if _, err := s.GetOwnedExam(ctx, instructorID, examID); err != nil {
		return nil, err
	}

	questions := make([]model.Question, 0, len(reqs))
	for i := range reqs {
		q := reqs[i].ToQuestion(examID)
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %w", ErrInvalidQuestion, i+1, err)
		}
		q.ID = uuid.New()
		if q.OrderNum == 0 {
			q.OrderNum = i + 1
		}
		questions = append(questions, q)
	}

	err := s.store.ReplaceQuestions(ctx, examID, questions)
	switch {
	case errors.Is(err, repository.ErrHasAttempts):
		return nil, ErrExamLocked
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrExamNotFound
	case err != nil:
		return nil, storeErr("replace questions", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("questions", len(questions)).
		Msg("Questions replaced")
	return questions, nil
}

// ListQuestions lists an exam's questions with their answer keys.
func (s *ExamService) ListQuestions(ctx context.Context, instructorID int, examID uuid.UUID) ([]model.Question, error) {
	if _, err := s.GetOwnedExam(ctx, instructorID, examID); err != nil {
		return nil, err
	}
	questions, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	return questions, nil
}

// SetPublished publishes or unpublishes an exam. Unpublishing fails with
// ErrCannotUnpublish once any attempt exists, whatever its status.
func (s *ExamService) SetPublished(ctx context.Context, examID uuid.UUID, published bool, now time.Time) (*model.Exam, error) {
	exam, err := s.store.SetPublished(ctx, examID, published, clock.Normalize(now))
	switch {
	case errors.Is(err, repository.ErrHasAttempts):
		return nil, ErrCannotUnpublish
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrExamNotFound
	case err != nil:
		return nil, storeErr("set published", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Bool("published", exam.Published).
		Msg("Exam publish state changed")
	return exam, nil
}

func normalizePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	n := clock.Normalize(*t)
	return &n
}
