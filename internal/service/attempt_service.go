package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/grading"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/observability"
	"github.com/panotify/exam-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ExpiryCache keeps the expiry time of in-progress attempts for fast
// remaining-time lookups. The store stays the source of truth.
type ExpiryCache interface {
	Expiry(ctx context.Context, examID uuid.UUID, studentID int) (time.Time, bool, error)
	SetExpiry(ctx context.Context, examID uuid.UUID, studentID int, expiresAt time.Time) error
	Forget(ctx context.Context, examID uuid.UUID, studentID int) error
}

// AttemptEvents is notified after an attempt reaches a terminal status.
type AttemptEvents interface {
	AttemptFinalized(ctx context.Context, a *model.Attempt) error
}

// AttemptService runs the per-student attempt state machine:
// not started, in progress, then completed or timeout.
type AttemptService struct {
	store  repository.Store
	engine *grading.Engine
	expiry ExpiryCache
	events AttemptEvents
	log    zerolog.Logger
}

// NewAttemptService creates a new AttemptService. expiry and events may be nil.
func NewAttemptService(
	store repository.Store,
	engine *grading.Engine,
	expiry ExpiryCache,
	events AttemptEvents,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		store:  store,
		engine: engine,
		expiry: expiry,
		events: events,
		log:    log.With().Str("component", "attempt_service").Logger(),
	}
}

func (s *AttemptService) getAttempt(ctx context.Context, studentID int, examID uuid.UUID) (*model.Attempt, error) {
	a, err := s.store.GetAttempt(ctx, studentID, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, storeErr("get attempt", err)
	}
	return a, nil
}

// GetAttempt returns the attempt of a student for an exam.
func (s *AttemptService) GetAttempt(ctx context.Context, studentID int, examID uuid.UUID) (*model.Attempt, error) {
	return s.getAttempt(ctx, studentID, examID)
}

// StartAttempt creates the in-progress attempt of a student. At most one
// attempt per (student, exam) ever exists; a concurrent duplicate start
// fails with ErrAlreadyAttempted.
func (s *AttemptService) StartAttempt(ctx context.Context, studentID int, examID uuid.UUID, now time.Time) (*model.Attempt, error) {
	now = clock.Normalize(now)

	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, examErr("get exam", err)
	}
	if !exam.Published {
		return nil, ErrNotPublished
	}
	if exam.Deadline != nil && !now.Before(*exam.Deadline) {
		return nil, ErrDeadlinePassed
	}

	a := &model.Attempt{
		StudentID: studentID,
		ExamID:    examID,
		Status:    model.AttemptStatusInProgress,
		StartedAt: now,
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrAlreadyAttempted
		case errors.Is(err, repository.ErrExamNotOpen):
			return nil, ErrNotPublished
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrExamNotFound
		}
		return nil, storeErr("create attempt", err)
	}

	observability.AttemptsStarted().Inc()
	if s.expiry != nil {
		if err := s.expiry.SetExpiry(ctx, examID, studentID, ExpiresAt(a, exam)); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache attempt expiry")
		}
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Str("status", string(a.Status)).
		Msg("Attempt started")

	return a, nil
}

// FinalizeAttempt grades an in-progress attempt and moves it to reason
// (completed or timeout). answers are merged over the answers recorded so
// far. On an attempt that is already terminal, including one finalized by a
// concurrent caller, the stored report is returned unchanged.
func (s *AttemptService) FinalizeAttempt(
	ctx context.Context,
	studentID int,
	examID uuid.UUID,
	answers map[uuid.UUID]string,
	now time.Time,
	reason model.AttemptStatus,
) (*model.Attempt, error) {
	if !reason.Terminal() {
		return nil, ErrInvalidReason
	}
	now = clock.Normalize(now)

	a, err := s.getAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return a, nil
	}

	recorded, err := s.store.ListAnswers(ctx, studentID, examID)
	if err != nil {
		return nil, storeErr("list answers", err)
	}
	merged := make(map[uuid.UUID]string, len(recorded)+len(answers))
	for _, ans := range recorded {
		merged[ans.QuestionID] = ans.AnswerText
	}
	for qid, text := range answers {
		merged[qid] = text
	}

	report, err := s.engine.GradeAttempt(ctx, examID, studentID, merged)
	if err != nil {
		return nil, storeErr("grade attempt", err)
	}

	final := &model.Attempt{
		StudentID:   studentID,
		ExamID:      examID,
		Status:      reason,
		StartedAt:   a.StartedAt,
		SubmittedAt: &now,
		TotalScore:  report.TotalScore,
		MaxScore:    report.MaxScore,
	}
	graded := report.Answers()
	for i := range graded {
		graded[i].UpdatedAt = now
	}

	err = s.store.FinalizeAttempt(ctx, final, graded)
	switch {
	case errors.Is(err, repository.ErrNotInProgress):
		// Lost the race to another finalize; report what the winner wrote.
		return s.getAttempt(ctx, studentID, examID)
	case err != nil:
		return nil, storeErr("finalize attempt", err)
	}

	observability.AttemptsFinalized().WithLabelValues(string(reason)).Inc()
	s.log.Info().
		Str("exam_id", examID.String()).
		Int("student_id", studentID).
		Str("status", string(reason)).
		Int("total_score", report.TotalScore).
		Int("max_score", report.MaxScore).
		Msg("Attempt finalized")

	stored, err := s.getAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	if s.expiry != nil {
		if err := s.expiry.Forget(ctx, examID, studentID); err != nil {
			s.log.Warn().Err(err).Msg("Failed to drop cached attempt expiry")
		}
	}
	if s.events != nil {
		if err := s.events.AttemptFinalized(ctx, stored); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish attempt finalized event")
		}
	}

	return stored, nil
}

// SubmitAttempt is the student-initiated finalize. An attempt whose time has
// already run out is finalized as a timeout from its recorded answers, and
// the call reports ErrDeadlinePassed along with that report.
func (s *AttemptService) SubmitAttempt(
	ctx context.Context,
	studentID int,
	examID uuid.UUID,
	answers map[uuid.UUID]string,
	now time.Time,
) (*model.Attempt, error) {
	now = clock.Normalize(now)

	a, err := s.getAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return a, nil
	}

	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, examErr("get exam", err)
	}

	if IsExpired(a, exam, now) {
		final, err := s.FinalizeAttempt(ctx, studentID, examID, nil, now, model.AttemptStatusTimeout)
		if err != nil {
			return nil, err
		}
		return final, ErrDeadlinePassed
	}

	return s.FinalizeAttempt(ctx, studentID, examID, answers, now, model.AttemptStatusCompleted)
}

// SaveAnswer records a raw answer on an in-progress attempt. Grading is not
// invoked until the attempt is finalized.
func (s *AttemptService) SaveAnswer(
	ctx context.Context,
	studentID int,
	examID, questionID uuid.UUID,
	answerText string,
	now time.Time,
) error {
	now = clock.Normalize(now)

	a, err := s.getAttempt(ctx, studentID, examID)
	if err != nil {
		return err
	}
	if a.Status.Terminal() {
		return ErrAttemptClosed
	}

	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return examErr("get exam", err)
	}
	if IsExpired(a, exam, now) {
		if _, err := s.FinalizeAttempt(ctx, studentID, examID, nil, now, model.AttemptStatusTimeout); err != nil {
			return err
		}
		return ErrDeadlinePassed
	}

	questions, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return storeErr("list questions", err)
	}
	known := false
	for i := range questions {
		if questions[i].ID == questionID {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownQuestion
	}

	err = s.store.SaveAnswer(ctx, &model.Answer{
		StudentID:  studentID,
		QuestionID: questionID,
		ExamID:     examID,
		AnswerText: answerText,
		UpdatedAt:  now,
	})
	switch {
	case errors.Is(err, repository.ErrNotInProgress):
		return ErrAttemptClosed
	case err != nil:
		return storeErr("save answer", err)
	}
	return nil
}

// Paper returns the questions of the exam a student is taking, without
// answer keys.
func (s *AttemptService) Paper(ctx context.Context, studentID int, examID uuid.UUID) (*model.ExamPaper, error) {
	a, err := s.getAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	if a.Status.Terminal() {
		return nil, ErrAttemptClosed
	}

	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		return nil, examErr("get exam", err)
	}
	questions, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}

	paper := &model.ExamPaper{
		ExamID:          exam.ID,
		Title:           exam.Title,
		DurationMinutes: exam.DurationMinutes,
		Deadline:        exam.Deadline,
		Questions:       make([]model.QuestionForStudent, 0, len(questions)),
	}
	for i := range questions {
		paper.Questions = append(paper.Questions, questions[i].ForStudent())
	}
	return paper, nil
}

// State returns the live view of an attempt: status, remaining time and
// the answers recorded so far.
func (s *AttemptService) State(ctx context.Context, studentID int, examID uuid.UUID, now time.Time) (*model.AttemptState, error) {
	now = clock.Normalize(now)

	a, err := s.getAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.expiresAt(ctx, a)
	if err != nil {
		return nil, err
	}

	recorded, err := s.store.ListAnswers(ctx, studentID, examID)
	if err != nil {
		return nil, storeErr("list answers", err)
	}
	answers := make(map[string]string, len(recorded))
	for _, ans := range recorded {
		answers[ans.QuestionID.String()] = ans.AnswerText
	}

	state := &model.AttemptState{
		ExamID:          examID,
		StudentID:       studentID,
		Status:          a.Status,
		StartedAt:       a.StartedAt,
		ExpiresAt:       expiresAt,
		RecordedAnswers: answers,
	}
	if a.Status == model.AttemptStatusInProgress && now.Before(expiresAt) {
		state.RemainingSeconds = expiresAt.Sub(now).Seconds()
	}
	return state, nil
}

// expiresAt reads the cached expiry of an in-progress attempt, falling back
// to the store and re-populating the cache on a miss.
func (s *AttemptService) expiresAt(ctx context.Context, a *model.Attempt) (time.Time, error) {
	cacheable := s.expiry != nil && a.Status == model.AttemptStatusInProgress
	if cacheable {
		t, ok, err := s.expiry.Expiry(ctx, a.ExamID, a.StudentID)
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to read cached attempt expiry")
		} else if ok {
			return t, nil
		}
	}

	exam, err := s.store.GetExam(ctx, a.ExamID)
	if err != nil {
		return time.Time{}, examErr("get exam", err)
	}
	t := ExpiresAt(a, exam)

	if cacheable {
		if err := s.expiry.SetExpiry(ctx, a.ExamID, a.StudentID, t); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache attempt expiry")
		}
	}
	return t, nil
}
