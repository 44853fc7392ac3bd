package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/observability"
	"github.com/panotify/exam-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ExpiresAt returns the moment an attempt runs out of time: the stricter of
// the duration budget and the exam deadline.
func ExpiresAt(a *model.Attempt, e *model.Exam) time.Time {
	end := a.StartedAt.Add(e.Duration())
	if e.Deadline != nil && e.Deadline.Before(end) {
		end = *e.Deadline
	}
	return end
}

// IsExpired reports whether an attempt's time is up at now. Once true it
// stays true for every later now.
func IsExpired(a *model.Attempt, e *model.Exam, now time.Time) bool {
	return !now.Before(ExpiresAt(a, e))
}

// Remaining returns the time left on an attempt, never negative.
func Remaining(a *model.Attempt, e *model.Exam, now time.Time) time.Duration {
	d := ExpiresAt(a, e).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Scanned   int `json:"scanned"`
	Finalized int `json:"finalized"`
	Failed    int `json:"failed"`
}

// Scheduler finalizes in-progress attempts whose time budget has elapsed.
type Scheduler struct {
	store    repository.Store
	attempts *AttemptService
	log      zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(store repository.Store, attempts *AttemptService, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		attempts: attempts,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// SweepExpiredAttempts finalizes every expired in-progress attempt as a
// timeout using the answers recorded so far. Failures on single attempts do
// not stop the pass; they are joined into the returned error.
func (s *Scheduler) SweepExpiredAttempts(ctx context.Context, now time.Time) (SweepResult, error) {
	start := time.Now()
	now = clock.Normalize(now)

	var res SweepResult
	inProgress, err := s.store.ListInProgressAttempts(ctx)
	if err != nil {
		observability.SweepRuns().WithLabelValues("error").Inc()
		return res, storeErr("list in-progress attempts", err)
	}

	exams := make(map[uuid.UUID]*model.Exam)
	var errs []error
	for i := range inProgress {
		a := &inProgress[i]
		res.Scanned++

		exam, ok := exams[a.ExamID]
		if !ok {
			exam, err = s.store.GetExam(ctx, a.ExamID)
			if errors.Is(err, repository.ErrNotFound) {
				continue // deleted mid-sweep
			}
			if err != nil {
				res.Failed++
				errs = append(errs, storeErr("get exam", err))
				continue
			}
			exams[a.ExamID] = exam
		}

		if !IsExpired(a, exam, now) {
			continue
		}

		if _, err := s.attempts.FinalizeAttempt(ctx, a.StudentID, a.ExamID, nil, now, model.AttemptStatusTimeout); err != nil {
			if errors.Is(err, ErrAttemptNotFound) {
				continue
			}
			res.Failed++
			errs = append(errs, fmt.Errorf("finalize student %d exam %s: %w", a.StudentID, a.ExamID, err))
			s.log.Error().Err(err).
				Int("student_id", a.StudentID).
				Str("exam_id", a.ExamID.String()).
				Msg("Failed to finalize expired attempt")
			continue
		}
		res.Finalized++
	}

	outcome := "ok"
	if len(errs) > 0 {
		outcome = "partial"
	}
	observability.SweepRuns().WithLabelValues(outcome).Inc()
	observability.SweepDuration().Observe(time.Since(start).Seconds())

	if res.Finalized > 0 || res.Failed > 0 {
		s.log.Info().
			Int("scanned", res.Scanned).
			Int("finalized", res.Finalized).
			Int("failed", res.Failed).
			Msg("Sweep finished")
	}

	return res, errors.Join(errs...)
}
