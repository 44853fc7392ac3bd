package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/repository"
	"github.com/panotify/exam-backend/internal/repository/memstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExpiredIsMonotonic(t *testing.T) {
	deadline := t0.Add(45 * time.Minute)
	cases := []struct {
		name string
		exam model.Exam
	}{
		{"duration only", model.Exam{DurationMinutes: 30}},
		{"deadline binds", model.Exam{DurationMinutes: 60, Deadline: &deadline}},
		{"duration binds", model.Exam{DurationMinutes: 10, Deadline: &deadline}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.Attempt{StartedAt: t0.Add(5 * time.Minute)}
			expired := false
			for step := 0; step <= 240; step++ {
				now := t0.Add(time.Duration(step) * 30 * time.Second)
				got := IsExpired(a, &tc.exam, now)
				if expired {
					require.True(t, got, "expiry reverted at %s", now)
				}
				expired = got
			}
			require.True(t, expired)
		})
	}
}

func TestExpiresAtPicksStricterBudget(t *testing.T) {
	a := &model.Attempt{StartedAt: t0}
	late := t0.Add(2 * time.Hour)
	early := t0.Add(10 * time.Minute)

	require.Equal(t, t0.Add(30*time.Minute), ExpiresAt(a, &model.Exam{DurationMinutes: 30}))
	require.Equal(t, t0.Add(30*time.Minute), ExpiresAt(a, &model.Exam{DurationMinutes: 30, Deadline: &late}))
	require.Equal(t, early, ExpiresAt(a, &model.Exam{DurationMinutes: 30, Deadline: &early}))

	require.False(t, IsExpired(a, &model.Exam{DurationMinutes: 30}, t0.Add(30*time.Minute-time.Microsecond)))
	require.True(t, IsExpired(a, &model.Exam{DurationMinutes: 30}, t0.Add(30*time.Minute)))
	require.Zero(t, Remaining(a, &model.Exam{DurationMinutes: 30}, t0.Add(time.Hour)))
}

func TestSweepFinalizesAfterDuration(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 30, nil)
	ctx := context.Background()

	_, err := f.attempts.StartAttempt(ctx, 42, exam.ID, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.attempts.SaveAnswer(ctx, 42, exam.ID, questions[1].ID, "paris", f.clock.Now()))

	f.clock.Advance(29 * time.Minute)
	res, err := f.scheduler.SweepExpiredAttempts(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, SweepResult{Scanned: 1}, res)

	f.clock.Advance(2 * time.Minute)
	res, err = f.scheduler.SweepExpiredAttempts(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, SweepResult{Scanned: 1, Finalized: 1}, res)

	a, err := f.attempts.GetAttempt(ctx, 42, exam.ID)
	require.NoError(t, err)
	require.Equal(t, model.AttemptStatusTimeout, a.Status)
	require.Equal(t, 3, a.TotalScore)
	require.Equal(t, 5, a.MaxScore)
	require.Equal(t, t0.Add(31*time.Minute), *a.SubmittedAt)

	res, err = f.scheduler.SweepExpiredAttempts(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, SweepResult{}, res)
}

func TestSweepHonoursDeadlineBeforeDuration(t *testing.T) {
	f := newFixture(t)
	deadline := t0.Add(10 * time.Minute)
	exam, _ := f.publishedExam(t, 60, &deadline)
	ctx := context.Background()

	_, err := f.attempts.StartAttempt(ctx, 42, exam.ID, f.clock.Now())
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)
	res, err := f.scheduler.SweepExpiredAttempts(ctx, f.clock.Now())
	require.NoError(t, err)
	require.Equal(t, 1, res.Finalized)

	a, err := f.attempts.GetAttempt(ctx, 42, exam.ID)
	require.NoError(t, err)
	require.Equal(t, model.AttemptStatusTimeout, a.Status)
	require.Zero(t, a.TotalScore)
}

func TestSweepRacingSubmitFinalizesOnce(t *testing.T) {
	f := newFixture(t)
	exam, questions := f.publishedExam(t, 30, nil)
	ctx := context.Background()

	for student := 1; student <= 20; student++ {
		_, err := f.attempts.StartAttempt(ctx, student, exam.ID, f.clock.Now())
		require.NoError(t, err)
	}
	f.clock.Advance(30 * time.Minute)
	now := f.clock.Now()

	var wg sync.WaitGroup
	reports := make([]*model.Attempt, 21)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.scheduler.SweepExpiredAttempts(ctx, now)
		assert.NoError(t, err)
	}()
	for student := 1; student <= 20; student++ {
		wg.Add(1)
		go func(student int) {
			defer wg.Done()
			a, err := f.attempts.FinalizeAttempt(ctx, student, exam.ID,
				map[uuid.UUID]string{questions[0].ID: "1"}, now, model.AttemptStatusCompleted)
			assert.NoError(t, err)
			reports[student] = a
		}(student)
	}
	wg.Wait()

	for student := 1; student <= 20; student++ {
		stored, err := f.attempts.GetAttempt(ctx, student, exam.ID)
		require.NoError(t, err)
		require.True(t, stored.Status.Terminal())
		require.Equal(t, stored, reports[student])
	}
}

type failingStore struct {
	*memstore.Store
	failList bool
	failExam uuid.UUID
}

var errBoom = errors.New("connection reset")

func (s *failingStore) ListInProgressAttempts(ctx context.Context) ([]model.Attempt, error) {
	if s.failList {
		return nil, errBoom
	}
	return s.Store.ListInProgressAttempts(ctx)
}

func (s *failingStore) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	if id == s.failExam {
		return nil, errBoom
	}
	return s.Store.GetExam(ctx, id)
}

var _ repository.Store = (*failingStore)(nil)

func TestSweepPropagatesStoreFailures(t *testing.T) {
	f := newFixture(t)
	exam, _ := f.publishedExam(t, 30, nil)
	ctx := context.Background()
	_, err := f.attempts.StartAttempt(ctx, 42, exam.ID, f.clock.Now())
	require.NoError(t, err)

	fs := &failingStore{Store: f.store, failList: true}
	log := zerolog.Nop()
	sched := NewScheduler(fs, NewAttemptService(fs, f.attempts.engine, nil, nil, log), log)

	_, err = sched.SweepExpiredAttempts(ctx, f.clock.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, errBoom)

	fs.failList = false
	fs.failExam = exam.ID
	res, err := sched.SweepExpiredAttempts(ctx, f.clock.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.Equal(t, SweepResult{Scanned: 1, Failed: 1}, res)
}
