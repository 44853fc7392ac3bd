package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
	block chan struct{}
}

func (s *countingSweeper) SweepExpiredAttempts(_ context.Context, now time.Time) (service.SweepResult, error) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, now)
	return service.SweepResult{}, s.err
}

func (s *countingSweeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var start = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func TestRunOnceWithoutRedis(t *testing.T) {
	sw := &countingSweeper{}
	w := NewSweepWorker(sw, nil, clock.NewFake(start), time.Second, time.Second, zerolog.Nop())

	ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, []time.Time{start}, sw.calls)
}

func TestRunOnceReleasesLease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sw := &countingSweeper{}
	w := NewSweepWorker(sw, rdb, clock.NewFake(start), time.Second, 10*time.Second, zerolog.Nop())

	for i := 0; i < 3; i++ {
		ran, err := w.RunOnce(context.Background())
		require.NoError(t, err)
		require.True(t, ran)
	}
	require.Equal(t, 3, sw.count())
	require.False(t, mr.Exists(config.WorkerKey.SweepLease))
}

func TestRunOnceSkipsWhileLeaseHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	require.NoError(t, mr.Set(config.WorkerKey.SweepLease, "other-replica"))
	mr.SetTTL(config.WorkerKey.SweepLease, 10*time.Second)

	sw := &countingSweeper{}
	w := NewSweepWorker(sw, rdb, clock.NewFake(start), time.Second, 10*time.Second, zerolog.Nop())

	ran, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.False(t, ran)
	require.Zero(t, sw.count())

	got, err := mr.Get(config.WorkerKey.SweepLease)
	require.NoError(t, err)
	require.Equal(t, "other-replica", got, "foreign lease is left alone")

	mr.FastForward(11 * time.Second)
	ran, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, ran)
}

func TestConcurrentReplicasShareLease(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sw := &countingSweeper{block: make(chan struct{})}
	a := NewSweepWorker(sw, rdb, clock.NewFake(start), time.Second, 10*time.Second, zerolog.Nop())
	b := NewSweepWorker(sw, rdb, clock.NewFake(start), time.Second, 10*time.Second, zerolog.Nop())

	done := make(chan bool, 1)
	go func() {
		ran, _ := a.RunOnce(context.Background())
		done <- ran
	}()

	require.Eventually(t, func() bool { return mr.Exists(config.WorkerKey.SweepLease) }, time.Second, 5*time.Millisecond)
	ran, err := b.RunOnce(context.Background())
	require.NoError(t, err)
	require.False(t, ran)

	close(sw.block)
	require.True(t, <-done)
	require.Equal(t, 1, sw.count())
}

func TestRunOnceReturnsSweepError(t *testing.T) {
	boom := errors.New("boom")
	w := NewSweepWorker(&countingSweeper{err: boom}, nil, clock.NewFake(start), time.Second, time.Second, zerolog.Nop())

	ran, err := w.RunOnce(context.Background())
	require.True(t, ran)
	require.ErrorIs(t, err, boom)
}

func TestStartStopsOnCancel(t *testing.T) {
	sw := &countingSweeper{}
	w := NewSweepWorker(sw, nil, clock.NewFake(start), 10*time.Millisecond, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return sw.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type fixedSweeper struct{ res service.SweepResult }

func (s fixedSweeper) SweepExpiredAttempts(context.Context, time.Time) (service.SweepResult, error) {
	return s.res, nil
}

func TestSweepReportsResult(t *testing.T) {
	want := service.SweepResult{Scanned: 3, Finalized: 2, Failed: 1}
	w := NewSweepWorker(fixedSweeper{res: want}, nil, clock.NewFake(start), time.Second, time.Second, zerolog.Nop())

	got, ran, err := w.Sweep(context.Background())
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, want, got)
}
