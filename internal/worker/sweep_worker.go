package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/clock"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Sweeper finalizes expired attempts.
type Sweeper interface {
	SweepExpiredAttempts(ctx context.Context, now time.Time) (service.SweepResult, error)
}

// releaseLease deletes the lease only while it still holds our token.
var releaseLease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepWorker runs the expired-attempt sweep on a fixed interval. With a
// Redis client, replicas share a lease so one sweep runs per tick.
type SweepWorker struct {
	sweeper  Sweeper
	rdb      *redis.Client
	clock    clock.Clock
	interval time.Duration
	leaseTTL time.Duration
	token    string
	log      zerolog.Logger
}

// NewSweepWorker creates a new SweepWorker. rdb may be nil.
func NewSweepWorker(sweeper Sweeper, rdb *redis.Client, clk clock.Clock, interval, leaseTTL time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		sweeper:  sweeper,
		rdb:      rdb,
		clock:    clk,
		interval: interval,
		leaseTTL: leaseTTL,
		token:    uuid.NewString(),
		log:      log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("Sweep failed")
			}
		}
	}
}

// RunOnce performs one sweep if the lease is ours. ran is false when
// another replica holds the lease.
func (w *SweepWorker) RunOnce(ctx context.Context) (ran bool, err error) {
	_, ran, err = w.Sweep(ctx)
	return ran, err
}

// Sweep is RunOnce that also reports what the pass did. Manual sweeps go
// through here so they never overlap the periodic one.
func (w *SweepWorker) Sweep(ctx context.Context) (res service.SweepResult, ran bool, err error) {
	if w.rdb != nil {
		ok, err := w.rdb.SetNX(ctx, config.WorkerKey.SweepLease, w.token, w.leaseTTL).Result()
		if err != nil {
			return res, false, err
		}
		if !ok {
			w.log.Debug().Msg("Sweep lease held elsewhere, skipping")
			return res, false, nil
		}
		defer func() {
			if relErr := releaseLease.Run(context.Background(), w.rdb,
				[]string{config.WorkerKey.SweepLease}, w.token).Err(); relErr != nil && !errors.Is(relErr, redis.Nil) {
				w.log.Warn().Err(relErr).Msg("Failed to release sweep lease")
			}
		}()
	}

	res, err = w.sweeper.SweepExpiredAttempts(ctx, w.clock.Now())
	return res, true, err
}
