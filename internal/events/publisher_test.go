package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestPublisherSendsFinalizedAttempt(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	examID := uuid.New()
	sub := rdb.Subscribe(ctx, config.CacheKey.AttemptEventsChannel(examID.String()))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	submitted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &model.Attempt{StudentID: 9, ExamID: examID, Status: model.AttemptStatusCompleted,
		StartedAt: submitted.Add(-time.Minute), SubmittedAt: &submitted, TotalScore: 4, MaxScore: 5}
	require.NoError(t, NewPublisher(rdb).AttemptFinalized(ctx, a))

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		require.Equal(t, TypeAttemptFinalized, ev.Type)
		require.Equal(t, 9, ev.Attempt.StudentID)
		require.Equal(t, 4, ev.Attempt.TotalScore)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}
