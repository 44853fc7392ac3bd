// Package events publishes attempt lifecycle events on Redis Pub/Sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/panotify/exam-backend/internal/config"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// TypeAttemptFinalized tags an Event carrying a terminal attempt.
const TypeAttemptFinalized = "attempt_finalized"

// Event is the JSON payload sent on an exam's attempt channel.
type Event struct {
	Type    string        `json:"type"`
	Attempt model.Attempt `json:"attempt"`
}

// Publisher sends attempt events to the exam's channel.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher.
func NewPublisher(rdb *redis.Client) *Publisher {
	return &Publisher{rdb: rdb}
}

// AttemptFinalized publishes a finalized attempt.
func (p *Publisher) AttemptFinalized(ctx context.Context, a *model.Attempt) error {
	payload, err := json.Marshal(Event{Type: TypeAttemptFinalized, Attempt: *a})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channel := config.CacheKey.AttemptEventsChannel(a.ExamID.String())
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
