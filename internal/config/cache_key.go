package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptExpiresKey returns the cache key holding an in-progress attempt's expiry time
func (r *CacheKeyStruct) AttemptExpiresKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:expires_at", studentID, examID)
}

// AttemptEventsChannel returns the Redis PubSub channel for an exam's attempt events
func (r *CacheKeyStruct) AttemptEventsChannel(examID string) string {
	return fmt.Sprintf("exam:%s:attempts", examID)
}

// AttemptEventsPattern matches the attempt event channels of every exam
func (r *CacheKeyStruct) AttemptEventsPattern() string {
	return "exam:*:attempts"
}

var CacheKey = NewCacheKeyStruct()
