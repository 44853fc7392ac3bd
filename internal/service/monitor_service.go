package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/repository"
)

// StudentProgress is one student's row in the live exam monitor.
type StudentProgress struct {
	StudentID     int                 `json:"student_id"`
	Status        model.AttemptStatus `json:"status"`
	StartedAt     time.Time           `json:"started_at"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
	AnsweredCount int                 `json:"answered_count"`
	TotalScore    int                 `json:"total_score"`
	MaxScore      int                 `json:"max_score"`
}

// MonitorSnapshot is the state of every attempt of an exam at one moment.
type MonitorSnapshot struct {
	ExamID          uuid.UUID         `json:"exam_id"`
	TotalStarted    int               `json:"total_started"`
	TotalInProgress int               `json:"total_in_progress"`
	TotalFinalized  int               `json:"total_finalized"`
	Students        []StudentProgress `json:"students"`
}

// MonitorService orchestrates live exam monitoring.
type MonitorService struct {
	store repository.Store
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(store repository.Store) *MonitorService {
	return &MonitorService{store: store}
}

// Snapshot returns attempts and answered counts of an exam. The two reads
// run concurrently.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	var (
		attempts    []model.Attempt
		counts      map[int]int
		attemptsErr error
		countsErr   error
		wg          sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		attempts, attemptsErr = s.store.ListAttemptsByExam(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		counts, countsErr = s.store.CountAnswersByStudent(ctx, examID)
	}()
	wg.Wait()

	if attemptsErr != nil {
		return nil, storeErr("list attempts", attemptsErr)
	}
	if countsErr != nil {
		return nil, storeErr("count answers", countsErr)
	}

	snap := &MonitorSnapshot{
		ExamID:   examID,
		Students: make([]StudentProgress, 0, len(attempts)),
	}
	for _, a := range attempts {
		snap.TotalStarted++
		if a.Status.Terminal() {
			snap.TotalFinalized++
		} else {
			snap.TotalInProgress++
		}
		snap.Students = append(snap.Students, StudentProgress{
			StudentID:     a.StudentID,
			Status:        a.Status,
			StartedAt:     a.StartedAt,
			SubmittedAt:   a.SubmittedAt,
			AnsweredCount: counts[a.StudentID],
			TotalScore:    a.TotalScore,
			MaxScore:      a.MaxScore,
		})
	}
	return snap, nil
}
