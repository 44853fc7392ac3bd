// Package memstore is an in-memory repository.Store used for local runs and
// tests. All state lives behind a single mutex, which gives every call the
// same atomicity the Postgres store gets from its transactions.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/repository"
)

type attemptKey struct {
	studentID int
	examID    uuid.UUID
}

type answerKey struct {
	studentID  int
	questionID uuid.UUID
}

// Store implements repository.Store in memory.
type Store struct {
	mu          sync.RWMutex
	exams       map[uuid.UUID]model.Exam
	questions   map[uuid.UUID][]model.Question
	attempts    map[attemptKey]model.Attempt
	answers     map[answerKey]model.Answer
	enrollments map[int]map[int]struct{}
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		exams:       make(map[uuid.UUID]model.Exam),
		questions:   make(map[uuid.UUID][]model.Question),
		attempts:    make(map[attemptKey]model.Attempt),
		answers:     make(map[answerKey]model.Answer),
		enrollments: make(map[int]map[int]struct{}),
	}
}

// Enroll records a student in a course.
func (s *Store) Enroll(courseID, studentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.enrollments[courseID]
	if !ok {
		set = make(map[int]struct{})
		s.enrollments[courseID] = set
	}
	set[studentID] = struct{}{}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyExam(e model.Exam) model.Exam {
	e.Deadline = copyTime(e.Deadline)
	return e
}

func copyQuestion(q model.Question) model.Question {
	if q.MultipleChoice != nil {
		mc := *q.MultipleChoice
		mc.Options = append([]string(nil), mc.Options...)
		q.MultipleChoice = &mc
	}
	if q.Identification != nil {
		id := *q.Identification
		q.Identification = &id
	}
	return q
}

func copyAttempt(a model.Attempt) model.Attempt {
	a.SubmittedAt = copyTime(a.SubmittedAt)
	return a
}

func (s *Store) hasAttempts(examID uuid.UUID) bool {
	for k := range s.attempts {
		if k.examID == examID {
			return true
		}
	}
	return false
}

// CreateExam inserts a new exam.
func (s *Store) CreateExam(_ context.Context, e *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[e.ID]; ok {
		return repository.ErrDuplicate
	}
	s.exams[e.ID] = copyExam(*e)
	return nil
}

// GetExam retrieves an exam by ID.
func (s *Store) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e = copyExam(e)
	return &e, nil
}

// ListExamsByCourse lists a course's exams, newest first.
func (s *Store) ListExamsByCourse(_ context.Context, courseID int, publishedOnly bool) ([]model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Exam
	for _, e := range s.exams {
		if e.CourseID != courseID || (publishedOnly && !e.Published) {
			continue
		}
		out = append(out, copyExam(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// UpdateExam writes title, duration and deadline.
func (s *Store) UpdateExam(_ context.Context, e *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.exams[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Published && s.hasAttempts(e.ID) {
		return repository.ErrHasAttempts
	}
	cur.Title = e.Title
	cur.DurationMinutes = e.DurationMinutes
	cur.Deadline = copyTime(e.Deadline)
	cur.UpdatedAt = e.UpdatedAt
	s.exams[e.ID] = cur
	return nil
}

// SetPublished flips the published flag.
func (s *Store) SetPublished(_ context.Context, id uuid.UUID, published bool, at time.Time) (*model.Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if cur.Published && !published && s.hasAttempts(id) {
		return nil, repository.ErrHasAttempts
	}
	if cur.Published != published {
		cur.Published = published
		cur.UpdatedAt = at
		s.exams[id] = cur
	}
	out := copyExam(cur)
	return &out, nil
}

// DeleteExam removes an exam with its questions, attempts and answers.
func (s *Store) DeleteExam(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.exams, id)
	delete(s.questions, id)
	for k := range s.attempts {
		if k.examID == id {
			delete(s.attempts, k)
		}
	}
	for k, a := range s.answers {
		if a.ExamID == id {
			delete(s.answers, k)
		}
	}
	return nil
}

// ListQuestions lists an exam's questions in order.
func (s *Store) ListQuestions(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qs := s.questions[examID]
	out := make([]model.Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, copyQuestion(q))
	}
	return out, nil
}

// ReplaceQuestions swaps an exam's question set.
func (s *Store) ReplaceQuestions(_ context.Context, examID uuid.UUID, questions []model.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.exams[examID]; !ok {
		return repository.ErrNotFound
	}
	if s.hasAttempts(examID) {
		return repository.ErrHasAttempts
	}
	for k, a := range s.answers {
		if a.ExamID == examID {
			delete(s.answers, k)
		}
	}
	qs := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		qs = append(qs, copyQuestion(q))
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].OrderNum < qs[j].OrderNum })
	s.questions[examID] = qs
	return nil
}

// CreateAttempt inserts an in-progress attempt.
func (s *Store) CreateAttempt(_ context.Context, a *model.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.exams[a.ExamID]
	if !ok {
		return repository.ErrNotFound
	}
	if !e.Published {
		return repository.ErrExamNotOpen
	}
	key := attemptKey{a.StudentID, a.ExamID}
	if _, ok := s.attempts[key]; ok {
		return repository.ErrDuplicate
	}
	s.attempts[key] = model.Attempt{
		StudentID: a.StudentID,
		ExamID:    a.ExamID,
		Status:    model.AttemptStatusInProgress,
		StartedAt: a.StartedAt,
	}
	return nil
}

// GetAttempt retrieves the attempt of a student for an exam.
func (s *Store) GetAttempt(_ context.Context, studentID int, examID uuid.UUID) (*model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[attemptKey{studentID, examID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a = copyAttempt(a)
	return &a, nil
}

func (s *Store) filterAttempts(keep func(model.Attempt) bool) []model.Attempt {
	var out []model.Attempt
	for _, a := range s.attempts {
		if keep(a) {
			out = append(out, copyAttempt(a))
		}
	}
	return out
}

// ListAttemptsByExam lists an exam's attempts, latest submission first.
func (s *Store) ListAttemptsByExam(_ context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filterAttempts(func(a model.Attempt) bool { return a.ExamID == examID })
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].SubmittedAt, out[j].SubmittedAt
		switch {
		case si == nil && sj == nil:
			return out[i].StudentID < out[j].StudentID
		case si == nil:
			return false
		case sj == nil:
			return true
		case !si.Equal(*sj):
			return si.After(*sj)
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

// ListAttemptsByStudent lists a student's attempts, latest start first.
func (s *Store) ListAttemptsByStudent(_ context.Context, studentID int) ([]model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filterAttempts(func(a model.Attempt) bool { return a.StudentID == studentID })
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

// ListInProgressAttempts lists every attempt still in progress, oldest first.
func (s *Store) ListInProgressAttempts(_ context.Context) ([]model.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.filterAttempts(func(a model.Attempt) bool { return a.Status == model.AttemptStatusInProgress })
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

// CountAttempts counts an exam's attempts.
func (s *Store) CountAttempts(_ context.Context, examID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.attempts {
		if k.examID == examID {
			n++
		}
	}
	return n, nil
}

// FinalizeAttempt moves an in-progress attempt to its terminal status and
// replaces the pair's answers with the graded ones.
func (s *Store) FinalizeAttempt(_ context.Context, a *model.Attempt, answers []model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{a.StudentID, a.ExamID}
	cur, ok := s.attempts[key]
	if !ok || cur.Status != model.AttemptStatusInProgress {
		return repository.ErrNotInProgress
	}
	cur.Status = a.Status
	cur.SubmittedAt = copyTime(a.SubmittedAt)
	cur.TotalScore = a.TotalScore
	cur.MaxScore = a.MaxScore
	s.attempts[key] = cur
	for k, ans := range s.answers {
		if k.studentID == a.StudentID && ans.ExamID == a.ExamID {
			delete(s.answers, k)
		}
	}
	for _, ans := range answers {
		s.answers[answerKey{ans.StudentID, ans.QuestionID}] = ans
	}
	return nil
}

// SaveAnswer upserts a raw answer while the attempt is in progress.
func (s *Store) SaveAnswer(_ context.Context, a *model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.attempts[attemptKey{a.StudentID, a.ExamID}]
	if !ok || cur.Status != model.AttemptStatusInProgress {
		return repository.ErrNotInProgress
	}
	ans := *a
	ans.IsCorrect = false
	s.answers[answerKey{a.StudentID, a.QuestionID}] = ans
	return nil
}

// ListAnswers lists a student's recorded answers for an exam.
func (s *Store) ListAnswers(_ context.Context, studentID int, examID uuid.UUID) ([]model.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Answer
	for k, a := range s.answers {
		if k.studentID == studentID && a.ExamID == examID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID.String() < out[j].QuestionID.String() })
	return out, nil
}

// CountEnrolled counts a course's enrolled students.
func (s *Store) CountEnrolled(_ context.Context, courseID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.enrollments[courseID]), nil
}

// ListEnrolledStudents lists a course's enrolled student IDs in ascending order.
func (s *Store) ListEnrolledStudents(_ context.Context, courseID int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.enrollments[courseID]))
	for id := range s.enrollments[courseID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// CountAnswersByStudent counts recorded answers per student for an exam.
func (s *Store) CountAnswersByStudent(_ context.Context, examID uuid.UUID) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int]int)
	for k, a := range s.answers {
		if a.ExamID == examID {
			counts[k.studentID]++
		}
	}
	return counts, nil
}
