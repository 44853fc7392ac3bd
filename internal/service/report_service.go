package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ReportService computes read-side roll-ups over persisted attempts. It
// never mutates state.
type ReportService struct {
	store repository.Store
	log   zerolog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(store repository.Store, log zerolog.Logger) *ReportService {
	return &ReportService{
		store: store,
		log:   log.With().Str("component", "report_service").Logger(),
	}
}

// AverageScorePercent is the mean of total/max*100 over the exam's
// completed and timed-out attempts, or 0 when there are none.
func (s *ReportService) AverageScorePercent(ctx context.Context, examID uuid.UUID) (float64, error) {
	attempts, err := s.store.ListAttemptsByExam(ctx, examID)
	if err != nil {
		return 0, storeErr("list attempts", err)
	}

	var (
		sum float64
		n   int
	)
	for i := range attempts {
		if !attempts[i].Status.Terminal() {
			continue
		}
		sum += attempts[i].Percent()
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

// AttemptedCount counts the attempts of an exam, in progress included.
func (s *ReportService) AttemptedCount(ctx context.Context, examID uuid.UUID) (int, error) {
	n, err := s.store.CountAttempts(ctx, examID)
	if err != nil {
		return 0, storeErr("count attempts", err)
	}
	return n, nil
}

// EnrolledCount counts the students enrolled in a course.
func (s *ReportService) EnrolledCount(ctx context.Context, courseID int) (int, error) {
	n, err := s.store.CountEnrolled(ctx, courseID)
	if err != nil {
		return 0, storeErr("count enrolled", err)
	}
	return n, nil
}

// Statistics bundles the "X/Y attempted" figures with the average score.
func (s *ReportService) Statistics(ctx context.Context, exam *model.Exam) (*model.ExamStatistics, error) {
	avg, err := s.AverageScorePercent(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	attempted, err := s.AttemptedCount(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.EnrolledCount(ctx, exam.CourseID)
	if err != nil {
		return nil, err
	}
	return &model.ExamStatistics{
		ExamID:              exam.ID,
		AverageScorePercent: avg,
		AttemptedCount:      attempted,
		EnrolledCount:       enrolled,
	}, nil
}

// ExamReports lists every attempt of an exam, latest submission first.
func (s *ReportService) ExamReports(ctx context.Context, examID uuid.UUID) ([]model.Attempt, error) {
	attempts, err := s.store.ListAttemptsByExam(ctx, examID)
	if err != nil {
		return nil, storeErr("list attempts", err)
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}
	return attempts, nil
}

// AttemptResult returns a finalized attempt with its per-question review.
// Unanswered questions are left out of the review. The review is withheld
// while the attempt is in progress.
func (s *ReportService) AttemptResult(ctx context.Context, studentID int, examID uuid.UUID) (*model.AttemptResult, error) {
	a, err := s.store.GetAttempt(ctx, studentID, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, storeErr("get attempt", err)
	}
	if !a.Status.Terminal() {
		return nil, ErrAttemptInProgress
	}

	questions, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return nil, storeErr("list questions", err)
	}
	answers, err := s.store.ListAnswers(ctx, studentID, examID)
	if err != nil {
		return nil, storeErr("list answers", err)
	}
	byQuestion := make(map[uuid.UUID]model.Answer, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans
	}

	results := make([]model.QuestionResult, 0, len(answers))
	for i := range questions {
		q := &questions[i]
		ans, ok := byQuestion[q.ID]
		if !ok {
			continue
		}
		results = append(results, model.QuestionResult{
			QuestionID:     q.ID,
			QuestionNumber: i + 1,
			QuestionText:   q.Text,
			StudentAnswer:  studentAnswerText(q, ans.AnswerText),
			CorrectAnswer:  q.CorrectAnswerText(),
			IsCorrect:      ans.IsCorrect,
			Points:         q.Points,
		})
	}

	return &model.AttemptResult{
		Report:    *a,
		Percent:   a.Percent(),
		Questions: results,
	}, nil
}

// studentAnswerText renders a raw multiple choice index as its option text
// when it is in range, and returns anything else as typed.
func studentAnswerText(q *model.Question, raw string) string {
	if q.MultipleChoice == nil {
		return raw
	}
	given := strings.TrimSpace(raw)
	for i, opt := range q.MultipleChoice.Options {
		if given == strconv.Itoa(i) {
			return opt
		}
	}
	return raw
}

// StudentCourseReport aggregates a student's finalized attempts on the
// exams of a course.
func (s *ReportService) StudentCourseReport(ctx context.Context, studentID, courseID int) (*model.StudentReport, error) {
	exams, err := s.store.ListExamsByCourse(ctx, courseID, false)
	if err != nil {
		return nil, storeErr("list exams", err)
	}
	attempts, err := s.store.ListAttemptsByStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("list attempts", err)
	}
	return buildStudentReport(studentID, courseID, exams, attempts), nil
}

// CourseReport returns one student report per enrolled student.
func (s *ReportService) CourseReport(ctx context.Context, courseID int) ([]model.StudentReport, error) {
	students, err := s.store.ListEnrolledStudents(ctx, courseID)
	if err != nil {
		return nil, storeErr("list enrolled students", err)
	}
	exams, err := s.store.ListExamsByCourse(ctx, courseID, false)
	if err != nil {
		return nil, storeErr("list exams", err)
	}

	reports := make([]model.StudentReport, 0, len(students))
	for _, studentID := range students {
		attempts, err := s.store.ListAttemptsByStudent(ctx, studentID)
		if err != nil {
			return nil, storeErr("list attempts", err)
		}
		reports = append(reports, *buildStudentReport(studentID, courseID, exams, attempts))
	}
	return reports, nil
}

func buildStudentReport(studentID, courseID int, exams []model.Exam, attempts []model.Attempt) *model.StudentReport {
	byExam := make(map[uuid.UUID]*model.Attempt, len(attempts))
	for i := range attempts {
		byExam[attempts[i].ExamID] = &attempts[i]
	}

	report := &model.StudentReport{
		StudentID:   studentID,
		CourseID:    courseID,
		ExamResults: []model.ExamResult{},
	}
	var percentSum float64
	for i := range exams {
		a, ok := byExam[exams[i].ID]
		if !ok || !a.Status.Terminal() {
			continue
		}
		report.ExamsTaken++
		report.TotalScore += a.TotalScore
		report.MaxScore += a.MaxScore
		percentSum += a.Percent()
		report.ExamResults = append(report.ExamResults, model.ExamResult{
			ExamID:     exams[i].ID,
			ExamTitle:  exams[i].Title,
			Status:     a.Status,
			TotalScore: a.TotalScore,
			MaxScore:   a.MaxScore,
			Percent:    a.Percent(),
		})
	}
	if report.ExamsTaken > 0 {
		report.AveragePercentage = percentSum / float64(report.ExamsTaken)
	}
	return report
}

// Lobby lists the published exams of a course with the student's attempt
// overlaid.
func (s *ReportService) Lobby(ctx context.Context, studentID, courseID int) ([]model.LobbyExam, error) {
	exams, err := s.store.ListExamsByCourse(ctx, courseID, true)
	if err != nil {
		return nil, storeErr("list exams", err)
	}
	attempts, err := s.store.ListAttemptsByStudent(ctx, studentID)
	if err != nil {
		return nil, storeErr("list attempts", err)
	}
	byExam := make(map[uuid.UUID]*model.Attempt, len(attempts))
	for i := range attempts {
		byExam[attempts[i].ExamID] = &attempts[i]
	}

	lobby := make([]model.LobbyExam, 0, len(exams))
	for i := range exams {
		entry := model.LobbyExam{Exam: exams[i]}
		if a, ok := byExam[exams[i].ID]; ok {
			status := a.Status
			entry.AttemptStatus = &status
			if a.Status.Terminal() {
				total, maxScore := a.TotalScore, a.MaxScore
				entry.TotalScore = &total
				entry.MaxScore = &maxScore
			}
		}
		lobby = append(lobby, entry)
	}
	return lobby, nil
}
