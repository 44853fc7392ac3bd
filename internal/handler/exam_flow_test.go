package handler_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/stretchr/testify/require"
)

func TestExamLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t)
	a.store.Enroll(courseID, studentID)
	a.store.Enroll(courseID, 8)
	exam, questions := a.publishedExam(60, nil)
	require.True(t, exam.Published)
	require.Len(t, questions, 2)
	mc, ident := questions[0], questions[1]

	student := a.student()
	instructor := a.instructor()

	// Lobby lists the exam without an attempt.
	code, env := a.do(http.MethodGet, fmt.Sprintf("/api/v1/student/courses/%d/exams", courseID), student, nil)
	require.Equal(t, http.StatusOK, code)
	lobby := decode[struct{ Exams []model.LobbyExam }](t, env).Exams
	require.Len(t, lobby, 1)
	require.Nil(t, lobby[0].AttemptStatus)

	code, env = a.do(http.MethodPost, studentPath(exam, "start"), student, nil)
	require.Equal(t, http.StatusCreated, code)
	attempt := decode[struct{ Attempt model.Attempt }](t, env).Attempt
	require.Equal(t, model.AttemptStatusInProgress, attempt.Status)
	require.True(t, attempt.StartedAt.Equal(t0))

	// The paper never carries answer keys.
	code, env = a.do(http.MethodGet, studentPath(exam, "paper"), student, nil)
	require.Equal(t, http.StatusOK, code)
	require.NotContains(t, string(env.Data), "correct_answer")
	require.NotContains(t, string(env.Data), "correct_option_index")
	paper := decode[struct{ Paper model.ExamPaper }](t, env).Paper
	require.Len(t, paper.Questions, 2)
	require.Equal(t, []string{"3", "4", "5"}, paper.Questions[0].Options)

	a.clock.Advance(10 * time.Minute)
	code, env = a.do(http.MethodPut, studentPath(exam, "answers/"+mc.ID.String()), student, map[string]string{"answer_text": "1"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = a.do(http.MethodGet, studentPath(exam, "state"), student, nil)
	require.Equal(t, http.StatusOK, code)
	state := decode[struct{ State model.AttemptState }](t, env).State
	require.Equal(t, "1", state.RecordedAnswers[mc.ID.String()])
	require.InDelta(t, float64(50*60), state.RemainingSeconds, 0.001)
	require.True(t, state.ExpiresAt.Equal(t0.Add(time.Hour)))

	// Results stay hidden until submission.
	code, env = a.do(http.MethodGet, studentPath(exam, "result"), student, nil)
	require.Equal(t, http.StatusConflict, code)
	requireCode(t, env, response.ErrAttemptInProgress)

	code, env = a.do(http.MethodPost, studentPath(exam, "submit"), student, map[string]interface{}{
		"answers": map[string]string{ident.ID.String(): "  paris "},
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	submitted := decode[struct {
		Report  model.Attempt
		Percent float64
	}](t, env)
	require.Equal(t, model.AttemptStatusCompleted, submitted.Report.Status)
	require.Equal(t, 5, submitted.Report.TotalScore)
	require.Equal(t, 5, submitted.Report.MaxScore)
	require.InDelta(t, 100.0, submitted.Percent, 0.001)

	// A second submit returns the stored report unchanged.
	code, env = a.do(http.MethodPost, studentPath(exam, "submit"), student, nil)
	require.Equal(t, http.StatusOK, code)
	again := decode[struct{ Report model.Attempt }](t, env).Report
	require.Equal(t, submitted.Report, again)

	code, env = a.do(http.MethodGet, studentPath(exam, "result"), student, nil)
	require.Equal(t, http.StatusOK, code)
	result := decode[struct{ Result model.AttemptResult }](t, env).Result
	require.Len(t, result.Questions, 2)
	require.Equal(t, "4", result.Questions[0].StudentAnswer)
	require.Equal(t, "4", result.Questions[0].CorrectAnswer)
	require.True(t, result.Questions[1].IsCorrect)

	code, env = a.do(http.MethodGet, examPath(exam, "statistics"), instructor, nil)
	require.Equal(t, http.StatusOK, code)
	stats := decode[struct{ Statistics model.ExamStatistics }](t, env).Statistics
	require.InDelta(t, 100.0, stats.AverageScorePercent, 0.001)
	require.Equal(t, 1, stats.AttemptedCount)
	require.Equal(t, 2, stats.EnrolledCount)

	code, env = a.do(http.MethodGet, examPath(exam, "reports"), instructor, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decode[struct{ Reports []model.Attempt }](t, env).Reports, 1)

	code, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/instructor/courses/%d/report", courseID), instructor, nil)
	require.Equal(t, http.StatusOK, code)
	students := decode[struct{ Students []model.StudentReport }](t, env).Students
	require.Len(t, students, 2)

	code, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/student/courses/%d/report", courseID), student, nil)
	require.Equal(t, http.StatusOK, code)
	own := decode[struct{ Report model.StudentReport }](t, env).Report
	require.Equal(t, 1, own.ExamsTaken)
	require.Equal(t, 5, own.TotalScore)

	// Attempts lock the exam.
	code, env = a.do(http.MethodPost, examPath(exam, "unpublish"), instructor, nil)
	require.Equal(t, http.StatusConflict, code)
	requireCode(t, env, response.ErrCannotUnpublish)

	code, env = a.do(http.MethodPut, examPath(exam, "questions"), instructor, map[string]interface{}{"questions": sampleQuestions()})
	require.Equal(t, http.StatusConflict, code)
	requireCode(t, env, response.ErrExamLocked)
}

func TestStartTwiceFails(t *testing.T) {
	a := newAPI(t)
	exam, _ := a.publishedExam(30, nil)

	code, _ := a.do(http.MethodPost, studentPath(exam, "start"), a.student(), nil)
	require.Equal(t, http.StatusCreated, code)

	code, env := a.do(http.MethodPost, studentPath(exam, "start"), a.student(), nil)
	require.Equal(t, http.StatusConflict, code)
	requireCode(t, env, response.ErrAlreadyAttempted)
}

func TestStartUnpublishedExam(t *testing.T) {
	a := newAPI(t)
	exam, _ := a.publishedExam(30, nil)

	code, _ := a.do(http.MethodPost, examPath(exam, "unpublish"), a.instructor(), nil)
	require.Equal(t, http.StatusOK, code)

	code, env := a.do(http.MethodPost, studentPath(exam, "start"), a.student(), nil)
	require.Equal(t, http.StatusForbidden, code)
	requireCode(t, env, response.ErrExamNotPublished)
}

func TestLateSubmitReturnsTimeoutReport(t *testing.T) {
	a := newAPI(t)
	exam, questions := a.publishedExam(30, nil)
	student := a.student()

	code, _ := a.do(http.MethodPost, studentPath(exam, "start"), student, nil)
	require.Equal(t, http.StatusCreated, code)
	code, _ = a.do(http.MethodPut, studentPath(exam, "answers/"+questions[0].ID.String()), student, map[string]string{"answer_text": "1"})
	require.Equal(t, http.StatusOK, code)

	a.clock.Advance(31 * time.Minute)
	code, env := a.do(http.MethodPost, studentPath(exam, "submit"), student, map[string]interface{}{
		"answers": map[string]string{questions[1].ID.String(): "Paris"},
	})
	require.Equal(t, http.StatusForbidden, code)
	requireCode(t, env, response.ErrDeadlinePassed)

	// Only the answer recorded in time counts.
	report := decode[struct{ Report model.Attempt }](t, env).Report
	require.Equal(t, model.AttemptStatusTimeout, report.Status)
	require.Equal(t, 2, report.TotalScore)
	require.Equal(t, 5, report.MaxScore)

	code, env = a.do(http.MethodPut, studentPath(exam, "answers/"+questions[1].ID.String()), student, map[string]string{"answer_text": "Paris"})
	require.Equal(t, http.StatusConflict, code)
	requireCode(t, env, response.ErrAttemptClosed)
}

func TestDeadlineBlocksStart(t *testing.T) {
	a := newAPI(t)
	deadline := t0.Add(time.Hour)
	exam, _ := a.publishedExam(30, &deadline)

	a.clock.Set(deadline)
	code, env := a.do(http.MethodPost, studentPath(exam, "start"), a.student(), nil)
	require.Equal(t, http.StatusForbidden, code)
	requireCode(t, env, response.ErrDeadlinePassed)
}

func TestSaveAnswerUnknownQuestion(t *testing.T) {
	a := newAPI(t)
	exam, _ := a.publishedExam(30, nil)
	student := a.student()

	code, _ := a.do(http.MethodPost, studentPath(exam, "start"), student, nil)
	require.Equal(t, http.StatusCreated, code)

	code, env := a.do(http.MethodPut, studentPath(exam, "answers/"+exam.ID.String()), student, map[string]string{"answer_text": "x"})
	require.Equal(t, http.StatusBadRequest, code)
	requireCode(t, env, response.ErrUnknownQuestion)
}

func TestStateWithoutAttempt(t *testing.T) {
	a := newAPI(t)
	exam, _ := a.publishedExam(30, nil)

	code, env := a.do(http.MethodGet, studentPath(exam, "state"), a.student(), nil)
	require.Equal(t, http.StatusNotFound, code)
	requireCode(t, env, response.ErrAttemptNotFound)
}

func TestSubmitRejectsNonUUIDAnswerKeys(t *testing.T) {
	a := newAPI(t)
	exam, _ := a.publishedExam(30, nil)
	student := a.student()

	code, _ := a.do(http.MethodPost, studentPath(exam, "start"), student, nil)
	require.Equal(t, http.StatusCreated, code)

	code, env := a.do(http.MethodPost, studentPath(exam, "submit"), student, map[string]interface{}{
		"answers": map[string]string{"q1": "Paris"},
	})
	require.Equal(t, http.StatusBadRequest, code)
	requireCode(t, env, response.ErrValidation)
	require.Contains(t, env.Error.Fields, "answers")
}

func TestSweepEndpointFinalizesExpired(t *testing.T) {
	a := newAPI(t)
	exam, _ := a.publishedExam(30, nil)
	code, _ := a.do(http.MethodPost, studentPath(exam, "start"), a.student(), nil)
	require.Equal(t, http.StatusCreated, code)

	a.clock.Advance(30 * time.Minute)
	code, env := a.do(http.MethodPost, "/api/v1/instructor/sweep", a.instructor(), nil)
	require.Equal(t, http.StatusOK, code)
	body := decode[struct {
		Skipped bool
		Result  service.SweepResult
	}](t, env)
	require.False(t, body.Skipped)
	require.Equal(t, service.SweepResult{Scanned: 1, Finalized: 1}, body.Result)

	code, env = a.do(http.MethodGet, studentPath(exam, "result"), a.student(), nil)
	require.Equal(t, http.StatusOK, code)
	result := decode[struct{ Result model.AttemptResult }](t, env).Result
	require.Equal(t, model.AttemptStatusTimeout, result.Report.Status)
	require.Empty(t, result.Questions)
}

func TestInstructorExamManagement(t *testing.T) {
	a := newAPI(t)
	tok := a.instructor()

	code, env := a.do(http.MethodPost, "/api/v1/instructor/exams", tok, map[string]interface{}{
		"title":            "   ",
		"course_id":        courseID,
		"duration_minutes": 30,
	})
	require.Equal(t, http.StatusBadRequest, code)
	requireCode(t, env, response.ErrValidation)
	require.Contains(t, env.Error.Fields, "title")

	code, env = a.do(http.MethodPost, "/api/v1/instructor/exams", tok, map[string]interface{}{
		"title":            "Quiz 1",
		"course_id":        courseID,
		"duration_minutes": 30,
	})
	require.Equal(t, http.StatusCreated, code)
	exam := decode[struct{ Exam model.Exam }](t, env).Exam
	require.False(t, exam.Published)
	require.Equal(t, instructorID, exam.InstructorID)
	path := strings.TrimSuffix(examPath(exam, ""), "/")

	code, env = a.do(http.MethodPut, path, tok, map[string]interface{}{
		"title":            "Quiz 1 (retake)",
		"duration_minutes": 45,
	})
	require.Equal(t, http.StatusOK, code, env.Error)
	updated := decode[struct{ Exam model.Exam }](t, env).Exam
	require.Equal(t, "Quiz 1 (retake)", updated.Title)
	require.Equal(t, 45, updated.DurationMinutes)

	// A multiple choice question with an identification key is rejected.
	bad := []map[string]interface{}{{
		"question_text":  "Pick one",
		"question_type":  "MULTIPLE_CHOICE",
		"points":         1,
		"correct_answer": "A",
	}}
	code, env = a.do(http.MethodPut, examPath(exam, "questions"), tok, map[string]interface{}{"questions": bad})
	require.Equal(t, http.StatusBadRequest, code)
	requireCode(t, env, response.ErrInvalidQuestion)
	require.NotEmpty(t, env.Error.Fields["detail"])

	code, env = a.do(http.MethodGet, fmt.Sprintf("/api/v1/instructor/courses/%d/exams", courseID), tok, nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decode[struct{ Exams []model.Exam }](t, env).Exams, 1)

	// Other instructors cannot touch it.
	other := a.token(otherTeacher, model.RoleInstructor)
	code, env = a.do(http.MethodGet, path, other, nil)
	require.Equal(t, http.StatusForbidden, code)
	requireCode(t, env, response.ErrNotExamOwner)

	code, env = a.do(http.MethodPost, examPath(exam, "publish"), other, nil)
	require.Equal(t, http.StatusForbidden, code)
	requireCode(t, env, response.ErrNotExamOwner)

	code, _ = a.do(http.MethodDelete, path, tok, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = a.do(http.MethodGet, path, tok, nil)
	require.Equal(t, http.StatusNotFound, code)
	requireCode(t, env, response.ErrExamNotFound)
}

func TestAuthBoundaries(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(http.MethodGet, "/api/v1/instructor/courses/10/exams", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	requireCode(t, env, response.ErrTokenRequired)

	code, env = a.do(http.MethodGet, "/api/v1/instructor/courses/10/exams", a.student(), nil)
	require.Equal(t, http.StatusForbidden, code)
	requireCode(t, env, response.ErrInstructorAccessOnly)

	code, env = a.do(http.MethodGet, "/api/v1/student/courses/10/exams", a.instructor(), nil)
	require.Equal(t, http.StatusForbidden, code)
	requireCode(t, env, response.ErrStudentAccessOnly)

	code, env = a.do(http.MethodPost, "/api/v1/student/exams/not-a-uuid/start", a.student(), nil)
	require.Equal(t, http.StatusBadRequest, code)
	requireCode(t, env, response.ErrInvalidID)

	code, env = a.do(http.MethodGet, "/api/v1/student/courses/zero/exams", a.student(), nil)
	require.Equal(t, http.StatusBadRequest, code)
	requireCode(t, env, response.ErrInvalidID)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	code, env := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", decode[map[string]string](t, env)["status"])
}
