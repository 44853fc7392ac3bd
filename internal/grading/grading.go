// Package grading scores raw student answers against exam answer keys.
package grading

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/model"
)

// Grade scores a single raw answer. Malformed input is graded as incorrect,
// never as an error.
func Grade(q *model.Question, raw string) (isCorrect bool, points int) {
	switch {
	case q.MultipleChoice != nil:
		isCorrect = gradeMultipleChoice(q.MultipleChoice, raw)
	case q.Identification != nil:
		isCorrect = gradeIdentification(q.Identification, raw)
	}
	if isCorrect {
		return true, q.Points
	}
	return false, 0
}

func gradeMultipleChoice(key *model.MultipleChoiceKey, raw string) bool {
	idx, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if idx < 0 || idx >= len(key.Options) {
		return false
	}
	return idx == key.CorrectOptionIndex
}

func gradeIdentification(key *model.IdentificationKey, raw string) bool {
	given := strings.TrimSpace(raw)
	if given == "" {
		return false
	}
	return strings.EqualFold(given, strings.TrimSpace(key.CorrectAnswer))
}

// QuestionScore is the graded outcome of one question.
type QuestionScore struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answered   bool      `json:"answered"`
	AnswerText string    `json:"answer_text"`
	IsCorrect  bool      `json:"is_correct"`
	Points     int       `json:"points"`
	MaxPoints  int       `json:"max_points"`
}

// Report is the graded outcome of a whole attempt. MaxScore always equals
// the sum of all question points of the exam.
type Report struct {
	ExamID     uuid.UUID       `json:"exam_id"`
	StudentID  int             `json:"student_id"`
	TotalScore int             `json:"total_score"`
	MaxScore   int             `json:"max_score"`
	Questions  []QuestionScore `json:"questions"`
}

// Score grades answers (question ID to raw text) against every question.
// Answers to questions not in the set are ignored; questions without an
// answer count toward MaxScore with zero points.
func Score(questions []model.Question, answers map[uuid.UUID]string) Report {
	r := Report{Questions: make([]QuestionScore, 0, len(questions))}
	for i := range questions {
		q := &questions[i]
		qs := QuestionScore{QuestionID: q.ID, MaxPoints: q.Points}
		if raw, ok := answers[q.ID]; ok {
			qs.Answered = true
			qs.AnswerText = raw
			qs.IsCorrect, qs.Points = Grade(q, raw)
		}
		r.MaxScore += q.Points
		r.TotalScore += qs.Points
		r.Questions = append(r.Questions, qs)
	}
	return r
}

// Answers converts the answered questions of a report into Answer rows.
func (r *Report) Answers() []model.Answer {
	out := make([]model.Answer, 0, len(r.Questions))
	for _, qs := range r.Questions {
		if !qs.Answered {
			continue
		}
		out = append(out, model.Answer{
			StudentID:  r.StudentID,
			QuestionID: qs.QuestionID,
			ExamID:     r.ExamID,
			AnswerText: qs.AnswerText,
			IsCorrect:  qs.IsCorrect,
		})
	}
	return out
}
