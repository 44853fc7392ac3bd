package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// QuestionType discriminates the answer-key shape of a question.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeIdentification QuestionType = "IDENTIFICATION"
)

// Question validation errors.
var (
	ErrQuestionKeyShape    = errors.New("question must carry exactly one answer key matching its type")
	ErrQuestionPoints      = errors.New("question points must be positive")
	ErrQuestionText        = errors.New("question text is required")
	ErrQuestionOptions     = errors.New("multiple choice question needs at least two non-empty options")
	ErrQuestionOptionIndex = errors.New("correct option index is out of range")
	ErrQuestionBlankAnswer = errors.New("identification answer must not be blank")
	ErrQuestionUnknownType = errors.New("unknown question type")
)

// MultipleChoiceKey is the answer key of a multiple choice question.
type MultipleChoiceKey struct {
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
}

// IdentificationKey is the answer key of a free-text question.
type IdentificationKey struct {
	CorrectAnswer string `json:"correct_answer"`
}

// Question belongs to exactly one exam. Exactly one of MultipleChoice and
// Identification is set, and it matches Type.
type Question struct {
	ID             uuid.UUID          `json:"id"`
	ExamID         uuid.UUID          `json:"exam_id"`
	Text           string             `json:"question_text"`
	Points         int                `json:"points"`
	OrderNum       int                `json:"order_num"`
	Type           QuestionType       `json:"question_type"`
	MultipleChoice *MultipleChoiceKey `json:"multiple_choice,omitempty"`
	Identification *IdentificationKey `json:"identification,omitempty"`
}

// Validate checks the answer-key invariant and basic field constraints.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrQuestionText
	}
	if q.Points <= 0 {
		return ErrQuestionPoints
	}

	switch q.Type {
	case QuestionTypeMultipleChoice:
		if q.MultipleChoice == nil || q.Identification != nil {
			return ErrQuestionKeyShape
		}
		if len(q.MultipleChoice.Options) < 2 {
			return ErrQuestionOptions
		}
		for _, opt := range q.MultipleChoice.Options {
			if strings.TrimSpace(opt) == "" {
				return ErrQuestionOptions
			}
		}
		idx := q.MultipleChoice.CorrectOptionIndex
		if idx < 0 || idx >= len(q.MultipleChoice.Options) {
			return ErrQuestionOptionIndex
		}
	case QuestionTypeIdentification:
		if q.Identification == nil || q.MultipleChoice != nil {
			return ErrQuestionKeyShape
		}
		if strings.TrimSpace(q.Identification.CorrectAnswer) == "" {
			return ErrQuestionBlankAnswer
		}
	default:
		return ErrQuestionUnknownType
	}
	return nil
}

// CorrectAnswerText returns the human-readable correct answer: the option
// text for multiple choice, the expected answer for identification.
func (q *Question) CorrectAnswerText() string {
	switch {
	case q.MultipleChoice != nil:
		idx := q.MultipleChoice.CorrectOptionIndex
		if idx >= 0 && idx < len(q.MultipleChoice.Options) {
			return q.MultipleChoice.Options[idx]
		}
		return ""
	case q.Identification != nil:
		return q.Identification.CorrectAnswer
	}
	return ""
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	out := QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.Text,
		QuestionType: q.Type,
		Points:       q.Points,
		OrderNum:     q.OrderNum,
	}
	if q.MultipleChoice != nil {
		out.Options = append([]string(nil), q.MultipleChoice.Options...)
	}
	return out
}

// QuestionForStudent is a question without the correct answer, sent to students.
type QuestionForStudent struct {
	ID           uuid.UUID    `json:"id"`
	QuestionText string       `json:"question_text"`
	QuestionType QuestionType `json:"question_type"`
	Options      []string     `json:"options,omitempty"`
	Points       int          `json:"points"`
	OrderNum     int          `json:"order_num"`
}

// QuestionRequest is one question in a replace-questions payload.
type QuestionRequest struct {
	QuestionText       string   `json:"question_text" binding:"required,notblank,max=2000"`
	QuestionType       string   `json:"question_type" binding:"required,oneof=MULTIPLE_CHOICE IDENTIFICATION"`
	Points             int      `json:"points" binding:"required,min=1"`
	OrderNum           int      `json:"order_num" binding:"min=0"`
	Options            []string `json:"options" binding:"omitempty,dive,required,max=500"`
	CorrectOptionIndex *int     `json:"correct_option_index" binding:"omitempty,min=0"`
	CorrectAnswer      string   `json:"correct_answer" binding:"omitempty,max=500"`
}

// ToQuestion converts the request into a Question for the given exam.
// The declared type always gets its key, even an empty one, so Validate
// reports what is missing from it. Fields that do not belong to the declared
// type are rejected by Validate.
func (r *QuestionRequest) ToQuestion(examID uuid.UUID) Question {
	q := Question{
		ExamID:   examID,
		Text:     r.QuestionText,
		Points:   r.Points,
		OrderNum: r.OrderNum,
		Type:     QuestionType(r.QuestionType),
	}
	if q.Type == QuestionTypeMultipleChoice || len(r.Options) > 0 || r.CorrectOptionIndex != nil {
		key := &MultipleChoiceKey{Options: append([]string(nil), r.Options...)}
		if r.CorrectOptionIndex != nil {
			key.CorrectOptionIndex = *r.CorrectOptionIndex
		} else {
			key.CorrectOptionIndex = -1
		}
		q.MultipleChoice = key
	}
	if q.Type == QuestionTypeIdentification || r.CorrectAnswer != "" {
		q.Identification = &IdentificationKey{CorrectAnswer: r.CorrectAnswer}
	}
	return q
}

// ReplaceQuestionsRequest is the payload for replacing an exam's question set.
type ReplaceQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
