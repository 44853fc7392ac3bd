package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionRequestValidation(t *testing.T) {
	idx := func(i int) *int { return &i }

	tests := []struct {
		name string
		req  QuestionRequest
		want error
	}{
		{
			name: "identification without answer",
			req:  QuestionRequest{QuestionText: "Capital", QuestionType: "IDENTIFICATION", Points: 1},
			want: ErrQuestionBlankAnswer,
		},
		{
			name: "identification with whitespace answer",
			req:  QuestionRequest{QuestionText: "Capital", QuestionType: "IDENTIFICATION", Points: 1, CorrectAnswer: "  "},
			want: ErrQuestionBlankAnswer,
		},
		{
			name: "identification with options",
			req:  QuestionRequest{QuestionText: "Capital", QuestionType: "IDENTIFICATION", Points: 1, CorrectAnswer: "Paris", Options: []string{"a", "b"}},
			want: ErrQuestionKeyShape,
		},
		{
			name: "multiple choice without options",
			req:  QuestionRequest{QuestionText: "2+2", QuestionType: "MULTIPLE_CHOICE", Points: 1},
			want: ErrQuestionOptions,
		},
		{
			name: "multiple choice without index",
			req:  QuestionRequest{QuestionText: "2+2", QuestionType: "MULTIPLE_CHOICE", Points: 1, Options: []string{"3", "4"}},
			want: ErrQuestionOptionIndex,
		},
		{
			name: "multiple choice with answer text",
			req:  QuestionRequest{QuestionText: "2+2", QuestionType: "MULTIPLE_CHOICE", Points: 1, Options: []string{"3", "4"}, CorrectOptionIndex: idx(1), CorrectAnswer: "4"},
			want: ErrQuestionKeyShape,
		},
		{
			name: "valid identification",
			req:  QuestionRequest{QuestionText: "Capital", QuestionType: "IDENTIFICATION", Points: 3, CorrectAnswer: "Paris"},
		},
		{
			name: "valid multiple choice",
			req:  QuestionRequest{QuestionText: "2+2", QuestionType: "MULTIPLE_CHOICE", Points: 2, Options: []string{"3", "4"}, CorrectOptionIndex: idx(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.req.ToQuestion(uuid.New())
			err := q.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
