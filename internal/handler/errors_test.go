package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestErrCode(t *testing.T) {
	for _, m := range serviceErrors {
		assert.Equal(t, m.code, errCode(m.err), m.err.Error())
		assert.Equal(t, m.code, errCode(fmt.Errorf("wrapped: %w", m.err)), m.err.Error())
	}

	assert.Equal(t, response.ErrInternal, errCode(errors.New("boom")))
	assert.Equal(t, response.ErrDeadlinePassed, errCode(fmt.Errorf("%w: %w", service.ErrDeadlinePassed, errors.New("late"))))
}

func TestServiceErrorsHaveStatus(t *testing.T) {
	for _, m := range serviceErrors {
		assert.NotEqual(t, 500, response.GetStatus(m.code), string(m.code))
	}
}
