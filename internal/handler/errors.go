package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/panotify/exam-backend/internal/middleware"
	"github.com/panotify/exam-backend/internal/response"
	"github.com/panotify/exam-backend/internal/service"
)

// serviceErrors maps domain errors to their API code, most specific first.
var serviceErrors = []struct {
	err  error
	code response.ErrCode
}{
	{service.ErrExamNotFound, response.ErrExamNotFound},
	{service.ErrNotExamOwner, response.ErrNotExamOwner},
	{service.ErrNotPublished, response.ErrExamNotPublished},
	{service.ErrExamLocked, response.ErrExamLocked},
	{service.ErrCannotUnpublish, response.ErrCannotUnpublish},
	{service.ErrInvalidQuestion, response.ErrInvalidQuestion},
	{service.ErrAlreadyAttempted, response.ErrAlreadyAttempted},
	{service.ErrDeadlinePassed, response.ErrDeadlinePassed},
	{service.ErrAttemptNotFound, response.ErrAttemptNotFound},
	{service.ErrAttemptClosed, response.ErrAttemptClosed},
	{service.ErrAttemptInProgress, response.ErrAttemptInProgress},
	{service.ErrUnknownQuestion, response.ErrUnknownQuestion},
	{service.ErrStoreUnavailable, response.ErrStoreUnavailable},
}

// errCode resolves err to the API error code clients see.
func errCode(err error) response.ErrCode {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return response.ErrInternal
}

// failService writes the error envelope for a service error. Invalid
// questions carry the validation detail in fields.
func failService(c *gin.Context, err error) {
	_ = c.Error(err)

	code := errCode(err)
	if code == response.ErrInvalidQuestion {
		response.FailWithFields(c, http.StatusBadRequest, code, map[string]string{"detail": err.Error()})
		return
	}
	response.FailCode(c, code)
}

func examIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func courseIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("course_id"))
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// callerID returns the authenticated user id.
func callerID(c *gin.Context) (int, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return 0, false
	}
	return claims.UserID, true
}
