package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDPropagated(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "abc-123", body.Metadata.RequestID)
	require.Nil(t, body.Error)
}

func TestRequestIDReplacesOversizedHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", maxRequestIDLen+1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	got := w.Header().Get(HeaderRequestID)
	require.NotEmpty(t, got)
	require.LessOrEqual(t, len(got), maxRequestIDLen)
}

func TestFailWithDataCarriesPayload(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		FailWithData(c, ErrDeadlinePassed, gin.H{"status": "timeout"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	var body struct {
		Data  map[string]string `json:"data"`
		Error ErrorBody         `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "timeout", body.Data["status"])
	require.Equal(t, ErrDeadlinePassed, body.Error.Code)
	require.Equal(t, GetMessage(ErrDeadlinePassed), body.Error.Message)
}

func TestEveryCodeHasMessageAndStatus(t *testing.T) {
	codes := []ErrCode{
		ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired,
		ErrForbidden, ErrStudentAccessOnly, ErrInstructorAccessOnly, ErrNotExamOwner,
		ErrValidation, ErrInvalidID, ErrInvalidPayload, ErrInvalidQuestion,
		ErrExamNotFound, ErrExamNotPublished, ErrExamLocked, ErrCannotUnpublish,
		ErrAlreadyAttempted, ErrDeadlinePassed, ErrAttemptNotFound, ErrAttemptClosed,
		ErrAttemptInProgress, ErrUnknownQuestion, ErrRateLimitExceeded,
		ErrStoreUnavailable, ErrInternal,
	}
	fallback := GetMessage(ErrCode("nope"))
	for _, code := range codes {
		require.NotEqual(t, fallback, GetMessage(code), code)
		status := GetStatus(code)
		require.GreaterOrEqual(t, status, 400, code)
	}
	require.Equal(t, http.StatusInternalServerError, GetStatus(ErrInternal))
	require.Equal(t, http.StatusServiceUnavailable, GetStatus(ErrStoreUnavailable))
}
