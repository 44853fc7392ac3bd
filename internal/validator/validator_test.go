package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Title  string `json:"title" binding:"required,notblank,min=3"`
	Points int    `json:"points" binding:"required,min=1"`
}

func bind(t *testing.T, body string) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var p payload
	return Bind(c, &p)
}

func TestBindValid(t *testing.T) {
	require.Nil(t, bind(t, `{"title":"Midterm","points":2}`))
}

func TestBindUsesJSONNames(t *testing.T) {
	fields := bind(t, `{"title":"Midterm","points":0}`)
	require.Contains(t, fields, "points")
	require.NotContains(t, fields, "Points")
}

func TestBindNotBlank(t *testing.T) {
	fields := bind(t, `{"title":"     ","points":1}`)
	require.Equal(t, "title must not be blank", fields["title"])
}

func TestBindMalformedJSON(t *testing.T) {
	fields := bind(t, `{"title":`)
	require.Contains(t, fields, "detail")
}
