package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/panotify/exam-backend/internal/model"
	"github.com/panotify/exam-backend/internal/response"
)

// RequireRole rejects callers whose token role is not role. It must run
// after RequireJWT or RequireWSAuth.
func RequireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if claims.Role != role {
			switch role {
			case model.RoleStudent:
				response.AbortFail(c, http.StatusForbidden, response.ErrStudentAccessOnly)
			case model.RoleInstructor:
				response.AbortFail(c, http.StatusForbidden, response.ErrInstructorAccessOnly)
			default:
				response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
			}
			return
		}

		c.Next()
	}
}
