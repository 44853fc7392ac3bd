package response

import "net/http"

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden            ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly    ErrCode = "STUDENT_ACCESS_ONLY"
	ErrInstructorAccessOnly ErrCode = "INSTRUCTOR_ACCESS_ONLY"
	ErrNotExamOwner         ErrCode = "NOT_EXAM_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInvalidID       ErrCode = "INVALID_ID"
	ErrInvalidPayload  ErrCode = "INVALID_PAYLOAD"
	ErrInvalidQuestion ErrCode = "INVALID_QUESTION"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrExamNotFound      ErrCode = "EXAM_NOT_FOUND"
	ErrExamNotPublished  ErrCode = "EXAM_NOT_PUBLISHED"
	ErrExamLocked        ErrCode = "EXAM_LOCKED"
	ErrCannotUnpublish   ErrCode = "CANNOT_UNPUBLISH"
	ErrAlreadyAttempted  ErrCode = "ALREADY_ATTEMPTED"
	ErrDeadlinePassed    ErrCode = "DEADLINE_PASSED"
	ErrAttemptNotFound   ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptClosed     ErrCode = "ATTEMPT_CLOSED"
	ErrAttemptInProgress ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrStoreUnavailable ErrCode = "STORE_UNAVAILABLE"
	ErrInternal         ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An access token is required."
	case ErrTokenInvalid:
		return "The access token is invalid."
	case ErrTokenExpired:
		return "The access token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrInstructorAccessOnly:
		return "This resource is restricted to instructors."
	case ErrNotExamOwner:
		return "You are not the instructor of this exam."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrInvalidQuestion:
		return "One or more questions are invalid."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrExamNotFound:
		return "Exam not found."
	case ErrExamNotPublished:
		return "This exam is not published."
	case ErrExamLocked:
		return "This exam already has attempts and can no longer be changed."
	case ErrCannotUnpublish:
		return "This exam already has attempts and cannot be unpublished."
	case ErrAlreadyAttempted:
		return "You have already attempted this exam."
	case ErrDeadlinePassed:
		return "The time for this exam has run out."
	case ErrAttemptNotFound:
		return "You have not started this exam."
	case ErrAttemptClosed:
		return "This attempt has already been submitted."
	case ErrAttemptInProgress:
		return "Results are available once the attempt is submitted."
	case ErrUnknownQuestion:
		return "The question does not belong to this exam."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrStoreUnavailable:
		return "The service is temporarily unavailable. Please try again."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

// GetStatus returns the HTTP status that accompanies code.
func GetStatus(code ErrCode) int {
	switch code {
	case ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired:
		return http.StatusUnauthorized
	case ErrForbidden, ErrStudentAccessOnly, ErrInstructorAccessOnly, ErrNotExamOwner,
		ErrExamNotPublished, ErrDeadlinePassed:
		return http.StatusForbidden
	case ErrValidation, ErrInvalidID, ErrInvalidPayload, ErrInvalidQuestion, ErrUnknownQuestion:
		return http.StatusBadRequest
	case ErrExamNotFound, ErrAttemptNotFound:
		return http.StatusNotFound
	case ErrExamLocked, ErrCannotUnpublish, ErrAlreadyAttempted, ErrAttemptClosed, ErrAttemptInProgress:
		return http.StatusConflict
	case ErrRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
