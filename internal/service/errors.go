package service

import (
	"errors"
	"fmt"

	"github.com/panotify/exam-backend/internal/repository"
)

// Domain errors returned by the exam engine. Every store failure that is
// not one of these is wrapped with ErrStoreUnavailable.
var (
	ErrNotPublished      = errors.New("exam is not published")
	ErrAlreadyAttempted  = errors.New("exam already attempted")
	ErrDeadlinePassed    = errors.New("exam deadline has passed")
	ErrCannotUnpublish   = errors.New("exam has attempts and cannot be unpublished")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamLocked        = errors.New("exam has attempts and cannot be changed")
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrInvalidReason     = errors.New("finalize reason must be completed or timeout")
	ErrAttemptClosed     = errors.New("attempt is no longer in progress")
	ErrAttemptInProgress = errors.New("attempt is still in progress")
	ErrUnknownQuestion   = errors.New("question does not belong to this exam")
	ErrNotExamOwner      = errors.New("not the owner of this exam")
)

// storeErr wraps an unexpected store error with the operation name.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// examErr maps a store error from an exam lookup.
func examErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrExamNotFound
	}
	return storeErr(op, err)
}
