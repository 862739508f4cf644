package session

import (
	"errors"
	"fmt"
)

var (
	ErrClosed               = errors.New("test session is closed")
	ErrConfirmationRequired = errors.New("submission must be confirmed")
	ErrUnknownQuestion      = errors.New("question does not belong to this test")
	ErrUnknownOption        = errors.New("option does not belong to this question")
	ErrIndexOutOfRange      = errors.New("question index out of range")
	ErrNoActiveSubmission   = errors.New("no active submission")
	ErrTestNotFound         = errors.New("test not found")
	ErrAlreadyCompleted     = errors.New("submission already completed")
)

// RouteTestList is where students land when a session cannot start.
const RouteTestList = "/student/tests"

func ReviewRoute(submissionID int64) string {
	return fmt.Sprintf("/review-test/%d", submissionID)
}

// RedirectError means the caller must navigate to Route, showing Alert if set.
type RedirectError struct {
	Route string
	Alert string
	Err   error
}

func (e *RedirectError) Error() string {
	if e.Alert != "" {
		return fmt.Sprintf("redirect to %s: %s", e.Route, e.Alert)
	}
	return "redirect to " + e.Route
}

func (e *RedirectError) Unwrap() error { return e.Err }
