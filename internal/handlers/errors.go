package handlers

import (
	"fmt"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

type HandlerErrorCause string

const (
	ErrCauseBodyRead   = "unable to read response body"
	ErrCauseConversion = "content conversion failed"
	ErrCauseRender     = "page rendering failed"
)

type HandlerError struct {
	Message string
	Cause   HandlerErrorCause
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler error: %s: %s", e.Cause, e.Message)
}

func (e *HandlerError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *HandlerError) IsRetryable() bool {
	return false
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match HandlerError types
func (e *HandlerError) Is(target error) bool {
	_, ok := target.(*HandlerError)
	return ok
}
