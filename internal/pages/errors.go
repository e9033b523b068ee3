package pages

import (
	"fmt"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

type RenderErrorCause string

const (
	ErrCauseUnknownRole = "unknown page role"
	ErrCauseTemplate    = "template execution failed"
)

type RenderError struct {
	Role    Role
	Message string
	Cause   RenderErrorCause
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render error: %s: %s", e.Cause, e.Message)
}

func (e *RenderError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *RenderError) IsRetryable() bool {
	return false
}

// Is allows errors.Is to match RenderError types
func (e *RenderError) Is(target error) bool {
	_, ok := target.(*RenderError)
	return ok
}
