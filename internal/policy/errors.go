package policy

import (
	"fmt"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

type PolicyErrorCause string

const (
	ErrCauseBlockedHost = "blocked host"
	ErrCauseBlockedPort = "blocked port"
	ErrCauseBadPattern  = "bad host pattern"
)

type PolicyError struct {
	Message string
	Cause   PolicyErrorCause
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error: %s", e.Message)
}

// Admission failures are terminal for the request but never for the
// serving process.
func (e *PolicyError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *PolicyError) IsRetryable() bool {
	return false
}
