package transport

import (
	"fmt"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

type ConnectErrorCause string

const (
	ErrCauseDNS       = "host not found"
	ErrCauseRefused   = "connection refused"
	ErrCauseTimeout   = "connect timeout"
	ErrCauseTLS       = "TLS handshake failed"
	ErrCauseTransport = "network failure"
)

// ConnectError covers every way a connection can fail to come up: DNS
// failure, refusal, timeout, TLS handshake. Callers surface all of them
// as a single "could not reach host" condition.
type ConnectError struct {
	Host      string
	Message   string
	Retryable bool
	Cause     ConnectErrorCause
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect error: %s: %s", e.Cause, e.Message)
}

func (e *ConnectError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *ConnectError) IsRetryable() bool {
	return e.Retryable
}

// Is allows errors.Is to match ConnectError types
func (e *ConnectError) Is(target error) bool {
	_, ok := target.(*ConnectError)
	return ok
}

// TooLargeError is not a failure: it signals that the response body hit
// the size ceiling with the connection still open. Partial carries every
// byte read so far; the caller may keep streaming from the connection.
type TooLargeError struct {
	Partial []byte
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("maximum response size of %d bytes read", len(e.Partial))
}

func (e *TooLargeError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *TooLargeError) IsRetryable() bool {
	return false
}

// Is allows errors.Is to match TooLargeError types
func (e *TooLargeError) Is(target error) bool {
	_, ok := target.(*TooLargeError)
	return ok
}
