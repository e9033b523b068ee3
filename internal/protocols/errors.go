package protocols

import (
	"fmt"

	"github.com/rohmanhakim/scroll-gateway/internal/metadata"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

type ProxyErrorCause string

const (
	ErrCauseUnreachable       = "unable to reach host"
	ErrCauseTLSHandshake      = "TLS handshake failed"
	ErrCauseMalformedHeader   = "malformed response header"
	ErrCauseUnsupportedScheme = "unsupported URL scheme"
	ErrCauseBlockedByPolicy   = "blocked by proxy policy"
	ErrCauseBodyConsumed      = "response body already consumed"
)

// ProxyError is the single error surface of the fetch layer. Network
// failures, handshake failures and malformed headers all arrive here,
// with the remote host always named in the message.
type ProxyError struct {
	Host      string
	Message   string
	Retryable bool
	Cause     ProxyErrorCause
	Err       error
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("proxy error: %s: %s", e.Cause, e.Message)
}

func (e *ProxyError) Severity() failure.Severity {
	return failure.SeverityRecoverable
}

func (e *ProxyError) IsRetryable() bool {
	return e.Retryable
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ProxyError types
func (e *ProxyError) Is(target error) bool {
	_, ok := target.(*ProxyError)
	return ok
}

// mapProxyErrorToMetadataCause maps fetch-local error semantics to the
// canonical metadata.ErrorCause table.
//
// This mapping is observational only and MUST NOT be used
// to derive control-flow decisions.
func mapProxyErrorToMetadataCause(err *ProxyError) metadata.ErrorCause {
	switch err.Cause {
	case ErrCauseUnreachable:
		return metadata.CauseNetworkFailure
	case ErrCauseTLSHandshake:
		return metadata.CauseTLSFailure
	case ErrCauseMalformedHeader:
		return metadata.CauseMalformedResponse
	case ErrCauseBlockedByPolicy:
		return metadata.CausePolicyDisallow
	default:
		return metadata.CauseUnknown
	}
}
