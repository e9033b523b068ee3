package failure

type Severity int

// gateway control flow
const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

// ClassifiedError is the error contract shared by every pipeline package.
// The gateway boundary inspects Severity to decide whether a failure is
// rendered as an error page or aborts the request outright.
type ClassifiedError interface {
	error
	Severity() Severity
}
