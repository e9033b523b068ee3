package metadata

/*
ErrorCause is a closed, canonical classification used exclusively for
observability (logging, metrics, reporting).

Rules:
 - ErrorCause is for observability only.
 - It MUST NOT influence control flow: retry, redirect, and error-page
   decisions are made on typed errors, never on these values.
 - Pipeline packages MAY map their local errors to ErrorCause,
   but MUST NOT invent new meanings.

If a failure does not clearly match a defined cause, CauseUnknown MUST be used.
*/
type ErrorCause int

const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CauseTLSFailure
	CauseMalformedResponse
	CausePolicyDisallow
	CauseRenderFailure
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network failure"
	case CauseTLSFailure:
		return "tls failure"
	case CauseMalformedResponse:
		return "malformed response"
	case CausePolicyDisallow:
		return "policy disallow"
	case CauseRenderFailure:
		return "render failure"
	default:
		return "unknown"
	}
}

type AttrKey string

const (
	AttrURL     = AttrKey("url")
	AttrHost    = AttrKey("host")
	AttrStatus  = AttrKey("status")
	AttrMessage = AttrKey("message")
)

type Attribute struct {
	key   AttrKey
	value string
}

func NewAttr(key AttrKey, value string) Attribute {
	return Attribute{key: key, value: value}
}

func (a Attribute) Key() AttrKey { return a.key }

func (a Attribute) Value() string { return a.value }
