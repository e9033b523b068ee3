package protocols

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/rohmanhakim/scroll-gateway/internal/metadata"
	"github.com/rohmanhakim/scroll-gateway/internal/policy"
	"github.com/rohmanhakim/scroll-gateway/internal/transport"
	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
	"github.com/rohmanhakim/scroll-gateway/pkg/limiter"
	"github.com/rohmanhakim/scroll-gateway/pkg/retry"
)

/*
Responsibilities

- Speak each proxied wire protocol: handshake, request line, header parse
- Produce one uniform Response regardless of protocol
- Keep the gateway polite (per-host delays, SLOW DOWN backoff)
- Classify fetch failures

Fetch Semantics

- One fetch, one response, one connection
- A truncated or missing header line is an error, never an empty status
- Control flow branches on status class only; exact codes are display data
*/

type fetchFunc func(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError)

// Static scheme dispatch; no runtime type inspection.
var fetchers = map[string]fetchFunc{
	"scroll":  fetchScroll,
	"gemini":  fetchGemini,
	"spartan": fetchSpartan,
	"gopher":  fetchGopher,
	"gophers": fetchGopher,
	"finger":  fetchFinger,
	"nex":     fetchNex,
	"text":    fetchTxt,
}

type Client struct {
	dialer         transport.Dialer
	checker        policy.Checker
	limiter        limiter.RateLimiter
	retryParam     retry.RetryParam
	metadataSink   metadata.MetadataSink
	log            zerolog.Logger
	maxBodySize    int
	defaultCharset string
}

func NewClient(
	dialer transport.Dialer,
	checker policy.Checker,
	rateLimiter limiter.RateLimiter,
	retryParam retry.RetryParam,
	metadataSink metadata.MetadataSink,
	log zerolog.Logger,
	maxBodySize int,
	defaultCharset string,
) Client {
	if maxBodySize <= 0 {
		maxBodySize = transport.DefaultMaxBodySize
	}
	if defaultCharset == "" {
		defaultCharset = "UTF-8"
	}
	return Client{
		dialer:         dialer,
		checker:        checker,
		limiter:        rateLimiter,
		retryParam:     retryParam,
		metadataSink:   metadataSink,
		log:            log,
		maxBodySize:    maxBodySize,
		defaultCharset: defaultCharset,
	}
}

// NewRequest validates the URL against proxy policy and resolves the
// connection endpoint. Requests that fail admission never dial.
func (c *Client) NewRequest(url *urlref.URLReference, options Options) (*Request, failure.ClassifiedError) {
	if _, ok := fetchers[url.Scheme()]; !ok {
		return nil, &ProxyError{
			Host:    url.Hostname(),
			Message: fmt.Sprintf("unsupported URL scheme: %q", url.Scheme()),
			Cause:   ErrCauseUnsupportedScheme,
		}
	}

	host, port, err := url.ConnInfo()
	if err != nil {
		return nil, &ProxyError{
			Host:    url.Hostname(),
			Message: err.Error(),
			Cause:   ErrCauseUnsupportedScheme,
		}
	}

	if decision := c.checker.Admit(host, port); !decision.Allowed() {
		return nil, &ProxyError{
			Host:    host,
			Message: decision.Reason(),
			Cause:   ErrCauseBlockedByPolicy,
		}
	}

	return &Request{url: url, options: options, host: host, port: port}, nil
}

// Fetch performs the protocol exchange for the request.
func (c *Client) Fetch(ctx context.Context, req *Request) (*Response, failure.ClassifiedError) {
	fetch := fetchers[req.url.Scheme()]

	if delay := c.limiter.ResolveDelay(req.host); delay > 0 {
		c.log.Debug().Str("host", req.host).Dur("delay", delay).Msg("politeness delay")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &ProxyError{
				Host:    req.host,
				Message: ctx.Err().Error(),
				Cause:   ErrCauseUnreachable,
			}
		}
	}

	startTime := time.Now()
	c.limiter.MarkLastFetchAsNow(req.host)

	response, err := retry.Retry(c.retryParam, func() (*Response, failure.ClassifiedError) {
		return fetch(ctx, c, req)
	})
	duration := time.Since(startTime)

	if err != nil {
		c.recordFetchError(req, err)
		return nil, err
	}

	c.metadataSink.RecordFetch(req.url.String(), response.Status(), duration, response.Mimetype())

	// SLOW DOWN responses raise the politeness delay for the host.
	if response.Status() == "44" {
		c.limiter.Backoff(req.host)
	} else {
		c.limiter.ResetBackoff(req.host)
	}

	return response, nil
}

func (c *Client) recordFetchError(req *Request, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown
	var proxyErr *ProxyError
	if errors.As(err, &proxyErr) {
		cause = mapProxyErrorToMetadataCause(proxyErr)
	}
	c.metadataSink.RecordError(
		time.Now(),
		"protocols",
		"Client.Fetch",
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, req.url.String()),
			metadata.NewAttr(metadata.AttrHost, req.host),
		},
	)
}

// dial opens the connection for the request, wrapping every transport
// failure into a ProxyError that names the host.
func (c *Client) dial(ctx context.Context, req *Request) (*transport.Conn, failure.ClassifiedError) {
	var conn *transport.Conn
	var dialErr *transport.ConnectError

	if req.url.IsTLS() {
		conn, dialErr = c.dialer.DialTLS(ctx, req.host, req.port)
	} else {
		conn, dialErr = c.dialer.Dial(ctx, req.host, req.port)
	}
	if dialErr != nil {
		cause := ProxyErrorCause(ErrCauseUnreachable)
		if dialErr.Cause == transport.ErrCauseTLS {
			cause = ErrCauseTLSHandshake
		}
		return nil, &ProxyError{
			Host:      req.host,
			Message:   fmt.Sprintf("unable to establish connection with host %q: %s", req.host, dialErr.Message),
			Retryable: dialErr.Retryable,
			Cause:     cause,
			Err:       dialErr,
		}
	}

	c.log.Info().
		Str("scheme", req.url.Scheme()).
		Str("host", req.host).
		Int("port", req.port).
		Str("peer", conn.PeerAddress()).
		Msg("connection established")

	return conn, nil
}

// writeRequest sends the encoded wire request, closing the connection on
// failure.
func writeRequest(conn *transport.Conn, host string, payload []byte) failure.ClassifiedError {
	if _, err := conn.Write(payload); err != nil {
		conn.Close()
		return &ProxyError{
			Host:      host,
			Message:   fmt.Sprintf("unable to send request to %q: %v", host, err),
			Retryable: true,
			Cause:     ErrCauseUnreachable,
			Err:       err,
		}
	}
	return nil
}

// readHeader reads and splits the single response header line.
func readHeader(conn *transport.Conn, host string) (status, meta string, err failure.ClassifiedError) {
	line, readErr := conn.ReadLine()
	if readErr != nil {
		conn.Close()
		return "", "", &ProxyError{
			Host:    host,
			Message: fmt.Sprintf("malformed response header from %q: %v", host, readErr),
			Cause:   ErrCauseMalformedHeader,
			Err:     readErr,
		}
	}
	status, meta = ParseResponseHeader(line)
	return status, meta, nil
}

// ParseResponseHeader splits a response header into status and meta on
// the first whitespace run. A header with no whitespace yields an empty
// meta.
func ParseResponseHeader(header string) (string, string) {
	header = strings.TrimSpace(header)
	idx := strings.IndexFunc(header, unicode.IsSpace)
	if idx < 0 {
		return header, ""
	}
	return header[:idx], strings.TrimSpace(header[idx:])
}

// ParseMeta parses & normalizes extra params from the MIME string.
//
// Used for gemini/spartan/scroll style responses. Parameter keys are
// lowercased; malformed segments are dropped; the first occurrence of a
// key wins.
func ParseMeta(meta string) (string, map[string]string) {
	parts := strings.SplitN(meta, ";", 2)
	mimetype := strings.TrimSpace(parts[0])

	params := make(map[string]string)
	if len(parts) == 2 {
		for _, param := range strings.Split(parts[1], ";") {
			kv := strings.SplitN(strings.TrimSpace(param), "=", 2)
			if len(kv) != 2 || kv[0] == "" {
				continue
			}
			key := strings.ToLower(kv[0])
			if _, seen := params[key]; !seen {
				params[key] = kv[1]
			}
		}
	}

	return mimetype, params
}

// newResponse assembles the shared response contract. For success
// responses the meta string is interpreted as a MIME string; otherwise
// it is an error message or redirect target and mimetype stays empty.
func (c *Client) newResponse(
	req *Request,
	conn *transport.Conn,
	status string,
	meta string,
	statusCodes map[string]string,
	defaultMimetype string,
	docMeta *DocumentMetadata,
) *Response {
	r := &Response{
		url:         req.url,
		options:     req.options,
		conn:        conn,
		status:      status,
		meta:        meta,
		peerAddress: conn.PeerAddress(),
		statusCodes: statusCodes,
		docMeta:     docMeta,
		maxBodySize: c.maxBodySize,
	}

	if strings.HasPrefix(status, "2") {
		mimetype, params := ParseMeta(meta)
		if mimetype == "" {
			mimetype = defaultMimetype
		}
		r.mimetype = mimetype
		r.charset = firstNonEmpty(req.options.Charset, params["charset"], c.defaultCharset)
		r.lang = params["lang"]
	} else {
		r.charset = firstNonEmpty(req.options.Charset, c.defaultCharset)
	}

	return r
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
