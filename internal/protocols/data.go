package protocols

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rohmanhakim/scroll-gateway/internal/transport"
	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
)

// Options carries the caller's per-request flags, decoded from the
// gateway's own query parameters.
type Options struct {
	// Stream the upstream bytes verbatim instead of rendering.
	Raw bool
	// Download the peer TLS certificate as a binary attachment.
	RawCert bool
	// Render the TLS context page instead of the document.
	Cert bool
	// Request and render the document abstract (scroll only).
	Meta bool
	// Output conversion: "" (HTML) or "markdown".
	Format string
	// Override the detected charset.
	Charset string
	// Preferred language tag to send to the server.
	Lang string
}

// Request is one fetch attempt. Host and port are validated against
// policy at construction; a request is usable exactly once.
type Request struct {
	url     *urlref.URLReference
	options Options
	host    string
	port    int
}

func (r *Request) URL() *urlref.URLReference { return r.url }

func (r *Request) Options() Options { return r.options }

func (r *Request) Host() string { return r.host }

func (r *Request) Port() int { return r.port }

// DocumentMetadata carries the extra header lines a scroll server sends
// with a successful response.
type DocumentMetadata struct {
	author           string
	publishDate      *time.Time
	modificationDate *time.Time
}

func NewDocumentMetadata(author string, publishDate, modificationDate *time.Time) *DocumentMetadata {
	return &DocumentMetadata{
		author:           author,
		publishDate:      publishDate,
		modificationDate: modificationDate,
	}
}

func (m *DocumentMetadata) Author() string { return m.author }

func (m *DocumentMetadata) PublishDate() *time.Time { return m.publishDate }

func (m *DocumentMetadata) ModificationDate() *time.Time { return m.modificationDate }

// body consumption states; get and stream are mutually exclusive
const (
	bodyUntouched = iota
	bodyRead
	bodyStreaming
)

// Response is the uniform result of one fetch. It owns the still-open
// connection until Close is called or the body is consumed.
type Response struct {
	url         *urlref.URLReference
	options     Options
	conn        *transport.Conn
	status      string
	meta        string
	mimetype    string
	charset     string
	lang        string
	peerAddress string
	statusCodes map[string]string
	docMeta     *DocumentMetadata
	bodyState   int
	maxBodySize int
}

func (r *Response) URL() *urlref.URLReference { return r.url }

func (r *Response) Options() Options { return r.options }

func (r *Response) Status() string { return r.status }

func (r *Response) Meta() string { return r.meta }

func (r *Response) Mimetype() string { return r.mimetype }

func (r *Response) Charset() string { return r.charset }

func (r *Response) Lang() string { return r.lang }

func (r *Response) PeerAddress() string { return r.peerAddress }

// DocMeta returns scroll document metadata, nil for other protocols and
// for non-success responses.
func (r *Response) DocMeta() *DocumentMetadata { return r.docMeta }

// TLS returns the negotiated TLS material, nil for plaintext protocols.
func (r *Response) TLS() *transport.TLSState { return r.conn.TLS() }

// StatusClass returns the first byte of the status code, 0 when empty.
func (r *Response) StatusClass() byte {
	if r.status == "" {
		return 0
	}
	return r.status[0]
}

// StatusDisplay renders a human-readable status message for the
// response, used only for display.
func (r *Response) StatusDisplay() string {
	if description, ok := r.statusCodes[r.status]; ok {
		return fmt.Sprintf("%s (%s)", r.status, description)
	}
	return r.status
}

// GetBody reads the entire response body into memory, up to the response
// size ceiling. On transport.TooLargeError the connection remains open
// and the body may still be streamed; any other path consumes the body.
func (r *Response) GetBody() ([]byte, error) {
	if r.bodyState != bodyUntouched {
		return nil, &ProxyError{
			Host:    r.url.Hostname(),
			Message: "get_body called on a consumed response",
			Cause:   ErrCauseBodyConsumed,
		}
	}

	body, err := r.conn.ReadBody(r.maxBodySize)
	if err != nil {
		var tooLarge *transport.TooLargeError
		if errors.As(err, &tooLarge) {
			// Leave the body available for the streaming retry path.
			return nil, err
		}
		r.bodyState = bodyRead
		return nil, err
	}
	r.bodyState = bodyRead
	return body, nil
}

// BodyStream returns a reader over the remaining body bytes. The
// underlying connection closes on any exit: exhaustion, error, or an
// early Close.
func (r *Response) BodyStream() (io.ReadCloser, error) {
	if r.bodyState != bodyUntouched {
		return nil, &ProxyError{
			Host:    r.url.Hostname(),
			Message: "stream_body called on a consumed response",
			Cause:   ErrCauseBodyConsumed,
		}
	}
	r.bodyState = bodyStreaming
	return r.conn.BodyStream(), nil
}

// Close releases the connection. Safe to call more than once.
func (r *Response) Close() {
	r.conn.Close()
}
