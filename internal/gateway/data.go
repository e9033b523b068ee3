package gateway

import (
	"io"
	"net/http"
)

// ResultKind discriminates the four ways a proxied request leaves the
// gateway: a rendered page, a verbatim byte stream, a file download, or
// an HTTP redirect.
type ResultKind int

const (
	ResultPage ResultKind = iota
	ResultStream
	ResultAttachment
	ResultRedirect
)

// Result is the builder's terminal output. Exactly one shape is populated
// per kind; the HTTP layer maps it onto the wire without inspecting the
// upstream response again.
type Result struct {
	kind        ResultKind
	httpStatus  int
	contentType string
	body        []byte
	stream      io.ReadCloser
	filename    string
	location    string
}

func newPageResult(httpStatus int, contentType string, body []byte) *Result {
	return &Result{
		kind:        ResultPage,
		httpStatus:  httpStatus,
		contentType: contentType,
		body:        body,
	}
}

func newStreamResult(contentType string, stream io.ReadCloser) *Result {
	return &Result{
		kind:        ResultStream,
		httpStatus:  http.StatusOK,
		contentType: contentType,
		stream:      stream,
	}
}

func newAttachmentResult(contentType string, filename string, body []byte) *Result {
	return &Result{
		kind:        ResultAttachment,
		httpStatus:  http.StatusOK,
		contentType: contentType,
		filename:    filename,
		body:        body,
	}
}

func newRedirectResult(location string) *Result {
	return &Result{
		kind:       ResultRedirect,
		httpStatus: http.StatusTemporaryRedirect,
		location:   location,
	}
}

func (r *Result) Kind() ResultKind { return r.kind }

func (r *Result) HTTPStatus() int { return r.httpStatus }

func (r *Result) ContentType() string { return r.contentType }

func (r *Result) Body() []byte { return r.body }

// Stream is non-nil only for ResultStream. Closing it releases the
// upstream connection.
func (r *Result) Stream() io.ReadCloser { return r.stream }

func (r *Result) Filename() string { return r.filename }

func (r *Result) Location() string { return r.location }
