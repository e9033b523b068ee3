package handlers

import (
	"bytes"
	"io"

	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// streamHandler pipes the body verbatim. Used for raw mode, media types,
// and the too-large fallback.
type streamHandler struct {
	resp    *protocols.Response
	partial []byte
}

// NewStreamHandler streams an untouched response body.
func NewStreamHandler(resp *protocols.Response) Handler {
	return &streamHandler{resp: resp}
}

// NewPartialStreamHandler streams a body whose first bytes were already
// read before the size ceiling was hit. No bytes are lost and no
// re-fetch occurs: the partial buffer replays before the connection.
func NewPartialStreamHandler(resp *protocols.Response, partial []byte) (Handler, error) {
	return &streamHandler{resp: resp, partial: partial}, nil
}

func (h *streamHandler) Render() (*Output, failure.ClassifiedError) {
	stream, err := h.resp.BodyStream()
	if err != nil {
		return nil, &HandlerError{
			Message: err.Error(),
			Cause:   ErrCauseBodyRead,
			Err:     err,
		}
	}

	if len(h.partial) > 0 {
		stream = &seededStream{
			Reader: io.MultiReader(bytes.NewReader(h.partial), stream),
			closer: stream,
		}
	}

	return NewStreamOutput(stream, contentTypeFor(h.resp)), nil
}

// seededStream replays buffered bytes ahead of the live connection while
// delegating Close to the connection-owning stream.
type seededStream struct {
	io.Reader
	closer io.Closer
}

func (s *seededStream) Close() error {
	return s.closer.Close()
}
