package transport

import (
	"errors"
	"io"
)

// ReadBody reads the response body into memory, up to maxBytes.
//
// If the peer closes the connection first, every byte read is returned
// and the connection is closed. If maxBytes arrive with the connection
// still open, a TooLargeError carrying those bytes is returned and the
// connection stays open so the caller can keep streaming the remainder.
func (c *Conn) ReadBody(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}

	buf := make([]byte, maxBytes)
	n, err := io.ReadFull(c.reader, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// EOF before the ceiling: this is the entire body.
			c.Close()
			return buf[:n], nil
		}
		c.Close()
		return nil, err
	}

	return nil, &TooLargeError{Partial: buf}
}

// BodyStream returns a reader over the remaining body bytes. The
// connection is closed on every exit path: EOF, read error, or an early
// Close by an abandoning caller.
func (c *Conn) BodyStream() io.ReadCloser {
	return &bodyStream{conn: c}
}

type bodyStream struct {
	conn *Conn
	done bool
}

func (s *bodyStream) Read(p []byte) (int, error) {
	if s.done {
		return 0, io.EOF
	}
	if len(p) > ChunkSize {
		p = p[:ChunkSize]
	}
	n, err := s.conn.reader.Read(p)
	if err != nil {
		s.done = true
		s.conn.Close()
	}
	return n, err
}

func (s *bodyStream) Close() error {
	s.done = true
	s.conn.Close()
	return nil
}
