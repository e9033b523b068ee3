package protocols

import (
	"context"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// fetchGopher performs a gopher:// or gophers:// exchange. Gopher has no
// response header; a success status is synthesized and the mimetype comes
// from the item type embedded in the URL.
func fetchGopher(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError) {
	conn, dialErr := c.dial(ctx, req)
	if dialErr != nil {
		return nil, dialErr
	}

	if err := writeRequest(conn, req.host, req.url.GopherRequestLine()); err != nil {
		return nil, err
	}

	mimetype := req.url.GuessMimetype()
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}

	return c.newResponse(req, conn, "20", mimetype, nil, mimetype, nil), nil
}
