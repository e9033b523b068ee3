package protocols

import (
	"context"
	"strings"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// fetchNex performs a nex:// exchange. Directory selectors render as nex
// listings; file selectors fall back to extension-based detection.
func fetchNex(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError) {
	conn, dialErr := c.dial(ctx, req)
	if dialErr != nil {
		return nil, dialErr
	}

	if err := writeRequest(conn, req.host, req.url.NexRequestLine()); err != nil {
		return nil, err
	}

	var mimetype string
	if p := req.url.Path(); p == "" || strings.HasSuffix(p, "/") {
		mimetype = "application/nex"
	} else if mimetype = req.url.GuessMimetype(); mimetype == "" {
		mimetype = "text/plain"
	}

	return c.newResponse(req, conn, "20", mimetype, nil, mimetype, nil), nil
}
