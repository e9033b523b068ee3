package protocols

import (
	"context"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// fetchFinger performs a finger:// exchange. The response is always plain
// text with no header line.
func fetchFinger(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError) {
	conn, dialErr := c.dial(ctx, req)
	if dialErr != nil {
		return nil, dialErr
	}

	if err := writeRequest(conn, req.host, req.url.FingerRequestLine()); err != nil {
		return nil, err
	}

	return c.newResponse(req, conn, "20", "text/plain", nil, "text/plain", nil), nil
}
