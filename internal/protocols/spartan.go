package protocols

import (
	"context"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// Spartan statuses are single digits; only the class is transmitted.
var spartanStatusCodes = map[string]string{
	"2": "SUCCESS",
	"3": "REDIRECT",
	"4": "CLIENT ERROR",
	"5": "SERVER ERROR",
}

// fetchSpartan performs a spartan:// exchange. The URL query string is
// percent-decoded and uploaded as the request body.
func fetchSpartan(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError) {
	conn, dialErr := c.dial(ctx, req)
	if dialErr != nil {
		return nil, dialErr
	}

	if err := writeRequest(conn, req.host, req.url.SpartanRequest()); err != nil {
		return nil, err
	}

	status, meta, headerErr := readHeader(conn, req.host)
	if headerErr != nil {
		return nil, headerErr
	}

	return c.newResponse(req, conn, status, meta, spartanStatusCodes, "text/gemini", nil), nil
}
