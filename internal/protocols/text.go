package protocols

import (
	"context"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

var txtStatusCodes = map[string]string{
	"20": "OK",
	"30": "REDIRECT",
	"40": "NOK",
}

// fetchTxt performs a text:// exchange (the "text protocol"). The wire
// trade mirrors gemini over plaintext with a reduced status table.
func fetchTxt(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError) {
	conn, dialErr := c.dial(ctx, req)
	if dialErr != nil {
		return nil, dialErr
	}

	if err := writeRequest(conn, req.host, req.url.TxtRequestLine()); err != nil {
		return nil, err
	}

	status, meta, headerErr := readHeader(conn, req.host)
	if headerErr != nil {
		return nil, headerErr
	}

	return c.newResponse(req, conn, status, meta, txtStatusCodes, "text/plain", nil), nil
}
