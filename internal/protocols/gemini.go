package protocols

import (
	"context"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

var geminiStatusCodes = map[string]string{
	"10": "INPUT",
	"11": "SENSITIVE INPUT",
	"20": "SUCCESS",
	"30": "REDIRECT - TEMPORARY",
	"31": "REDIRECT - PERMANENT",
	"40": "TEMPORARY FAILURE",
	"41": "SERVER UNAVAILABLE",
	"42": "CGI ERROR",
	"43": "PROXY ERROR",
	"44": "SLOW DOWN",
	"50": "PERMANENT FAILURE",
	"51": "NOT FOUND",
	"52": "GONE",
	"53": "PROXY REQUEST REFUSED",
	"59": "BAD REQUEST",
	"60": "CLIENT CERTIFICATE REQUIRED",
	"61": "CERTIFICATE NOT AUTHORISED",
	"62": "CERTIFICATE NOT VALID",
}

// fetchGemini performs a gemini:// exchange. An empty meta on a success
// response defaults to text/gemini per the protocol.
func fetchGemini(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError) {
	conn, dialErr := c.dial(ctx, req)
	if dialErr != nil {
		return nil, dialErr
	}

	if err := writeRequest(conn, req.host, req.url.GeminiRequestLine()); err != nil {
		return nil, err
	}

	status, meta, headerErr := readHeader(conn, req.host)
	if headerErr != nil {
		return nil, headerErr
	}

	return c.newResponse(req, conn, status, meta, geminiStatusCodes, "text/gemini", nil), nil
}
