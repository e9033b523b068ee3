package protocols

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// scrollStatusCodes maps scroll wire statuses to display strings. The 2x
// range encodes the document's topical classification.
var scrollStatusCodes = map[string]string{
	"10": "INPUT",
	"11": "SENSITIVE INPUT",
	"20": "General Science, Knowledge, Documentation, News",
	"21": "Philosophy, Psychology",
	"22": "Religion, Theology, Scripture",
	"23": "Social Sciences, Military",
	"24": "Default, Unclassified",
	"25": "Mathmatics, Natural Science",
	"26": "Applied Science, Medicine, General Technology, Engineering",
	"27": "Arts, Entertainment, Sport, Fitness",
	"28": "Linguistics, Literature, Personal Blogs, Reviews",
	"29": "Geography, History, Biography",
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

// fetchScroll performs a scroll:// exchange. Successful responses carry
// three extra header lines before the body: author, publish date and
// modification date.
func fetchScroll(ctx context.Context, c *Client, req *Request) (*Response, failure.ClassifiedError) {
	conn, dialErr := c.dial(ctx, req)
	if dialErr != nil {
		return nil, dialErr
	}

	languages := []string{"en"}
	if lang := req.options.Lang; lang != "" && lang != "en" {
		languages = append([]string{lang}, languages...)
	}

	if err := writeRequest(conn, req.host, req.url.ScrollRequestLine(req.options.Meta, languages)); err != nil {
		return nil, err
	}

	status, meta, headerErr := readHeader(conn, req.host)
	if headerErr != nil {
		return nil, headerErr
	}

	var docMeta *DocumentMetadata
	if strings.HasPrefix(status, "2") {
		var lines [3]string
		for i := range lines {
			line, err := conn.ReadLine()
			if err != nil {
				// A body may end inside the metadata lines; the
				// missing fields are simply absent.
				if errors.Is(err, io.EOF) {
					break
				}
				conn.Close()
				return nil, &ProxyError{
					Host:    req.host,
					Message: "truncated document metadata header",
					Cause:   ErrCauseMalformedHeader,
					Err:     err,
				}
			}
			lines[i] = line
		}
		docMeta = NewDocumentMetadata(
			strings.TrimRight(lines[0], " \t"),
			parseDocumentDate(lines[1]),
			parseDocumentDate(lines[2]),
		)
	}

	return c.newResponse(req, conn, status, meta, scrollStatusCodes, "text/scroll", docMeta), nil
}

// parseDocumentDate parses an ISO 8601 document date. A trailing "Z" in
// place of a numeric offset is accepted. Unparseable dates are dropped
// rather than failing the response.
func parseDocumentDate(line string) *time.Time {
	dateStr := strings.TrimRight(line, " \t")
	if dateStr == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return &t
		}
	}
	if strings.HasSuffix(dateStr, "Z") {
		if t, err := time.Parse("2006-01-02T15:04:05", strings.TrimSuffix(dateStr, "Z")); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
