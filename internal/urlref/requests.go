package urlref

import (
	"fmt"
	"net/url"
	"strings"
)

// Gopher URLs pack an item type, a selector, an optional search string and
// an optional gopher+ field into the path: /<type><selector>[%09search[%09plus]]

// GopherItemType returns the single-character gopher item type, '1' (menu)
// when the path carries none.
func (r *URLReference) GopherItemType() byte {
	p := strings.TrimPrefix(r.u.EscapedPath(), "/")
	if p == "" {
		return '1'
	}
	return p[0]
}

// GopherSelector returns the decoded selector portion of the path.
func (r *URLReference) GopherSelector() string {
	selector, _, _ := r.gopherParts()
	return selector
}

// GopherSearch returns the decoded search string, empty if absent.
func (r *URLReference) GopherSearch() string {
	_, search, _ := r.gopherParts()
	return search
}

// GopherPlusString returns the decoded gopher+ field, empty if absent.
func (r *URLReference) GopherPlusString() string {
	_, _, plus := r.gopherParts()
	return plus
}

func (r *URLReference) gopherParts() (selector, search, plus string) {
	p := strings.TrimPrefix(r.u.EscapedPath(), "/")
	if len(p) < 2 {
		return "", "", ""
	}
	decoded, err := url.PathUnescape(p[1:])
	if err != nil {
		decoded = p[1:]
	}
	parts := strings.SplitN(decoded, "\t", 3)
	selector = parts[0]
	if len(parts) > 1 {
		search = parts[1]
	}
	if len(parts) > 2 {
		plus = parts[2]
	}
	return selector, search, plus
}

// FingerRequest returns the finger query exactly as it appears in the
// path, undecoded. Use the wire line for the decoded form.
func (r *URLReference) FingerRequest() string {
	return strings.TrimPrefix(r.u.EscapedPath(), "/")
}

// GopherRequestLine encodes the gopher wire request. A "?" gopher+ field
// is sent as "!" (fetch attributes); an empty search string is elided.
func (r *URLReference) GopherRequestLine() []byte {
	selector, search, plus := r.gopherParts()

	parts := []string{selector}
	if plus != "" {
		if plus == "?" {
			plus = "!"
		}
		if search != "" {
			parts = append(parts, search)
		}
		parts = append(parts, plus)
	} else if search != "" {
		parts = append(parts, search)
	}

	return []byte(strings.Join(parts, "\t") + "\r\n")
}

// GeminiRequestLine encodes the gemini wire request: the full URL.
func (r *URLReference) GeminiRequestLine() []byte {
	return []byte(r.String() + "\r\n")
}

// ScrollRequestLine encodes the scroll wire request. The language list is
// comma-joined; requesting document metadata prefixes it with "+".
func (r *URLReference) ScrollRequestLine(meta bool, languages []string) []byte {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	marker := ""
	if meta {
		marker = "+"
	}
	return []byte(fmt.Sprintf("%s %s%s\r\n", r.String(), marker, strings.Join(languages, ",")))
}

// SpartanRequest encodes the spartan wire request. The query string is
// decoded and sent as the request body, its length on the request line.
func (r *URLReference) SpartanRequest() []byte {
	data := ""
	if r.u.RawQuery != "" {
		if decoded, err := url.QueryUnescape(r.u.RawQuery); err == nil {
			data = decoded
		} else {
			data = r.u.RawQuery
		}
	}

	p := r.u.EscapedPath()
	if p == "" {
		p = "/"
	}

	line := fmt.Sprintf("%s %s %d\r\n", r.u.Hostname(), p, len(data))
	return append([]byte(line), data...)
}

// FingerRequestLine encodes the finger wire request (decoded query).
func (r *URLReference) FingerRequestLine() []byte {
	request := r.FingerRequest()
	if decoded, err := url.PathUnescape(request); err == nil {
		request = decoded
	}
	return []byte(request + "\r\n")
}

// NexRequestLine encodes the nex wire request: the selector path.
func (r *URLReference) NexRequestLine() []byte {
	p := r.u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	return []byte(p + "\r\n")
}

// TxtRequestLine encodes the text protocol wire request: the full URL.
func (r *URLReference) TxtRequestLine() []byte {
	return []byte(r.String() + "\r\n")
}
