package handlers

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

/*
Responsibilities

- Resolve one handler per response, keyed on mimetype and scheme
- Construct handlers from full bodies, or from partial bodies plus the
  live connection when the size ceiling was hit
- Keep every handler behind the one Render contract

Resolution Policies

- Mimetype prefixes decide; never exact-match full MIME strings
- The metadata display option forces scroll rendering regardless of
  the reported mimetype
- Unknown types degrade to a download, never an error
*/

// Handler renders one response into one output.
type Handler interface {
	Render() (*Output, failure.ClassifiedError)
}

type Registry struct {
	renderer *pages.Renderer
	log      zerolog.Logger
}

func NewRegistry(renderer *pages.Renderer, log zerolog.Logger) Registry {
	return Registry{renderer: renderer, log: log}
}

// FromResponse resolves and constructs the handler for a response. Body
// consumption happens here: a transport.TooLargeError from the body read
// escapes unwrapped so the builder can fall back to streaming.
func (reg *Registry) FromResponse(resp *protocols.Response) (Handler, error) {
	mimetype := resp.Mimetype()
	scheme := resp.URL().Scheme()

	switch {
	case resp.Options().Meta:
		return reg.newDocumentHandler(resp, scrollDialect, pages.RoleAbstract)

	case mimetype == "":
		return reg.newDownloadHandler(resp)

	case hasPrefix(mimetype, "text/html", "text/xml", "application/xml", "application/pdf", "application/json"):
		return reg.newInlineHandler(resp)

	case hasPrefix(mimetype, "image/", "audio/", "video/"):
		return NewStreamHandler(resp), nil

	case hasPrefix(mimetype, "text/plain"):
		if scheme == "text" || scheme == "nex" {
			return reg.newNexHandler(resp)
		}
		return reg.newTextHandler(resp)

	case hasPrefix(mimetype, "text/gemini"):
		return reg.newDocumentHandler(resp, gemtextDialect, pages.RoleDocument)

	case hasPrefix(mimetype, "text/scroll"):
		return reg.newDocumentHandler(resp, scrollDialect, pages.RoleDocument)

	case hasPrefix(mimetype, "text/markdown"):
		return reg.newMarkdownHandler(resp)

	case hasPrefix(mimetype, "text/"):
		return reg.newTextHandler(resp)

	case hasPrefix(mimetype, "application/nex"):
		return reg.newNexHandler(resp)

	case hasPrefix(mimetype, "application/gopher-menu", "application/gopher+-menu"):
		return reg.newGopherHandler(resp)

	default:
		return reg.newDownloadHandler(resp)
	}
}

// FromPartialResponse constructs the streaming fallback used when a
// body read hit the size ceiling: the partial bytes replay first, the
// live connection supplies the rest.
func (reg *Registry) FromPartialResponse(resp *protocols.Response, partial []byte) (Handler, error) {
	return NewPartialStreamHandler(resp, partial)
}

func hasPrefix(mimetype string, prefixes ...string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(mimetype, prefix) {
			return true
		}
	}
	return false
}

// readText drains the body and decodes it with the response charset.
func readText(resp *protocols.Response) (string, error) {
	body, err := resp.GetBody()
	if err != nil {
		return "", err
	}
	return decodeText(body, resp.Charset()), nil
}
