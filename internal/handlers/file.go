package handlers

import (
	"path"

	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// inlineHandler serves the body verbatim with its reported content type,
// for types browsers display natively (HTML, XML, PDF, JSON).
type inlineHandler struct {
	resp *protocols.Response
	body []byte
}

func (reg *Registry) newInlineHandler(resp *protocols.Response) (Handler, error) {
	body, err := resp.GetBody()
	if err != nil {
		return nil, err
	}
	return &inlineHandler{resp: resp, body: body}, nil
}

func (h *inlineHandler) Render() (*Output, failure.ClassifiedError) {
	return NewTextOutput(h.body, contentTypeFor(h.resp)), nil
}

// downloadHandler serves unrecognized types as attachments.
type downloadHandler struct {
	resp *protocols.Response
	body []byte
}

func (reg *Registry) newDownloadHandler(resp *protocols.Response) (Handler, error) {
	body, err := resp.GetBody()
	if err != nil {
		return nil, err
	}
	return &downloadHandler{resp: resp, body: body}, nil
}

func (h *downloadHandler) Render() (*Output, failure.ClassifiedError) {
	mimetype := h.resp.Mimetype()
	if mimetype == "" {
		mimetype = "application/octet-stream"
	}
	return NewAttachmentOutput(h.body, mimetype, downloadFilename(h.resp)), nil
}

func downloadFilename(resp *protocols.Response) string {
	name := path.Base(resp.URL().Path())
	if name == "" || name == "/" || name == "." {
		name = resp.URL().Hostname() + ".bin"
	}
	return name
}

// contentTypeFor tags text types with the response charset.
func contentTypeFor(resp *protocols.Response) string {
	mimetype := resp.Mimetype()
	if mimetype == "" {
		return "application/octet-stream"
	}
	if charset := resp.Charset(); charset != "" && hasPrefix(mimetype, "text/") {
		return mimetype + "; charset=" + charset
	}
	return mimetype
}
