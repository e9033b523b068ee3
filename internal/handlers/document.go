package handlers

import (
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/scrolltext"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

type dialect int

const (
	scrollDialect = dialect(iota)
	gemtextDialect
	spartanDialect
)

func (d dialect) features() scrolltext.Features {
	switch d {
	case gemtextDialect:
		return scrolltext.GemtextFeatures()
	case spartanDialect:
		return scrolltext.SpartanFeatures()
	default:
		return scrolltext.ScrollFeatures()
	}
}

// documentHandler renders scroll and gemtext documents through the
// transducer into the document (or abstract) page role.
type documentHandler struct {
	renderer *pages.Renderer
	resp     *protocols.Response
	text     string
	dialect  dialect
	role     pages.Role
}

func (reg *Registry) newDocumentHandler(
	resp *protocols.Response,
	d dialect,
	role pages.Role,
) (Handler, error) {
	if d == gemtextDialect && resp.URL().Scheme() == "spartan" {
		d = spartanDialect
	}

	text, err := readText(resp)
	if err != nil {
		return nil, err
	}
	return &documentHandler{
		renderer: reg.renderer,
		resp:     resp,
		text:     text,
		dialect:  d,
		role:     role,
	}, nil
}

func (h *documentHandler) Render() (*Output, failure.ClassifiedError) {
	transducer := scrolltext.NewTransducer(h.resp.URL(), h.dialect.features())
	blocks := transducer.Parse(h.text)

	favicon, title := scrolltext.DocumentTitle(blocks, h.resp.URL().Hostname())

	data := pages.DocumentData{
		Page: pages.Page{
			Title:      title,
			Favicon:    favicon,
			DisplayURL: h.resp.URL().String(),
		},
		Blocks: blocks,
		Meta:   documentMetaView(h.resp.DocMeta()),
	}

	html, renderErr := h.renderer.Render(h.role, data)
	if renderErr != nil {
		return nil, renderErr
	}

	if h.resp.Options().Format == "markdown" {
		markdown, err := htmltomarkdown.ConvertString(string(html))
		if err != nil {
			return nil, &HandlerError{
				Message: err.Error(),
				Cause:   ErrCauseConversion,
				Err:     err,
			}
		}
		return NewTextOutput([]byte(markdown), "text/markdown; charset=utf-8"), nil
	}

	return NewPageOutput(html), nil
}

func documentMetaView(meta *protocols.DocumentMetadata) *pages.DocumentMetaView {
	if meta == nil {
		return nil
	}
	return &pages.DocumentMetaView{
		Author:           meta.Author(),
		PublishDate:      meta.PublishDate(),
		ModificationDate: meta.ModificationDate(),
	}
}
