package handlers

import (
	"html/template"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// markdownHandler renders text/markdown bodies into the document page.
type markdownHandler struct {
	renderer *pages.Renderer
	resp     *protocols.Response
	text     string
}

func (reg *Registry) newMarkdownHandler(resp *protocols.Response) (Handler, error) {
	text, err := readText(resp)
	if err != nil {
		return nil, err
	}
	return &markdownHandler{renderer: reg.renderer, resp: resp, text: text}, nil
}

func (h *markdownHandler) Render() (*Output, failure.ClassifiedError) {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	opts := mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML}
	rendered := markdown.ToHTML([]byte(h.text), p, mdhtml.NewRenderer(opts))

	data := pages.DocumentData{
		Page: pages.Page{
			DisplayURL: h.resp.URL().String(),
		},
		HTML: template.HTML(rendered),
	}

	html, renderErr := h.renderer.Render(pages.RoleDocument, data)
	if renderErr != nil {
		return nil, renderErr
	}
	return NewPageOutput(html), nil
}
