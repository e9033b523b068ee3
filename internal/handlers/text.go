package handlers

import (
	"html/template"
	"strings"

	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/scrolltext"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// textHandler renders plain text as one preformatted block.
type textHandler struct {
	renderer *pages.Renderer
	resp     *protocols.Response
	text     string
}

func (reg *Registry) newTextHandler(resp *protocols.Response) (Handler, error) {
	text, err := readText(resp)
	if err != nil {
		return nil, err
	}
	return &textHandler{renderer: reg.renderer, resp: resp, text: text}, nil
}

func (h *textHandler) Render() (*Output, failure.ClassifiedError) {
	lines := strings.Split(strings.TrimRight(h.text, "\n"), "\n")
	escaped := make([]template.HTML, len(lines))
	for i, line := range lines {
		escaped[i] = template.HTML(template.HTMLEscapeString(strings.TrimRight(line, "\r")))
	}

	data := pages.DocumentData{
		Page: pages.Page{
			DisplayURL: h.resp.URL().String(),
		},
		Blocks: []scrolltext.Block{
			{Type: scrolltext.BlockPre, Lines: escaped},
		},
	}

	html, renderErr := h.renderer.Render(pages.RoleDocument, data)
	if renderErr != nil {
		return nil, renderErr
	}
	return NewPageOutput(html), nil
}
