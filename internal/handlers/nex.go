package handlers

import (
	"html/template"
	"strings"
	"unicode"

	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/scrolltext"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// nexHandler renders nex listings: "=>" lines become links, everything
// else stays preformatted.
type nexHandler struct {
	renderer *pages.Renderer
	resp     *protocols.Response
	text     string
}

func (reg *Registry) newNexHandler(resp *protocols.Response) (Handler, error) {
	text, err := readText(resp)
	if err != nil {
		return nil, err
	}
	return &nexHandler{renderer: reg.renderer, resp: resp, text: text}, nil
}

func (h *nexHandler) Render() (*Output, failure.ClassifiedError) {
	base := h.resp.URL()

	var blocks []scrolltext.Block
	var buffer []template.HTML
	flush := func() {
		if len(buffer) > 0 {
			blocks = append(blocks, scrolltext.Block{Type: scrolltext.BlockPre, Lines: buffer})
			buffer = nil
		}
	}

	for _, line := range strings.Split(strings.TrimRight(h.text, "\n"), "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "=>") {
			buffer = append(buffer, template.HTML(template.HTMLEscapeString(line)))
			continue
		}

		flush()
		target, label := splitLinkLine(line[2:])
		link := scrolltext.LinkRef{Text: label}
		if resolved, err := base.Join(target); err == nil {
			link.URL = resolved
		}
		blocks = append(blocks, scrolltext.Block{Type: scrolltext.BlockLink, Link: &link})
	}
	flush()

	data := pages.DocumentData{
		Page: pages.Page{
			DisplayURL: base.String(),
		},
		Blocks: blocks,
	}

	html, renderErr := h.renderer.Render(pages.RoleDocument, data)
	if renderErr != nil {
		return nil, renderErr
	}
	return NewPageOutput(html), nil
}

func splitLinkLine(line string) (target, label string) {
	line = strings.TrimSpace(line)
	if idx := strings.IndexFunc(line, unicode.IsSpace); idx >= 0 {
		return line[:idx], strings.TrimSpace(line[idx:])
	}
	return line, line
}
