package handlers

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/scrolltext"
	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

// gopherHandler renders gopher menus. Informational items accumulate as
// preformatted text; every other item type becomes a link.
type gopherHandler struct {
	renderer *pages.Renderer
	resp     *protocols.Response
	text     string
}

func (reg *Registry) newGopherHandler(resp *protocols.Response) (Handler, error) {
	text, err := readText(resp)
	if err != nil {
		return nil, err
	}
	return &gopherHandler{renderer: reg.renderer, resp: resp, text: text}, nil
}

func (h *gopherHandler) Render() (*Output, failure.ClassifiedError) {
	var blocks []scrolltext.Block
	var buffer []template.HTML
	flush := func() {
		if len(buffer) > 0 {
			blocks = append(blocks, scrolltext.Block{Type: scrolltext.BlockPre, Lines: buffer})
			buffer = nil
		}
	}

	for _, line := range strings.Split(h.text, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "." || line == "" {
			continue
		}

		item := parseMenuLine(line, h.resp.URL().Scheme())
		if item.link == nil {
			buffer = append(buffer, template.HTML(template.HTMLEscapeString(item.display)))
			continue
		}
		flush()
		blocks = append(blocks, scrolltext.Block{Type: scrolltext.BlockLink, Link: item.link})
	}
	flush()

	data := pages.DocumentData{
		Page: pages.Page{
			DisplayURL: h.resp.URL().String(),
		},
		Blocks: blocks,
	}

	html, renderErr := h.renderer.Render(pages.RoleDocument, data)
	if renderErr != nil {
		return nil, renderErr
	}
	return NewPageOutput(html), nil
}

type menuItem struct {
	display string
	link    *scrolltext.LinkRef
}

// parseMenuLine decodes one gopher menu line: a one-character item type,
// then display text, selector, host and port separated by tabs. Lines
// that do not look like menu items pass through as text.
func parseMenuLine(line, scheme string) menuItem {
	if len(line) < 1 {
		return menuItem{}
	}
	itemType := line[0]
	fields := strings.Split(line[1:], "\t")
	display := fields[0]

	switch {
	case itemType == 'i' || itemType == '3' || len(fields) < 4:
		return menuItem{display: display}

	case itemType == 'h' && strings.HasPrefix(fields[1], "URL:"):
		link := scrolltext.LinkRef{Text: display}
		if target, err := urlref.Parse(strings.TrimPrefix(fields[1], "URL:")); err == nil {
			link.URL = target
		}
		return menuItem{link: &link}

	default:
		selector := fields[1]
		host := fields[2]
		port := strings.TrimSpace(fields[3])

		u := url.URL{
			Scheme: scheme,
			Host:   host,
			Path:   fmt.Sprintf("/%c%s", itemType, selector),
		}
		if port != "" && port != "70" {
			u.Host = host + ":" + port
		}

		link := scrolltext.LinkRef{Text: display}
		if target, err := urlref.Parse(u.String()); err == nil {
			link.URL = target
		}
		return menuItem{link: &link}
	}
}
