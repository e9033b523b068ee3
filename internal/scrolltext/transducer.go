package scrolltext

import (
	"fmt"
	"html/template"
	"strings"
	"unicode"

	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
)

/*
Responsibilities

- Turn one scroll/gemtext document into an ordered block sequence
- Track block state across lines so contiguous list/quote/paragraph
  lines accumulate into a single block
- Number headings with hierarchical outline anchors
- Attach quoted-link lines to their blockquote as citations

Transducer Semantics

- One pass, line by line, trailing whitespace stripped per line
- A flush is a no-op when the incoming block type matches the active one
- Counters and buffers reset at the start of every Parse
*/

type Transducer struct {
	base     *urlref.URLReference
	features Features

	blocks          []Block
	lineBuffer      []template.HTML
	activeType      BlockType
	pendingCitation *LinkRef
	h2, h3, h4      int
}

func NewTransducer(base *urlref.URLReference, features Features) *Transducer {
	return &Transducer{base: base, features: features}
}

// Parse runs the transducer over the whole document and returns the
// materialized block sequence. The transducer resets first, so a single
// instance can parse multiple documents in turn.
func (t *Transducer) Parse(text string) []Block {
	t.blocks = nil
	t.lineBuffer = nil
	t.activeType = ""
	t.pendingCitation = nil
	t.h2, t.h3, t.h4 = 0, 0, 0

	for _, line := range strings.Split(text, "\n") {
		t.step(strings.TrimRight(line, " \t\r"))
	}
	t.flush("")

	return t.blocks
}

func (t *Transducer) step(line string) {
	switch {
	case strings.HasPrefix(line, "```"):
		if t.activeType == BlockPre {
			t.flush("")
		} else {
			t.flush(BlockPre)
		}

	case t.activeType == BlockPre:
		t.lineBuffer = append(t.lineBuffer, template.HTML(template.HTMLEscapeString(line)))

	case strings.HasPrefix(line, "=>"):
		link := t.parseLinkLine(line[2:])
		if t.features.Citations && t.activeType == BlockQuote {
			// An attributed quote: the link becomes the citation
			// instead of a block of its own.
			if link.Prefix == "" {
				link.Prefix = "— "
			}
			t.pendingCitation = &link
			return
		}
		t.flush("")
		t.blocks = append(t.blocks, Block{Type: BlockLink, Link: &link})

	case t.features.Prompts && strings.HasPrefix(line, "=:"):
		link := t.parseLinkLine(line[2:])
		t.flush("")
		t.blocks = append(t.blocks, Block{Type: BlockPrompt, Link: &link})

	case strings.HasPrefix(line, "#"):
		level := headingLevel(line)
		if level > t.features.MaxHeadingLevel {
			t.bufferLine(BlockParagraph, line)
			return
		}
		t.flush("")
		text := strings.TrimLeft(line[level:], " \t")
		block := Block{Type: BlockHeading, Level: level, Text: text}
		if t.features.Anchors && level >= 2 && level <= 4 {
			block.Anchor = t.bumpAnchor(level)
		}
		t.blocks = append(t.blocks, block)

	case strings.HasPrefix(line, "* "):
		t.bufferLine(BlockList, strings.TrimLeft(line[1:], " \t"))

	case line == ">" || strings.HasPrefix(line, "> "):
		text := ""
		if len(line) > 2 {
			text = line[2:]
		}
		t.bufferLine(BlockQuote, text)

	case line == "---":
		t.flush("")
		t.blocks = append(t.blocks, Block{Type: BlockRule})

	default:
		t.bufferLine(BlockParagraph, line)
	}
}

func (t *Transducer) bufferLine(blockType BlockType, line string) {
	t.flush(blockType)
	if t.features.InlineMarkup {
		t.lineBuffer = append(t.lineBuffer, renderInline(line))
	} else {
		t.lineBuffer = append(t.lineBuffer, template.HTML(template.HTMLEscapeString(line)))
	}
}

// flush closes the active block. It is a no-op when the new type matches
// the active one, which is what lets contiguous lines of one type share
// a block. An empty buffer never emits.
func (t *Transducer) flush(newType BlockType) {
	if t.activeType == newType {
		return
	}

	if len(t.lineBuffer) > 0 && t.activeType != "" {
		block := Block{Type: t.activeType, Lines: t.lineBuffer}
		if t.activeType == BlockQuote {
			block.Citation = t.pendingCitation
		}
		t.blocks = append(t.blocks, block)
	}

	t.lineBuffer = nil
	t.pendingCitation = nil
	t.activeType = newType
}

// bumpAnchor advances the outline counters for a heading at the given
// level and returns its anchor. A counter bump resets the deeper ones; a
// deep heading with no numbered ancestor auto-bumps the missing levels
// so the anchor is always well formed.
func (t *Transducer) bumpAnchor(level int) string {
	switch level {
	case 2:
		t.h2++
		t.h3, t.h4 = 0, 0
		return fmt.Sprintf("%d", t.h2)
	case 3:
		if t.h2 == 0 {
			t.h2++
		}
		t.h3++
		t.h4 = 0
		return fmt.Sprintf("%d.%d", t.h2, t.h3)
	default:
		if t.h3 == 0 {
			if t.h2 == 0 {
				t.h2++
			}
			t.h3++
		}
		t.h4++
		return fmt.Sprintf("%d.%d.%d", t.h2, t.h3, t.h4)
	}
}

func headingLevel(line string) int {
	level := 0
	for level < len(line) && line[level] == '#' && level < 5 {
		level++
	}
	return level
}

// parseLinkLine splits a link line body into target, label and prefix.
// With no separate label the target doubles as the label; a leading
// emoji on the label is split off as the prefix.
func (t *Transducer) parseLinkLine(line string) LinkRef {
	line = strings.TrimSpace(line)

	var target, text, prefix string
	if idx := strings.IndexFunc(line, unicode.IsSpace); idx < 0 {
		target, text = line, line
	} else {
		target = line[:idx]
		text = strings.TrimSpace(line[idx:])
		if emoji, rest := SplitEmoji(text); emoji != "" {
			prefix = emoji + " "
			text = rest
		}
	}

	ref := LinkRef{Text: text, Prefix: prefix}
	if resolved, err := t.base.Join(target); err == nil {
		ref.URL = resolved
	}
	return ref
}

// DocumentTitle derives a page title from the block sequence: the first
// block, when it is a heading of level 1-3, names the page, with any
// leading emoji split off for use as the favicon.
func DocumentTitle(blocks []Block, host string) (favicon, title string) {
	if len(blocks) == 0 {
		return "", ""
	}
	first := blocks[0]
	if first.Type != BlockHeading || first.Level > 3 {
		return "", ""
	}

	favicon, title = SplitEmoji(first.Text)
	if title == "" {
		title = first.Text
	}
	return favicon, fmt.Sprintf("%s — %s", title, host)
}
