package scrolltext

import (
	"html/template"

	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
)

type BlockType string

const (
	BlockHeading   = BlockType("heading")
	BlockParagraph = BlockType("p")
	BlockList      = BlockType("ul")
	BlockQuote     = BlockType("blockquote")
	BlockPre       = BlockType("pre")
	BlockLink      = BlockType("link")
	BlockPrompt    = BlockType("prompt")
	BlockRule      = BlockType("hr")
)

// LinkRef is one parsed link line: the resolved target plus its display
// label and an optional emoji prefix (with a trailing space when set).
type LinkRef struct {
	// URL is nil when the link target could not be parsed; such links
	// render as bare text.
	URL    *urlref.URLReference
	Text   string
	Prefix string
}

// Block is one structural unit of a parsed document. Exactly one of the
// field groups is populated, selected by Type. Blocks are never mutated
// once emitted.
type Block struct {
	Type BlockType

	// Heading fields. Anchor is set for levels 2 through 4 only.
	Level  int
	Text   string
	Anchor string

	// Buffered lines for p/ul/blockquote (inline markup applied) and
	// pre (escaped verbatim).
	Lines []template.HTML

	// Link and prompt blocks.
	Link *LinkRef

	// Attributed quote source, blockquote only.
	Citation *LinkRef
}

// Features selects the grammar subset a document dialect supports. The
// scroll dialect enables everything; gemtext disables the extensions it
// predates.
type Features struct {
	// Highest recognized heading level; lower levels parse as paragraphs.
	MaxHeadingLevel int
	// Hierarchical outline anchors on heading levels 2-4.
	Anchors bool
	// Link lines inside a blockquote become the quote's citation.
	Citations bool
	// Escape-then-markup pass over paragraph, list and quote lines.
	InlineMarkup bool
	// "=:" input prompt lines.
	Prompts bool
}

// ScrollFeatures is the full grammar.
func ScrollFeatures() Features {
	return Features{
		MaxHeadingLevel: 5,
		Anchors:         true,
		Citations:       true,
		InlineMarkup:    true,
		Prompts:         true,
	}
}

// GemtextFeatures is the gemtext subset: three heading levels, no
// anchors, citations, prompts or inline markup.
func GemtextFeatures() Features {
	return Features{
		MaxHeadingLevel: 3,
	}
}

// SpartanFeatures is gemtext plus the "=:" prompt line.
func SpartanFeatures() Features {
	f := GemtextFeatures()
	f.Prompts = true
	return f
}
