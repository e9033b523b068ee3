package handlers

import "io"

type OutputKind int

const (
	// A rendered HTML page.
	OutputPage = OutputKind(iota)
	// A live byte stream tagged with the upstream content type.
	OutputStream
	// A download with a suggested filename.
	OutputAttachment
)

// Output is the single result shape every handler renders to. Exactly
// one payload field is populated, selected by kind.
type Output struct {
	kind        OutputKind
	contentType string
	body        []byte
	stream      io.ReadCloser
	filename    string
}

func NewPageOutput(html []byte) *Output {
	return &Output{
		kind:        OutputPage,
		contentType: "text/html; charset=utf-8",
		body:        html,
	}
}

func NewStreamOutput(stream io.ReadCloser, contentType string) *Output {
	return &Output{
		kind:        OutputStream,
		contentType: contentType,
		stream:      stream,
	}
}

func NewAttachmentOutput(body []byte, contentType, filename string) *Output {
	return &Output{
		kind:        OutputAttachment,
		contentType: contentType,
		body:        body,
		filename:    filename,
	}
}

// NewTextOutput is a page-kind output carrying plain text instead of
// HTML, used for markdown-format conversion.
func NewTextOutput(text []byte, contentType string) *Output {
	return &Output{
		kind:        OutputPage,
		contentType: contentType,
		body:        text,
	}
}

func (o *Output) Kind() OutputKind { return o.kind }

func (o *Output) ContentType() string { return o.contentType }

func (o *Output) Body() []byte { return o.body }

func (o *Output) Stream() io.ReadCloser { return o.stream }

func (o *Output) Filename() string { return o.filename }
