package pages

import (
	"html/template"
	"time"

	"github.com/rohmanhakim/scroll-gateway/internal/scrolltext"
)

// Role names one renderable page shape.
type Role string

const (
	RoleDocument     = Role("document")
	RoleAbstract     = Role("abstract")
	RoleQuery        = Role("query")
	RoleTLSContext   = Role("tls-context")
	RoleProxyError   = Role("proxy-error")
	RoleGatewayError = Role("gateway-error")
	RoleCertRequired = Role("cert-required")
	RoleHome         = Role("home")
)

// Page carries the chrome every rendered page shares: title, optional
// emoji favicon, and the remote address being viewed.
type Page struct {
	Title      string
	Favicon    string
	DisplayURL string
}

// DocumentMetaView is the displayable form of scroll document metadata.
type DocumentMetaView struct {
	Author           string
	PublishDate      *time.Time
	ModificationDate *time.Time
}

type DocumentData struct {
	Page
	Blocks []scrolltext.Block
	Meta   *DocumentMetaView
	// HTML replaces Blocks for bodies rendered by an external converter
	// (markdown). Already sanitized by its producer.
	HTML template.HTML
}

type QueryData struct {
	Page
	Prompt string
	Secret bool
	// Action is the gateway URL the prompt submits back to.
	Action string
}

type TLSContextData struct {
	Page
	Cert                *CertDescription
	Version             string
	Cipher              string
	CloseNotifyReceived bool
}

type ProxyErrorData struct {
	Page
	Error   string
	Message string
}

type GatewayErrorData struct {
	Page
	Error string
}

type CertRequiredData struct {
	Page
}

type HomeData struct {
	Page
}
