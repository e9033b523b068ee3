package gateway

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rohmanhakim/scroll-gateway/internal/handlers"
	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/transport"
)

/*
 Builder turns one fetched Response into one Result.

 Dispatch guarantees:
 - Conditions are evaluated in a fixed precedence order; the first match
   decides the result shape.
 - Certificate modes and raw mode are caller requests and outrank the
   upstream status line.
 - Status dispatch branches on status class (first digit) only; exact
   codes appear solely in human-readable display strings.
 - Build never returns an error and never panics outward: every failure
   path, including a failing template render, degrades to a gateway
   error page.
*/
type Builder struct {
	registry handlers.Registry
	renderer *pages.Renderer
	log      zerolog.Logger
}

func NewBuilder(registry handlers.Registry, renderer *pages.Renderer, log zerolog.Logger) Builder {
	return Builder{
		registry: registry,
		renderer: renderer,
		log:      log,
	}
}

func (b *Builder) Build(resp *protocols.Response) *Result {
	options := resp.Options()

	switch {
	case options.RawCert:
		return b.buildRawCert(resp)
	case options.Cert:
		return b.buildCertContext(resp)
	case options.Raw:
		return b.buildStream(resp)
	}

	switch resp.StatusClass() {
	case '1':
		return b.buildQuery(resp)
	case '2':
		return b.buildContent(resp)
	case '3':
		return b.buildRedirect(resp)
	case '4', '5':
		return b.buildUpstreamError(resp)
	case '6':
		return b.buildCertRequired(resp)
	default:
		return b.buildGatewayError(resp.URL().String(),
			"unrecognized response status: "+resp.Status())
	}
}

// buildRawCert emits the peer's leaf certificate as a DER download.
func (b *Builder) buildRawCert(resp *protocols.Response) *Result {
	tls := resp.TLS()
	if tls == nil || len(tls.PeerCert()) == 0 {
		return b.buildGatewayError(resp.URL().String(),
			"no TLS certificate presented by "+resp.URL().Hostname())
	}
	return newAttachmentResult(
		"application/x-x509-ca-cert",
		resp.URL().Hostname()+".cer",
		tls.PeerCert(),
	)
}

// buildCertContext renders the TLS session summary page. The body is
// drained first so a clean shutdown can mark the close-notify flag.
func (b *Builder) buildCertContext(resp *protocols.Response) *Result {
	tls := resp.TLS()
	if tls == nil {
		return b.buildGatewayError(resp.URL().String(),
			resp.URL().Scheme()+" connections carry no TLS session")
	}

	if _, err := resp.GetBody(); err != nil {
		b.log.Debug().Err(err).Msg("body drain for certificate page stopped early")
	}

	data := pages.TLSContextData{
		Page: pages.Page{
			Title:      "TLS Session — " + resp.URL().Hostname(),
			DisplayURL: resp.URL().String(),
		},
		Version:             tls.Version(),
		Cipher:              tls.Cipher(),
		CloseNotifyReceived: tls.CloseNotifyReceived(),
	}
	if der := tls.PeerCert(); len(der) > 0 {
		cert, err := pages.DescribeCert(der)
		if err != nil {
			return b.buildGatewayError(resp.URL().String(),
				"unable to parse peer certificate: "+err.Error())
		}
		data.Cert = cert
	}

	return b.renderPage(pages.RoleTLSContext, data, resp.URL().String(), http.StatusOK)
}

func (b *Builder) buildStream(resp *protocols.Response) *Result {
	handler := handlers.NewStreamHandler(resp)
	output, err := handler.Render()
	if err != nil {
		return b.buildGatewayError(resp.URL().String(), err.Error())
	}
	return b.fromOutput(resp, output)
}

func (b *Builder) buildQuery(resp *protocols.Response) *Result {
	data := pages.QueryData{
		Page: pages.Page{
			Title:      "Input Required — " + resp.URL().Hostname(),
			DisplayURL: resp.URL().String(),
		},
		Prompt: resp.Meta(),
		Secret: resp.Status() == "11",
		Action: resp.URL().ProxyURL(b.renderer.ProxyBase()),
	}
	return b.renderPage(pages.RoleQuery, data, resp.URL().String(), http.StatusOK)
}

// buildContent hands a success response to the mimetype registry. When
// the body outgrows the size ceiling the same response is replayed as a
// stream seeded with the bytes already read; nothing is re-fetched.
func (b *Builder) buildContent(resp *protocols.Response) *Result {
	handler, err := b.registry.FromResponse(resp)
	if err != nil {
		var tooLarge *transport.TooLargeError
		if errors.As(err, &tooLarge) {
			return b.buildPartialStream(resp, tooLarge.Partial)
		}
		return b.buildGatewayError(resp.URL().String(), err.Error())
	}

	output, renderErr := handler.Render()
	if renderErr != nil {
		return b.buildGatewayError(resp.URL().String(), renderErr.Error())
	}
	return b.fromOutput(resp, output)
}

func (b *Builder) buildPartialStream(resp *protocols.Response, partial []byte) *Result {
	b.log.Info().
		Str("url", resp.URL().String()).
		Int("partial_bytes", len(partial)).
		Msg("body exceeds size ceiling, switching to streaming")

	handler, err := b.registry.FromPartialResponse(resp, partial)
	if err != nil {
		return b.buildGatewayError(resp.URL().String(), err.Error())
	}
	output, renderErr := handler.Render()
	if renderErr != nil {
		return b.buildGatewayError(resp.URL().String(), renderErr.Error())
	}
	return b.fromOutput(resp, output)
}

func (b *Builder) buildRedirect(resp *protocols.Response) *Result {
	target, err := resp.URL().Join(resp.Meta())
	if err != nil {
		return b.buildGatewayError(resp.URL().String(),
			"malformed redirect target: "+resp.Meta())
	}
	return newRedirectResult(target.ProxyURL(b.renderer.ProxyBase()))
}

func (b *Builder) buildUpstreamError(resp *protocols.Response) *Result {
	data := pages.ProxyErrorData{
		Page: pages.Page{
			Title:      "Error — " + resp.URL().Hostname(),
			DisplayURL: resp.URL().String(),
		},
		Error:   resp.StatusDisplay(),
		Message: resp.Meta(),
	}
	return b.renderPage(pages.RoleProxyError, data, resp.URL().String(), http.StatusOK)
}

func (b *Builder) buildCertRequired(resp *protocols.Response) *Result {
	data := pages.CertRequiredData{
		Page: pages.Page{
			Title:      "Certificate Required — " + resp.URL().Hostname(),
			DisplayURL: resp.URL().String(),
		},
	}
	return b.renderPage(pages.RoleCertRequired, data, resp.URL().String(), http.StatusOK)
}

func (b *Builder) buildGatewayError(displayURL string, message string) *Result {
	data := pages.GatewayErrorData{
		Page: pages.Page{
			Title:      "Gateway Error",
			DisplayURL: displayURL,
		},
		Error: message,
	}
	html, err := b.renderer.Render(pages.RoleGatewayError, data)
	if err != nil {
		// Last resort. The template set is embedded, so this only
		// happens when a data shape regresses.
		b.log.Error().Err(err).Msg("gateway error page failed to render")
		return newPageResult(http.StatusInternalServerError,
			"text/html; charset=utf-8",
			[]byte("<!doctype html><title>Gateway Error</title><h1>Gateway Error</h1>"))
	}
	return newPageResult(http.StatusInternalServerError, "text/html; charset=utf-8", html)
}

func (b *Builder) renderPage(role pages.Role, data any, displayURL string, httpStatus int) *Result {
	html, err := b.renderer.Render(role, data)
	if err != nil {
		b.log.Error().Err(err).Str("role", string(role)).Msg("page render failed")
		return b.buildGatewayError(displayURL, "page render failed")
	}
	return newPageResult(httpStatus, "text/html; charset=utf-8", html)
}

func (b *Builder) fromOutput(resp *protocols.Response, output *handlers.Output) *Result {
	switch output.Kind() {
	case handlers.OutputStream:
		return newStreamResult(output.ContentType(), output.Stream())
	case handlers.OutputAttachment:
		return newAttachmentResult(output.ContentType(), output.Filename(), output.Body())
	default:
		return newPageResult(http.StatusOK, output.ContentType(), output.Body())
	}
}
