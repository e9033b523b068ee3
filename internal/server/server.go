package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rohmanhakim/scroll-gateway/internal/gateway"
	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
	"github.com/rohmanhakim/scroll-gateway/pkg/hashutil"
)

// Query parameters consumed by the gateway itself. Everything else in
// the query string belongs to the proxied URL.
var gatewayParams = map[string]struct{}{
	"raw":     {},
	"raw_crt": {},
	"crt":     {},
	"meta":    {},
	"format":  {},
	"charset": {},
	"lang":    {},
	"q":       {},
}

/*
 Server is the HTTP face of the gateway.

 Responsibilities:
 - Map /<scheme>/<host>/<path> routes onto proxy requests
 - Translate gateway query parameters into fetch options
 - Carry the remaining query string through to the proxied URL untouched
 - Map builder Results onto HTTP responses (pages, streams, downloads,
   redirects)
*/
type Server struct {
	echo     *echo.Echo
	service  *gateway.Service
	renderer *pages.Renderer
	log      zerolog.Logger
}

func New(service *gateway.Service, renderer *pages.Renderer, log zerolog.Logger) Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := Server{
		echo:     e,
		service:  service,
		renderer: renderer,
		log:      log,
	}

	e.Use(s.requestLogger)
	e.GET("/", s.handleHome)
	e.GET("/goto", s.handleGoto)
	e.GET("/:scheme/:host", s.handleProxy)
	e.GET("/:scheme/:host/*", s.handleProxy)

	return s
}

func (s *Server) Start(address string) error {
	s.log.Info().Str("address", address).Msg("gateway listening")
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.log.Info().
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Int("status", c.Response().Status).
			Dur("duration", time.Since(start)).
			Msg("request served")
		return err
	}
}

func (s *Server) handleHome(c echo.Context) error {
	data := pages.HomeData{
		Page: pages.Page{Title: "Scroll Gateway"},
	}
	html, err := s.renderer.Render(pages.RoleHome, data)
	if err != nil {
		return s.gatewayErrorPage(c, http.StatusInternalServerError, "home page failed to render")
	}
	return s.pageResponse(c, http.StatusOK, "text/html; charset=utf-8", html)
}

// handleGoto turns the address form submission into the canonical proxy
// location for that URL.
func (s *Server) handleGoto(c echo.Context) error {
	address := strings.TrimSpace(c.QueryParam("url"))
	if address == "" {
		return c.Redirect(http.StatusFound, "/")
	}
	if !strings.Contains(address, "://") {
		address = "gemini://" + address
	}

	target, err := urlref.Parse(address)
	if err != nil || target.Hostname() == "" {
		return s.gatewayErrorPage(c, http.StatusBadRequest, "not a usable URL: "+address)
	}
	return c.Redirect(http.StatusFound, target.ProxyURL(s.renderer.ProxyBase()))
}

func (s *Server) handleProxy(c echo.Context) error {
	scheme := c.Param("scheme")
	host := c.Param("host")

	rawQuery := c.Request().URL.RawQuery

	// A prompt submission comes back as ?q=...; the answer becomes the
	// proxied URL's query string and the browser lands on its canonical
	// proxy location.
	if q := c.QueryParam("q"); q != "" {
		// QueryEscape with %20 for spaces, matching what the small-web
		// servers expect in their query strings.
		escaped := strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
		target, err := urlref.Parse(scheme + "://" + host + proxiedPath(c, scheme, host) + "?" + escaped)
		if err != nil {
			return s.gatewayErrorPage(c, http.StatusBadRequest, "not a usable URL")
		}
		return c.Redirect(http.StatusSeeOther, target.ProxyURL(s.renderer.ProxyBase()))
	}

	rawURL := scheme + "://" + host + proxiedPath(c, scheme, host)
	if upstream := upstreamQuery(rawQuery); upstream != "" {
		rawURL += "?" + upstream
	}

	target, err := urlref.Parse(rawURL)
	if err != nil {
		return s.gatewayErrorPage(c, http.StatusBadRequest, "not a usable URL: "+rawURL)
	}

	result := s.service.Proxy(c.Request().Context(), target, requestOptions(c))
	return s.writeResult(c, result)
}

func (s *Server) writeResult(c echo.Context, result *gateway.Result) error {
	switch result.Kind() {
	case gateway.ResultRedirect:
		return c.Redirect(result.HTTPStatus(), result.Location())

	case gateway.ResultStream:
		stream := result.Stream()
		defer stream.Close()
		return c.Stream(result.HTTPStatus(), result.ContentType(), stream)

	case gateway.ResultAttachment:
		c.Response().Header().Set(echo.HeaderContentDisposition,
			`attachment; filename="`+result.Filename()+`"`)
		return c.Blob(result.HTTPStatus(), result.ContentType(), result.Body())

	default:
		if result.HTTPStatus() == http.StatusOK {
			return s.pageResponse(c, http.StatusOK, result.ContentType(), result.Body())
		}
		return c.Blob(result.HTTPStatus(), result.ContentType(), result.Body())
	}
}

// pageResponse writes a rendered body with a content-addressed ETag so
// unchanged pages revalidate cheaply. The content type is the result's
// own: HTML for rendered pages, the upstream mimetype for inline files,
// text/markdown for converted output.
func (s *Server) pageResponse(c echo.Context, status int, contentType string, body []byte) error {
	digest, err := hashutil.HashBytes(body, hashutil.HashAlgoBLAKE3)
	if err == nil {
		etag := `"` + digest[:32] + `"`
		c.Response().Header().Set("ETag", etag)
		if c.Request().Header.Get("If-None-Match") == etag {
			return c.NoContent(http.StatusNotModified)
		}
	}
	return c.Blob(status, contentType, body)
}

func (s *Server) gatewayErrorPage(c echo.Context, status int, message string) error {
	data := pages.GatewayErrorData{
		Page:  pages.Page{Title: "Gateway Error"},
		Error: message,
	}
	html, err := s.renderer.Render(pages.RoleGatewayError, data)
	if err != nil {
		return c.String(status, message)
	}
	return c.Blob(status, "text/html; charset=utf-8", html)
}

// proxiedPath recovers the remote path from the request, keeping the
// original percent-encoding intact.
func proxiedPath(c echo.Context, scheme, host string) string {
	prefix := "/" + scheme + "/" + host
	p := c.Request().URL.EscapedPath()
	return strings.TrimPrefix(p, prefix)
}

func requestOptions(c echo.Context) protocols.Options {
	return protocols.Options{
		Raw:     hasQueryFlag(c, "raw"),
		RawCert: hasQueryFlag(c, "raw_crt"),
		Cert:    hasQueryFlag(c, "crt"),
		Meta:    hasQueryFlag(c, "meta"),
		Format:  c.QueryParam("format"),
		Charset: c.QueryParam("charset"),
		Lang:    c.QueryParam("lang"),
	}
}

// hasQueryFlag treats bare presence as true, so both ?raw and ?raw=1
// enable a mode.
func hasQueryFlag(c echo.Context, name string) bool {
	values, ok := c.QueryParams()[name]
	if !ok {
		return false
	}
	return len(values) == 0 || values[0] != "0"
}

// upstreamQuery strips the gateway's own parameters from the raw query
// string without re-encoding what remains.
func upstreamQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	var kept []string
	for _, segment := range strings.Split(rawQuery, "&") {
		key := segment
		if i := strings.IndexByte(segment, '='); i >= 0 {
			key = segment[:i]
		}
		if _, ok := gatewayParams[key]; ok {
			continue
		}
		if segment != "" {
			kept = append(kept, segment)
		}
	}
	return strings.Join(kept, "&")
}
