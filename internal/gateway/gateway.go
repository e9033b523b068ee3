package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rohmanhakim/scroll-gateway/internal/handlers"
	"github.com/rohmanhakim/scroll-gateway/internal/pages"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
	"github.com/rohmanhakim/scroll-gateway/pkg/failure"
)

/*
 Service is the single proxy entry point above the fetch layer.

 - One Proxy call performs at most one upstream fetch.
 - Every outcome, including admission refusals and connect failures,
   arrives as a *Result; no error from the fetch or build stages escapes
   to the HTTP layer.
 - Upstream connections are released here for every result shape except
   streams, whose reader owns the connection until closed.
*/
type Service struct {
	client   *protocols.Client
	builder  Builder
	renderer *pages.Renderer
	log      zerolog.Logger
}

func NewService(
	client *protocols.Client,
	registry handlers.Registry,
	renderer *pages.Renderer,
	log zerolog.Logger,
) Service {
	return Service{
		client:   client,
		builder:  NewBuilder(registry, renderer, log),
		renderer: renderer,
		log:      log,
	}
}

// Proxy fetches the remote URL and builds the response for it.
func (s *Service) Proxy(ctx context.Context, url *urlref.URLReference, options protocols.Options) *Result {
	req, reqErr := s.client.NewRequest(url, options)
	if reqErr != nil {
		return s.proxyErrorPage(url, reqErr)
	}

	resp, fetchErr := s.client.Fetch(ctx, req)
	if fetchErr != nil {
		return s.proxyErrorPage(url, fetchErr)
	}

	result := s.builder.Build(resp)
	if result.Kind() != ResultStream {
		resp.Close()
	}
	return result
}

// proxyErrorPage renders admission and fetch failures. The serving
// process treats them all as recoverable.
func (s *Service) proxyErrorPage(url *urlref.URLReference, err failure.ClassifiedError) *Result {
	s.log.Warn().
		Str("url", url.String()).
		Err(err).
		Msg("proxy request failed")

	title := "Proxy Error"
	if host := url.Hostname(); host != "" {
		title += " — " + host
	}
	data := pages.ProxyErrorData{
		Page: pages.Page{
			Title:      title,
			DisplayURL: url.String(),
		},
		Error:   "Proxy Error",
		Message: err.Error(),
	}

	html, renderErr := s.renderer.Render(pages.RoleProxyError, data)
	if renderErr != nil {
		s.log.Error().Err(renderErr).Msg("proxy error page failed to render")
		return newPageResult(http.StatusBadGateway,
			"text/html; charset=utf-8",
			[]byte("<!doctype html><title>Proxy Error</title><h1>Proxy Error</h1>"))
	}
	return newPageResult(http.StatusBadGateway, "text/html; charset=utf-8", html)
}
