package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/rs/zerolog"

	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

/*
Responsibilities

- Render every named page role to HTML
- Resolve document links into their gateway (proxy) form
- Keep rendering failures classified, never panicking the request

Rendering Policies
- One template set per role, cloned from a shared layout
- All document text flows through html/template escaping; only the
  transducer's pre-escaped inline lines bypass it
*/
type Renderer struct {
	proxyBase string
	templates map[Role]*template.Template
	log       zerolog.Logger
}

// rolefiles maps each role to its content template.
var roleFiles = map[Role]string{
	RoleDocument:     "templates/document.html.tmpl",
	RoleAbstract:     "templates/abstract.html.tmpl",
	RoleQuery:        "templates/query.html.tmpl",
	RoleTLSContext:   "templates/tls-context.html.tmpl",
	RoleProxyError:   "templates/proxy-error.html.tmpl",
	RoleGatewayError: "templates/gateway-error.html.tmpl",
	RoleCertRequired: "templates/cert-required.html.tmpl",
	RoleHome:         "templates/home.html.tmpl",
}

// NewRenderer parses the embedded template set. proxyBase is the scheme
// and authority of this gateway, used to rewrite document links.
func NewRenderer(proxyBase string, log zerolog.Logger) (Renderer, error) {
	funcs := template.FuncMap{
		"proxyURL": func(u *urlref.URLReference) string {
			if u == nil {
				return ""
			}
			return u.ProxyURL(proxyBase)
		},
	}

	layout, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html.tmpl")
	if err != nil {
		return Renderer{}, fmt.Errorf("unable to parse layout template: %w", err)
	}

	templates := make(map[Role]*template.Template, len(roleFiles))
	for role, file := range roleFiles {
		t, err := layout.Clone()
		if err != nil {
			return Renderer{}, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return Renderer{}, fmt.Errorf("unable to parse template for role %q: %w", role, err)
		}
		templates[role] = t
	}

	return Renderer{
		proxyBase: proxyBase,
		templates: templates,
		log:       log,
	}, nil
}

func (r *Renderer) ProxyBase() string {
	return r.proxyBase
}

// ProxyURL rewrites a remote reference into its gateway form.
func (r *Renderer) ProxyURL(u *urlref.URLReference) string {
	return u.ProxyURL(r.proxyBase)
}

// Render executes the template set for the role.
func (r *Renderer) Render(role Role, data any) ([]byte, *RenderError) {
	t, ok := r.templates[role]
	if !ok {
		return nil, &RenderError{
			Role:    role,
			Message: fmt.Sprintf("no template registered for role %q", role),
			Cause:   ErrCauseUnknownRole,
		}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.log.Error().Str("role", string(role)).Err(err).Msg("template execution failed")
		return nil, &RenderError{
			Role:    role,
			Message: err.Error(),
			Cause:   ErrCauseTemplate,
		}
	}
	return buf.Bytes(), nil
}
