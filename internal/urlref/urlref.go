package urlref

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
)

/*
URLReference identifies a resource on one of the proxied protocols.

Responsibilities
- Deconstruct scheme, host, port, path, query
- Resolve references relative to a base document
- Build the gateway's own proxy-form URL for a reference
- Guess a mimetype when the protocol does not report one
- Encode protocol wire request lines

A reference is immutable after construction; Join produces a new one.
*/
type URLReference struct {
	u    *url.URL
	base *URLReference
}

// Parse builds a URLReference from an absolute URL string.
func Parse(raw string) (*URLReference, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	normalize(u)
	return &URLReference{u: u}, nil
}

// MustParse is a helper for tests and static references.
func MustParse(raw string) *URLReference {
	r, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// Join resolves ref (absolute or relative) against this reference,
// keeping this reference as the base for external-indicator checks.
func (r *URLReference) Join(ref string) (*URLReference, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	resolved := r.u.ResolveReference(parsed)
	normalize(resolved)
	return &URLReference{u: resolved, base: r}, nil
}

// A root path carries no information on these protocols.
func normalize(u *url.URL) {
	if u.Path == "/" && u.RawQuery == "" && u.Fragment == "" {
		u.Path = ""
		u.RawPath = ""
	}
}

func (r *URLReference) Scheme() string { return r.u.Scheme }

func (r *URLReference) Hostname() string { return r.u.Hostname() }

// Port returns the explicit port, or the scheme default, or 0.
func (r *URLReference) Port() int {
	if p := r.u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err == nil {
			return n
		}
	}
	return DefaultPort(r.u.Scheme)
}

// Path returns the escaped path, or the opaque part for URLs like mailto.
func (r *URLReference) Path() string {
	if r.u.Opaque != "" {
		return r.u.Opaque
	}
	return r.u.EscapedPath()
}

func (r *URLReference) Query() string { return r.u.RawQuery }

func (r *URLReference) Fragment() string { return r.u.Fragment }

// IsTLS reports whether connections for this reference are wrapped in TLS.
func (r *URLReference) IsTLS() bool {
	_, ok := tlsSchemes[r.u.Scheme]
	return ok
}

// ConnInfo resolves the (host, port) pair to dial for this reference.
func (r *URLReference) ConnInfo() (string, int, error) {
	host := r.u.Hostname()
	if host == "" {
		return "", 0, ErrMissingHost
	}
	port := r.Port()
	if port == 0 {
		return "", 0, ErrUnknownPort
	}
	return host, port, nil
}

// String returns the canonical URL form with default ports omitted.
func (r *URLReference) String() string {
	if r.u.Opaque != "" || r.u.Host == "" {
		return r.u.String()
	}

	netloc := r.u.Hostname()
	if p := r.u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err != nil || n != DefaultPort(r.u.Scheme) {
			netloc += ":" + p
		}
	}

	s := r.u.Scheme + "://" + netloc + r.u.EscapedPath()
	if r.u.RawQuery != "" {
		s += "?" + r.u.RawQuery
	}
	if r.u.Fragment != "" {
		s += "#" + r.u.EscapedFragment()
	}
	return s
}

// ProxyURL returns the gateway's HTTP form of this reference, e.g.
// {proxyBase}/gemini/mozz.us/path. References the gateway cannot proxy
// are returned verbatim so that browsers can still follow them.
func (r *URLReference) ProxyURL(proxyBase string) string {
	if !IsProxyable(r.u.Scheme) || r.u.Hostname() == "" {
		return r.String()
	}

	netloc := r.u.Hostname()
	if port := r.Port(); port != DefaultPort(r.u.Scheme) {
		netloc += ":" + strconv.Itoa(port)
	}

	p := r.u.EscapedPath()
	if p == "" {
		p = "/"
	}

	s := strings.TrimRight(proxyBase, "/") + "/" + r.u.Scheme + "/" + netloc + p
	if r.u.RawQuery != "" {
		s += "?" + r.u.RawQuery
	}
	if r.u.Fragment != "" {
		s += "#" + r.u.EscapedFragment()
	}
	return s
}

// ExternalIndicator describes where a reference leads when it leaves the
// document it appeared in. Empty for same-host links; the hostname when
// only the host differs; scheme://hostname when the scheme differs too.
func (r *URLReference) ExternalIndicator() string {
	if r.base == nil {
		return ""
	}
	if r.u.Hostname() == "" {
		return r.u.Scheme + "://"
	}
	if r.u.Hostname() == r.base.Hostname() && r.u.Scheme == r.base.Scheme() {
		return ""
	}
	if r.u.Scheme == r.base.Scheme() {
		return r.u.Hostname()
	}
	return r.u.Scheme + "://" + r.u.Hostname()
}

// GuessMimetype guesses a content type from the reference alone.
// Empty when no guess can be made.
func (r *URLReference) GuessMimetype() string {
	if r.u.Scheme == "gopher" || r.u.Scheme == "gophers" {
		return r.guessGopherMimetype()
	}
	return extensionMimetypes[strings.ToLower(path.Ext(r.Path()))]
}

func (r *URLReference) guessGopherMimetype() string {
	itemType := r.GopherItemType()
	if mt, ok := gopherItemMimetypes[itemType]; ok {
		return mt
	}
	if mt := extensionMimetypes[strings.ToLower(path.Ext(r.GopherSelector()))]; mt != "" {
		return mt
	}
	switch itemType {
	case '9', '5', 's', 'I':
		return "application/octet-stream"
	}
	return ""
}
