package urlref

// Default ports for the proxied protocols. A scheme missing from this
// table is passed through untouched (mailto, telnet, https, ...).
var defaultPorts = map[string]int{
	"gemini":  1965,
	"scroll":  5699,
	"spartan": 300,
	"text":    1961,
	"nex":     1900,
	"gopher":  70,
	"gophers": 70,
	"finger":  79,
}

// Schemes that negotiate TLS on connect.
var tlsSchemes = map[string]struct{}{
	"gemini":  {},
	"scroll":  {},
	"gophers": {},
}

// Mimetype guesses by path extension, shared by every protocol that does
// not report a content type of its own.
var extensionMimetypes = map[string]string{
	".gmi":      "text/gemini",
	".gemini":   "text/gemini",
	".scroll":   "text/scroll",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".html":     "text/html",
	".htm":      "text/html",
	".xml":      "text/xml",
	".json":     "application/json",
	".pdf":      "application/pdf",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".png":      "image/png",
	".gif":      "image/gif",
	".mp3":      "audio/mpeg",
	".ogg":      "audio/ogg",
	".wav":      "audio/x-wav",
	".mp4":      "video/mp4",
}

// Mimetype guesses by gopher item type. Types absent here fall back to
// an extension guess on the selector.
var gopherItemMimetypes = map[byte]string{
	'0': "text/plain",
	'1': "application/gopher-menu",
	'7': "application/gopher-menu",
	'h': "text/html",
	'g': "image/gif",
}

// DefaultPort returns the canonical port for a proxied scheme, or 0 when
// the scheme is not one the gateway speaks.
func DefaultPort(scheme string) int {
	return defaultPorts[scheme]
}

// IsProxyable reports whether the gateway knows how to speak the scheme.
func IsProxyable(scheme string) bool {
	_, ok := defaultPorts[scheme]
	return ok
}
