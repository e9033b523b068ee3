package urlref

import "errors"

var ErrMalformedURL = errors.New("malformed URL")
var ErrMissingHost = errors.New("URL has no host")
var ErrUnknownPort = errors.New("no port known for URL scheme")
