package handlers

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// decodeText decodes body bytes into a string, trying the declared
// charset label first, then valid UTF-8, then byte-sniffing. It never
// fails; undecodable bytes degrade to replacement characters.
func decodeText(data []byte, label string) string {
	if label != "" {
		if r, err := charset.NewReaderLabel(label, bytes.NewReader(data)); err == nil {
			if decoded, readErr := io.ReadAll(r); readErr == nil {
				return string(decoded)
			}
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	enc, _, _ := charset.DetermineEncoding(data, "")
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
