package host

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// InternalCharset is the charset used for every string inside the host.
const InternalCharset = "utf-8"

// ToInternal converts str from charset to the internal charset.
// Unknown charsets and undecodable input return str unchanged.
func ToInternal(charset, str string) string {
	enc, ok := lookupCharset(charset)
	if !ok {
		return str
	}
	out, err := enc.NewDecoder().String(str)
	if err != nil {
		return str
	}
	return out
}

// FromInternal converts str from the internal charset to charset.
// Unknown charsets and unencodable input return str unchanged.
func FromInternal(charset, str string) string {
	enc, ok := lookupCharset(charset)
	if !ok {
		return str
	}
	out, err := enc.NewEncoder().String(str)
	if err != nil {
		return str
	}
	return out
}

// ValidCharset reports whether charset names a known encoding.
func ValidCharset(charset string) bool {
	_, ok := lookupCharset(charset)
	return ok || isInternal(charset)
}

func lookupCharset(charset string) (encoding.Encoding, bool) {
	if charset == "" || isInternal(charset) {
		return nil, false
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, false
	}
	return enc, true
}

func isInternal(charset string) bool {
	c := strings.ToLower(charset)
	return c == "utf-8" || c == "utf8"
}
