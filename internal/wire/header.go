// Package wire implements the HTTP/1.1 request-line + headers + body state
// machine (the parser), response serialization, and chunked-transfer
// framing, adapted from the teacher's hdr.Header map into the byte-slice,
// view-based shapes this engine's connection contexts use.
package wire

import (
	"sort"
	"strings"
)

// Header is a case-insensitive multi-map of header fields, canonicalized
// the way net/http's textproto.MIMEHeader is, adapted from the teacher's
// hdr.Header.
type Header map[string][]string

// NewHeader returns an empty header map.
func NewHeader() Header { return make(Header) }

// Add appends value to any existing values for key.
func (h Header) Add(key, value string) {
	key = CanonicalHeaderKey(key)
	h[key] = append(h[key], value)
}

// Set replaces any existing values for key with a single value.
func (h Header) Set(key, value string) {
	h[CanonicalHeaderKey(key)] = []string{value}
}

// Get returns the first value for key, or "" if absent.
func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	v := h[CanonicalHeaderKey(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Del removes all values for key.
func (h Header) Del(key string) {
	delete(h, CanonicalHeaderKey(key))
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	h2 := make(Header, len(h))
	for k, vv := range h {
		vv2 := make([]string, len(vv))
		copy(vv2, vv)
		h2[k] = vv2
	}
	return h2
}

// CanonicalHeaderKey converts the first letter and any letter following a
// hyphen to upper case, the rest to lower case — "content-length" becomes
// "Content-Length". Keys containing invalid header bytes are returned
// unmodified.
func CanonicalHeaderKey(s string) string {
	if s == "" {
		return s
	}
	upper := true
	needsCanon := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !validHeaderFieldByte(c) {
			return s
		}
		if upper && 'a' <= c && c <= 'z' {
			needsCanon = true
			break
		}
		if !upper && 'A' <= c && c <= 'Z' {
			needsCanon = true
			break
		}
		upper = c == '-'
	}
	if !needsCanon {
		return s
	}

	out := []byte(s)
	upper = true
	for i, c := range out {
		switch {
		case upper && 'a' <= c && c <= 'z':
			out[i] = c - ('a' - 'A')
		case !upper && 'A' <= c && c <= 'Z':
			out[i] = c + ('a' - 'A')
		}
		upper = c == '-'
	}
	return string(out)
}

func validHeaderFieldByte(c byte) bool {
	return int(c) < len(isTokenTable) && isTokenTable[c]
}

// isTokenTable mirrors RFC 7230 tchar — letters, digits, and the listed
// punctuation are valid header-name bytes.
var isTokenTable = [127]bool{
	'!': true, '#': true, '$': true, '%': true, '&': true, '\'': true,
	'*': true, '+': true, '-': true, '.': true, '0': true, '1': true,
	'2': true, '3': true, '4': true, '5': true, '6': true, '7': true,
	'8': true, '9': true, 'A': true, 'B': true, 'C': true, 'D': true,
	'E': true, 'F': true, 'G': true, 'H': true, 'I': true, 'J': true,
	'K': true, 'L': true, 'M': true, 'N': true, 'O': true, 'P': true,
	'Q': true, 'R': true, 'S': true, 'T': true, 'U': true, 'V': true,
	'W': true, 'X': true, 'Y': true, 'Z': true, '^': true, '_': true,
	'`': true, 'a': true, 'b': true, 'c': true, 'd': true, 'e': true,
	'f': true, 'g': true, 'h': true, 'i': true, 'j': true, 'k': true,
	'l': true, 'm': true, 'n': true, 'o': true, 'p': true, 'q': true,
	'r': true, 's': true, 't': true, 'u': true, 'v': true, 'w': true,
	'x': true, 'y': true, 'z': true, '|': true, '~': true,
}

// trimOWS trims the optional-whitespace (space, tab) the spec requires
// header values be stripped of on both ends.
func trimOWS(s string) string {
	return strings.Trim(s, " \t")
}

// sortedKeys returns h's keys in sorted order, for deterministic
// serialization (the spec's round-trip property only promises
// "modulo case normalization", so sorting is our choice for stability).
func (h Header) sortedKeys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
