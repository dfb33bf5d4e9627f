package wire

import (
	"fmt"
	"strconv"
)

// StatusText returns the canonical reason phrase for well-known statuses
// used by this engine; unknown codes fall back to "Unknown".
func StatusText(code int) string {
	switch code {
	case 100:
		return "Continue"
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Payload Too Large"
	case 414:
		return "URI Too Long"
	case 417:
		return "Expectation Failed"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	case 501:
		return "Not Implemented"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}

// WriteStatusLine appends "HTTP/x.y NNN Reason\r\n" to buf.
func WriteStatusLine(buf []byte, version Version, status int) []byte {
	buf = append(buf, version.String()...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(status), 10)
	buf = append(buf, ' ')
	buf = append(buf, StatusText(status)...)
	buf = append(buf, "\r\n"...)
	return buf
}

// WriteHeaders appends each header as "Key: Value\r\n" followed by a
// blank line terminating the header block.
func WriteHeaders(buf []byte, h Header) []byte {
	for _, k := range h.sortedKeys() {
		for _, v := range h[k] {
			buf = append(buf, k...)
			buf = append(buf, ": "...)
			buf = append(buf, v...)
			buf = append(buf, "\r\n"...)
		}
	}
	buf = append(buf, "\r\n"...)
	return buf
}

// SerializeHead renders the status line + headers for a response with a
// known body length, setting Content-Length if not already present.
func SerializeHead(version Version, status int, h Header, contentLength int) []byte {
	if h.Get("Content-Length") == "" && contentLength >= 0 {
		h.Set("Content-Length", strconv.Itoa(contentLength))
	}
	buf := make([]byte, 0, 256)
	buf = WriteStatusLine(buf, version, status)
	buf = WriteHeaders(buf, h)
	return buf
}

// StaticError renders one of the spec's bit-exact static error responses:
// short plain-text body, Content-Length set, Connection: close always.
func StaticError(status int) []byte {
	body := fmt.Sprintf("%d %s", status, StatusText(status))
	h := NewHeader()
	h.Set("Content-Type", "text/plain")
	h.Set("Connection", "close")
	buf := SerializeHead(Version11, status, h, len(body))
	buf = append(buf, body...)
	return buf
}
