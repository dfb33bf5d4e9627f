package wire

import "testing"

func defaultLimits() Limits {
	return Limits{
		MaxHeaderTotalSize:  8192,
		MaxHeaderTotalCount: 64,
		MaxBodyTotalSize:    1 << 20,
		MaxRecvBufferSize:   1 << 20,
	}
}

func TestParseSimpleGET(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("GET /hello?x=1 HTTP/1.1\r\nHost: example.com\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateSuccess {
		t.Fatalf("state = %v, want StateSuccess", state)
	}
	if pr.Request.Method != MethodGET {
		t.Fatalf("method = %v, want GET", pr.Request.Method)
	}
	if string(pr.Request.Path) != "/hello" {
		t.Fatalf("path = %q, want /hello", pr.Request.Path)
	}
	if string(pr.Request.Query) != "x=1" {
		t.Fatalf("query = %q, want x=1", pr.Request.Query)
	}
	if pr.Request.Headers.Get("Host") != "example.com" {
		t.Fatalf("Host header = %q", pr.Request.Headers.Get("Host"))
	}
}

func TestParseIncompleteHeadersThenComplete(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	partial := []byte("GET / HTTP/1.1\r\nHost: exa")
	state := p.Parse(partial, &pr)
	if state != StateIncompleteHeaders {
		t.Fatalf("state = %v, want StateIncompleteHeaders", state)
	}
	full := []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n")
	state = p.Parse(full, &pr)
	if state != StateSuccess {
		t.Fatalf("state after full data = %v, want StateSuccess", state)
	}
}

func TestParseHeaderExactlyAtLimitSucceeds(t *testing.T) {
	prefix := "GET / HTTP/1.1\r\nHost: a\r\nX-Pad: "
	suffix := "\r\n\r\n"
	padLen := 64
	padded := prefix + string(make([]byte, padLen)) + suffix
	padded = prefix + repeatByte('z', padLen) + suffix

	limits := defaultLimits()
	limits.MaxHeaderTotalSize = len(padded)
	p := NewParser(limits)
	var pr ParseResult
	state := p.Parse([]byte(padded), &pr)
	if state != StateSuccess {
		t.Fatalf("header exactly at limit: state = %v, want StateSuccess", state)
	}

	limits.MaxHeaderTotalSize = len(padded) - 1
	p2 := NewParser(limits)
	var pr2 ParseResult
	state2 := p2.Parse([]byte(padded), &pr2)
	if state2 != StateError {
		t.Fatalf("header one byte over limit: state = %v, want StateError", state2)
	}
}

func repeatByte(b byte, n int) string {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return string(out)
}

func TestParseContentLengthAndTransferEncodingConflict(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello")
	state := p.Parse(data, &pr)
	if state != StateError {
		t.Fatalf("state = %v, want StateError", state)
	}
}

func TestParseBodyExactAndOverLimit(t *testing.T) {
	limits := defaultLimits()
	limits.MaxBodyTotalSize = 5

	p := NewParser(limits)
	var pr ParseResult
	data := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	state := p.Parse(data, &pr)
	if state != StateSuccess {
		t.Fatalf("body exactly at limit: state = %v, want StateSuccess", state)
	}
	if string(pr.Request.Body) != "hello" {
		t.Fatalf("body = %q, want hello", pr.Request.Body)
	}

	var pr2 ParseResult
	data2 := []byte("POST / HTTP/1.1\r\nContent-Length: 6\r\n\r\nhello!")
	state2 := p.Parse(data2, &pr2)
	if state2 != StateError {
		t.Fatalf("body one byte over limit: state = %v, want StateError", state2)
	}
}

func TestParseBodyOverLimitWithExpectYields417(t *testing.T) {
	limits := defaultLimits()
	limits.MaxBodyTotalSize = 5

	p := NewParser(limits)
	var pr ParseResult
	data := []byte("POST / HTTP/1.1\r\nContent-Length: 6\r\nExpect: 100-continue\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateExpect417 {
		t.Fatalf("state = %v, want StateExpect417", state)
	}
}

func TestParseExpectContinueAcceptableBody(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("POST / HTTP/1.1\r\nContent-Length: 5\r\nExpect: 100-continue\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateExpect100 {
		t.Fatalf("state = %v, want StateExpect100", state)
	}
}

func TestParseExpectWithoutBodyIndicatorYields417(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("GET / HTTP/1.1\r\nExpect: 100-continue\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateExpect417 {
		t.Fatalf("state = %v, want StateExpect417", state)
	}
}

func TestParseBodySpanningMultipleReads(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	partial := []byte("POST / HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello")
	state := p.Parse(partial, &pr)
	if state != StateIncompleteBody {
		t.Fatalf("state = %v, want StateIncompleteBody", state)
	}
	full := []byte("POST / HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello world")
	state = p.Parse(full, &pr)
	if state != StateSuccess {
		t.Fatalf("state = %v, want StateSuccess", state)
	}
	if string(pr.Request.Body) != "hello world" {
		t.Fatalf("body = %q, want %q", pr.Request.Body, "hello world")
	}
}

func TestParseChunkedTransferEncodingStreams(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateStreamingBody {
		t.Fatalf("state = %v, want StateStreamingBody", state)
	}
	if !pr.Request.hasTransferEnc {
		t.Fatalf("expected hasTransferEnc set")
	}
}

func TestParseUnknownTransferEncodingRejected(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("POST / HTTP/1.1\r\nTransfer-Encoding: gzip\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateError {
		t.Fatalf("state = %v, want StateError", state)
	}
}

func TestParseMalformedRequestLineRejected(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("GARBAGE\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateError {
		t.Fatalf("state = %v, want StateError", state)
	}
}

func TestParseUnknownMethodRejected(t *testing.T) {
	p := NewParser(defaultLimits())
	var pr ParseResult
	data := []byte("FOO / HTTP/1.1\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateError {
		t.Fatalf("state = %v, want StateError", state)
	}
}

func TestParseHeaderCountLimit(t *testing.T) {
	limits := defaultLimits()
	limits.MaxHeaderTotalCount = 2
	p := NewParser(limits)
	var pr ParseResult
	data := []byte("GET / HTTP/1.1\r\nA: 1\r\nB: 2\r\nC: 3\r\n\r\n")
	state := p.Parse(data, &pr)
	if state != StateError {
		t.Fatalf("state = %v, want StateError (too many headers)", state)
	}
}
