package wire

import (
	"bytes"
	"strconv"
)

// Limits bounds the parser's tolerance for header/body size, mirroring
// the configuration surface in SPEC_FULL.md §6.
type Limits struct {
	MaxHeaderTotalSize  int
	MaxHeaderTotalCount int
	MaxBodyTotalSize    int64
	MaxRecvBufferSize   int
}

// ParseResult captures everything Parse needs to carry across calls for
// one connection: the parser's position, the in-progress request, and the
// expected body length once known. It is the Go analogue of the spec's
// trackBytes + requestInfo + expectedBodyLength fields, kept outside
// Parser itself so one stateless Parser can serve many connections.
type ParseResult struct {
	State         ParseState
	TrackBytes    int
	Request       Request
	ExpectedBody  int64
	headerEnd     int
}

// Parser is a stateless HTTP/1.1 request parser; all per-connection state
// lives in ParseResult.
type Parser struct {
	Limits Limits
}

// NewParser builds a parser bound to the given limits.
func NewParser(limits Limits) *Parser {
	return &Parser{Limits: limits}
}

// Parse advances pr against data (the full valid region of the read
// buffer so far) and returns the resulting state, exactly per spec §4.G.
func (p *Parser) Parse(data []byte, pr *ParseResult) ParseState {
	if len(data) == 0 {
		pr.State = StateError
		return StateError
	}

	if pr.State == StateIdle {
		pr.State = StateIncompleteHeaders
	}

	switch pr.State {
	case StateIncompleteHeaders:
		return p.parseHeadersPhase(data, pr)
	case StateIncompleteBody:
		return p.parseBodyPhase(data, pr)
	case StateStreamingBody, StateSuccess, StateError:
		return pr.State
	default:
		pr.State = StateError
		return StateError
	}
}

func (p *Parser) parseHeadersPhase(data []byte, pr *ParseResult) ParseState {
	size := len(data)
	headerEnd, found := findHeaderEnd(data, pr.TrackBytes)
	if !found {
		if size > p.Limits.MaxHeaderTotalSize {
			pr.State = StateError
			return StateError
		}
		pr.TrackBytes = size
		return StateIncompleteHeaders
	}
	if headerEnd > p.Limits.MaxHeaderTotalSize {
		pr.State = StateError
		return StateError
	}
	pr.TrackBytes = headerEnd
	pr.headerEnd = headerEnd

	pos := 0
	req := &pr.Request
	*req = Request{Headers: NewHeader()}

	var ok bool
	if pos, ok = parseRequestLine(data, pos, req); !ok {
		pr.State = StateError
		return StateError
	}
	if pos, ok = p.parseHeaderLines(data, pos, req); !ok {
		pr.State = StateError
		return StateError
	}

	expectHeader := req.Headers.Get("Expect")
	contentLengthHeader := req.Headers.Get("Content-Length")
	encodingHeader := req.Headers.Get("Transfer-Encoding")

	hasExpect := equalFoldASCII(expectHeader, "100-continue")
	hasCL := contentLengthHeader != ""
	hasTE := encodingHeader != ""

	if hasTE && hasCL {
		pr.State = StateError
		return StateError
	}
	if hasExpect && !hasCL && !hasTE {
		pr.State = StateExpect417
		return StateExpect417
	}

	if hasCL {
		n, err := strconv.ParseInt(contentLengthHeader, 10, 64)
		if err != nil || n < 0 {
			pr.State = StateError
			return StateError
		}
		req.hasContentLength = true
		req.contentLength = n

		if n > p.Limits.MaxBodyTotalSize || n > int64(p.Limits.MaxRecvBufferSize)-1 ||
			int64(headerEnd) > int64(p.Limits.MaxRecvBufferSize)-1-n {
			if hasExpect {
				pr.State = StateExpect417
				return StateExpect417
			}
			pr.State = StateError
			return StateError
		}

		if hasExpect {
			req.expectContinue = true
			pr.TrackBytes = headerEnd + int(n)
			pr.ExpectedBody = n
			pr.State = StateIncompleteBody
			return StateExpect100
		}

		if n > 0 {
			available := int64(size - headerEnd)
			if available < n {
				pr.TrackBytes = headerEnd + int(n)
				pr.ExpectedBody = n
				pr.State = StateIncompleteBody
				return StateIncompleteBody
			}
			req.Body = data[headerEnd : headerEnd+int(n)]
			pr.State = StateSuccess
			return StateSuccess
		}

		pr.State = StateSuccess
		return StateSuccess
	}

	if hasTE {
		if !equalFoldASCII(encodingHeader, "chunked") {
			pr.State = StateError
			return StateError
		}
		req.hasTransferEnc = true
		pr.State = StateStreamingBody
		if hasExpect {
			return StateExpect100
		}
		return StateStreamingBody
	}

	pr.State = StateSuccess
	return StateSuccess
}

func (p *Parser) parseBodyPhase(data []byte, pr *ParseResult) ParseState {
	if int64(len(data)) < int64(pr.TrackBytes) {
		return StateIncompleteBody
	}
	n := pr.ExpectedBody
	start := pr.TrackBytes - int(n)
	if start < 0 || int64(start)+n > int64(len(data)) {
		pr.State = StateError
		return StateError
	}
	pr.Request.Body = data[start : int64(start)+n]
	pr.State = StateSuccess
	return StateSuccess
}

// findHeaderEnd scans for "\r\n\r\n" starting at from, resuming progress
// across calls the way the spec's trackBytes cursor does.
func findHeaderEnd(data []byte, from int) (int, bool) {
	if from > 0 {
		from -= 3
		if from < 0 {
			from = 0
		}
	}
	idx := bytes.Index(data[from:], []byte("\r\n\r\n"))
	if idx < 0 {
		return 0, false
	}
	return from + idx + 4, true
}

func parseRequestLine(data []byte, pos int, req *Request) (int, bool) {
	line, next, ok := findCRLFLine(data, pos)
	if !ok {
		return 0, false
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 < 0 {
		return 0, false
	}
	methodStr := string(line[:sp1])
	req.Method = ParseMethod(methodStr)
	if req.Method != MethodGET && req.Method != MethodPOST {
		return 0, false
	}

	rest := line[sp1+1:]
	sp2 := bytes.IndexByte(rest, ' ')
	if sp2 <= 0 {
		return 0, false
	}
	rawPath := rest[:sp2]

	query := []byte(nil)
	if q := bytes.IndexByte(rawPath, '?'); q >= 0 {
		query = rawPath[q+1:]
		rawPath = rawPath[:q]
	}

	normalized, ok := NormalizeURIPath(rawPath)
	if !ok {
		return 0, false
	}
	req.Path = normalized
	req.Query = query

	versionStr := string(rest[sp2+1:])
	req.Version = ParseVersion(versionStr)
	if req.Version == VersionUnknown {
		return 0, false
	}

	return next, true
}

func (p *Parser) parseHeaderLines(data []byte, pos int, req *Request) (int, bool) {
	count := 0
	for {
		line, next, ok := findCRLFLine(data, pos)
		if !ok {
			return 0, false
		}
		pos = next
		if len(line) == 0 {
			break
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return 0, false
		}
		key := string(line[:colon])
		val := trimOWS(string(line[colon+1:]))
		req.Headers.Add(key, val)

		count++
		if count > p.Limits.MaxHeaderTotalCount {
			return 0, false
		}
	}
	return pos, true
}

func findCRLFLine(data []byte, from int) (line []byte, next int, ok bool) {
	if from > len(data) {
		return nil, 0, false
	}
	rest := data[from:]
	idx := bytes.IndexByte(rest, '\r')
	if idx < 0 || idx+1 >= len(rest) || rest[idx+1] != '\n' {
		return nil, 0, false
	}
	return rest[:idx], from + idx + 2, true
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
