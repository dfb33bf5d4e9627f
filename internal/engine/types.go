// Package engine glues the wire parser, router, middleware registry,
// template engine, and file cache into the two operations the reactor
// drives per request: HandleRequest (parse → route → middleware →
// handler) and HandleResponse (serialize whatever the handler built).
// Grounded on the teacher's server_handler.go ServeHTTP dispatch and on
// original_source/engine for the request/response lifecycle this
// replaces. Request and Response are defined here, not in the public
// wfx package, because HandleResponse needs to read every field of the
// body union the handler set; wfx re-exports both via type aliases so
// user code never imports this package directly.
package engine

import (
	"encoding/json"
	"net/netip"

	"github.com/wfxhttp/wfx/internal/router"
	"github.com/wfxhttp/wfx/internal/wire"
)

// Request is the handler-visible view of one parsed HTTP request. Path is
// a copy; Body (and the Headers values) are backed by the connection's
// read buffer and remain valid only until the connection resets for its
// next keep-alive request.
type Request struct {
	Method  wire.Method
	Version wire.Version
	Path    string
	Query   string
	Headers wire.Header
	Body    []byte
	Params  []router.Param

	RemoteAddr netip.Addr

	handle router.RouteHandle
}

// Param returns the i-th route parameter, or ok=false if there is none —
// a convenience over indexing Params directly.
func (r *Request) Param(i int) (router.Param, bool) {
	if i < 0 || i >= len(r.Params) {
		return router.Param{}, false
	}
	return r.Params[i], true
}

// Response is the handler-visible response builder. Exactly one Send*
// method may be called; a second call panics — HandleRequest recovers
// it and turns it into a 500, per the spec's double body-set invariant.
type Response struct {
	Status  int
	Headers wire.Header

	kind wire.BodyKind
	op   wire.Op

	textBody  []byte
	filePath  string
	isTemplate bool
	generator  wire.Generator

	bodySet bool
}

// NewResponse returns a Response with engine defaults: 200 status, an
// empty header set, no body.
func NewResponse() *Response {
	return &Response{Status: 200, Headers: wire.NewHeader()}
}

// SetStatus sets the status code, returning the Response for chaining.
func (r *Response) SetStatus(code int) *Response {
	r.Status = code
	return r
}

// Set replaces a response header.
func (r *Response) Set(key, value string) *Response {
	r.Headers.Set(key, value)
	return r
}

func (r *Response) markSet() {
	if r.bodySet {
		panic("wfx: response body set more than once")
	}
	r.bodySet = true
}

// SendText sets an owned, fully-buffered body sent as a single TEXT
// write. contentType is only applied if Content-Type was not already set.
func (r *Response) SendText(contentType string, body []byte) {
	r.markSet()
	r.kind = wire.BodyOwned
	r.op = wire.OpText
	r.textBody = body
	if r.Headers.Get("Content-Type") == "" {
		r.Headers.Set("Content-Type", contentType)
	}
}

// SendJson marshals v and sets it as an owned, fully-buffered TEXT body.
// A marshal error is itself turned into a 500 text body rather than
// propagated, since by this point the handler has no way to recover.
func (r *Response) SendJson(v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		r.Status = 500
		r.markSet()
		r.kind = wire.BodyOwned
		r.op = wire.OpText
		r.textBody = []byte(`{"error":"json marshal failed"}`)
		r.Headers.Set("Content-Type", "application/json")
		return
	}
	r.markSet()
	r.kind = wire.BodyOwned
	r.op = wire.OpText
	r.textBody = body
	r.Headers.Set("Content-Type", "application/json")
}

// SendFile serves the file at path (resolved against the engine's file
// cache) zero-copy, as FILE.
func (r *Response) SendFile(path string) {
	r.markSet()
	r.kind = wire.BodyBorrowed
	r.op = wire.OpFile
	r.filePath = path
}

// SendTemplate serves the precompiled template registered under relPath
// (resolved against the engine's template table, then the file cache)
// as FILE.
func (r *Response) SendTemplate(relPath string) {
	r.markSet()
	r.kind = wire.BodyBorrowed
	r.op = wire.OpFile
	r.filePath = relPath
	r.isTemplate = true
}

// Stream registers gen as a chunked streaming body (STREAM_CHUNKED); gen
// is invoked repeatedly until it reports done.
func (r *Response) Stream(gen wire.Generator) {
	r.markSet()
	r.kind = wire.BodyGenerator
	r.op = wire.OpStreamChunked
	r.generator = gen
}

// Handler is one route's business logic. Req/Res are the engine's own
// types so this matches middleware.Func's shape exactly.
type Handler func(req *Request, res *Response)
