package engine

import (
	"net/netip"
	"strings"

	"github.com/wfxhttp/wfx/internal/filecache"
	"github.com/wfxhttp/wfx/internal/middleware"
	"github.com/wfxhttp/wfx/internal/router"
	"github.com/wfxhttp/wfx/internal/template"
	"github.com/wfxhttp/wfx/internal/wire"
	"github.com/wfxhttp/wfx/internal/wlog"
)

// Engine owns the router, middleware registry, template table, and file
// cache a worker consults for every request. Built once at startup and
// treated read-only thereafter (spec §5); HandleRequest/HandleResponse
// are safe to call concurrently from many connection goroutines.
type Engine struct {
	Router     *router.Router[Handler]
	Middleware *middleware.Registry[Request, Response]
	Templates  *template.Engine
	Files      *filecache.Cache

	PublicPrefix string
	log          wlog.Logger
}

// New builds an engine around an already-populated file cache.
// publicPrefix (e.g. "/public/") short-circuits matching paths straight
// to a file send, bypassing the router entirely. log may be nil.
func New(files *filecache.Cache, publicPrefix string, log wlog.Logger) *Engine {
	if log == nil {
		log = wlog.Discard()
	}
	return &Engine{
		Router:       router.NewRouter[Handler](),
		Middleware:   middleware.New[Request, Response](log),
		Templates:    template.New(),
		Files:        files,
		PublicPrefix: publicPrefix,
		log:          log,
	}
}

// HandleRequest routes parsed, runs the middleware chain, and invokes
// the matched handler, producing the Response the caller then passes to
// HandleResponse. A handler panic is recovered here and turned into a
// 500, per the spec's double body-set/programming-error invariant.
func (e *Engine) HandleRequest(parsed *wire.Request, remote netip.Addr) (res *Response) {
	res = NewResponse()
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Errorf("engine: handler panic recovered: %v", rec)
			*res = Response{Status: 500, Headers: wire.NewHeader()}
			res.SendText("text/plain", []byte("500 "+wire.StatusText(500)))
		}
	}()

	path := string(parsed.Path)
	if e.PublicPrefix != "" && strings.HasPrefix(path, e.PublicPrefix) {
		res.SendFile(strings.TrimPrefix(path, e.PublicPrefix))
		return res
	}

	handler, handle, params, ok := e.Router.MatchRoute(parsed.Method, path)
	if !ok {
		res.SetStatus(404)
		res.SendText("text/plain", []byte(wire.StatusText(404)))
		return res
	}

	req := &Request{
		Method:     parsed.Method,
		Version:    parsed.Version,
		Path:       path,
		Query:      string(parsed.Query),
		Headers:    parsed.Headers,
		Body:       parsed.Body,
		Params:     params,
		RemoteAddr: remote,
		handle:     handle,
	}

	if !e.Middleware.Execute(handle, req, res) {
		return res
	}

	handler(req, res)
	return res
}

// ResolvedBody is what HandleResponse produces: the serialized head,
// plus however the reactor should source the body bytes that follow it.
type ResolvedBody struct {
	Head []byte
	Op   wire.Op

	Text      []byte
	File      *filecache.Entry
	Generator wire.Generator
}

// HandleResponse resolves res's body union — loading a cached file or
// precompiled template where needed — into a ResolvedBody the reactor
// can write to the connection without knowing about handlers, the
// router, or templates at all.
func (e *Engine) HandleResponse(version wire.Version, res *Response) *ResolvedBody {
	switch res.kind {
	case wire.BodyOwned:
		head := wire.SerializeHead(version, res.Status, res.Headers, len(res.textBody))
		return &ResolvedBody{Head: head, Op: res.op, Text: res.textBody}

	case wire.BodyBorrowed:
		return e.resolveFileBody(version, res)

	case wire.BodyGenerator:
		h := res.Headers.Clone()
		h.Del("Content-Length")
		h.Set("Transfer-Encoding", "chunked")
		head := wire.WriteStatusLine(nil, version, res.Status)
		head = wire.WriteHeaders(head, h)
		return &ResolvedBody{Head: head, Op: res.op, Generator: res.generator}

	default: // wire.BodyEmpty
		head := wire.SerializeHead(version, res.Status, res.Headers, 0)
		return &ResolvedBody{Head: head, Op: wire.OpText}
	}
}

func (e *Engine) resolveFileBody(version wire.Version, res *Response) *ResolvedBody {
	path := res.filePath
	if res.isTemplate {
		meta, err := e.Templates.Serve(path)
		if err != nil {
			e.log.Warnf("engine: template %q not found: %v", path, err)
			return e.notFound(version)
		}
		path = meta.FullPath
	}

	entry, err := e.Files.Get(path)
	if err != nil {
		e.log.Warnf("engine: file %q not found: %v", path, err)
		return e.notFound(version)
	}

	head := wire.SerializeHead(version, res.Status, res.Headers, int(entry.Size))
	return &ResolvedBody{Head: head, Op: wire.OpFile, File: entry}
}

func (e *Engine) notFound(version wire.Version) *ResolvedBody {
	body := []byte(wire.StatusText(404))
	h := wire.NewHeader()
	h.Set("Content-Type", "text/plain")
	head := wire.SerializeHead(version, 404, h, len(body))
	return &ResolvedBody{Head: head, Op: wire.OpText, Text: body}
}

// KeepAlive decides whether the connection stays open after res is
// sent: the protocol-version default (HTTP/1.1 true, HTTP/1.0 false)
// unless a Connection header on the request or the response overrides
// it, response taking precedence, exactly per spec §4.M.
func KeepAlive(version wire.Version, reqConnection, resConnection string) bool {
	switch strings.ToLower(resConnection) {
	case "close":
		return false
	case "keep-alive":
		return true
	}
	switch strings.ToLower(reqConnection) {
	case "close":
		return false
	case "keep-alive":
		return true
	}
	return version.KeepAliveDefault()
}
