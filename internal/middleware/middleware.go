// Package middleware implements the ordered middleware chain: a named
// factory map, a global stack assembled from configuration order, and
// per-route stacks keyed by the route's trie handle. Adapted from the
// teacher's server_handler.go chain-of-responsibility shape and grounded
// on the original HttpMiddleware class (http_middleware.cpp).
package middleware

import (
	"github.com/wfxhttp/wfx/internal/router"
	"github.com/wfxhttp/wfx/internal/wlog"
)

// Action is a middleware's verdict on the chain, exactly per the
// original's MiddlewareAction enum.
type Action uint8

const (
	// Continue proceeds to the next middleware in the stack.
	Continue Action = iota
	// Break stops the chain; the request is not passed to the route handler.
	Break
	// SkipNext runs this middleware, then skips the one immediately after it.
	SkipNext
)

// Func is one middleware step. Req/Res are left generic so this package
// does not import the engine's request/response types and create a cycle.
type Func[Req any, Res any] func(req *Req, res *Res) Action

// Registry holds named middleware factories, the global ordered stack, and
// per-route stacks. The zero value is not usable; construct with New.
type Registry[Req any, Res any] struct {
	factories map[string]Func[Req, Res]
	global    []Func[Req, Res]
	perRoute  map[router.RouteHandle][]Func[Req, Res]
	log       wlog.Logger
}

// New returns an empty registry.
func New[Req any, Res any](log wlog.Logger) *Registry[Req, Res] {
	if log == nil {
		log = wlog.Discard()
	}
	return &Registry[Req, Res]{
		factories: make(map[string]Func[Req, Res]),
		perRoute:  make(map[router.RouteHandle][]Func[Req, Res]),
		log:       log,
	}
}

// RegisterMiddleware adds a named middleware to the factory map. A
// duplicate name is logged and ignored, matching the original's behavior
// of keeping the first registration.
func (r *Registry[Req, Res]) RegisterMiddleware(name string, mw Func[Req, Res]) {
	if _, exists := r.factories[name]; exists {
		r.log.Warnf("middleware: duplicate registration attempt for %q, ignoring", name)
		return
	}
	r.factories[name] = mw
}

// RegisterPerRouteMiddleware binds an ordered stack to one route handle. A
// duplicate binding for the same handle is logged and ignored.
func (r *Registry[Req, Res]) RegisterPerRouteMiddleware(handle router.RouteHandle, stack []Func[Req, Res]) {
	if handle == nil {
		r.log.Warnf("middleware: route handle is nil, ignoring per-route registration")
		return
	}
	if _, exists := r.perRoute[handle]; exists {
		r.log.Warnf("middleware: duplicate per-route registration for handle %v, ignoring", handle)
		return
	}
	r.perRoute[handle] = stack
}

// LoadFromConfig replaces the global stack with the named middlewares in
// order, dropping duplicates and unknown names (each logged as a warning)
// the way the original's LoadMiddlewareFromConfig does for a TOML-sourced
// order list.
func (r *Registry[Req, Res]) LoadFromConfig(order []string) {
	r.global = r.global[:0]
	seen := make(map[string]struct{}, len(order))

	for _, name := range order {
		if _, dup := seen[name]; dup {
			r.log.Warnf("middleware: %q listed multiple times in config, skipping duplicate", name)
			continue
		}
		seen[name] = struct{}{}

		mw, ok := r.factories[name]
		if !ok {
			r.log.Warnf("middleware: %q listed in config but not registered, skipping", name)
			continue
		}
		r.global = append(r.global, mw)
	}
}

// DiscardFactoryMap drops the factory map once the global stack has been
// assembled, matching the original's DiscardFactoryMap (freeing memory
// that is never needed again after startup).
func (r *Registry[Req, Res]) DiscardFactoryMap() {
	r.factories = make(map[string]Func[Req, Res])
}

// Execute runs the global stack, then — if handle names a route with its
// own stack — that stack too. It returns false as soon as any middleware
// returns Break.
func (r *Registry[Req, Res]) Execute(handle router.RouteHandle, req *Req, res *Res) bool {
	if !executeStack(r.global, req, res) {
		return false
	}
	if handle == nil {
		return true
	}
	stack, ok := r.perRoute[handle]
	if !ok {
		return true
	}
	return executeStack(stack, req, res)
}

func executeStack[Req any, Res any](stack []Func[Req, Res], req *Req, res *Res) bool {
	for i := 0; i < len(stack); i++ {
		switch stack[i](req, res) {
		case Continue:
		case SkipNext:
			i++
		case Break:
			return false
		}
	}
	return true
}
