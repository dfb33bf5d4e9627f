package router

import (
	"fmt"
	"strings"

	"github.com/wfxhttp/wfx/internal/wire"
)

// Router dispatches on the two routable methods, mirroring the teacher's
// one-trie-per-method layout (a single shared trie branching on method was
// considered and rejected by the original design this is grounded on).
type Router[H any] struct {
	get  *Trie[H]
	post *Trie[H]
}

// NewRouter returns an empty router.
func NewRouter[H any]() *Router[H] {
	return &Router[H]{get: New[H](), post: New[H]()}
}

// RegisterRoute binds handler to method+path and returns the resulting
// route's handle, for use with a middleware registry's per-route binding.
// Only GET and POST are routable.
func (r *Router[H]) RegisterRoute(method wire.Method, path string, handler H) (RouteHandle, error) {
	if path == "" || path[0] != '/' {
		return nil, fmt.Errorf("router: path %q is empty or does not start with '/'", path)
	}
	switch method {
	case wire.MethodGET:
		return r.get.Insert(path, handler), nil
	case wire.MethodPOST:
		return r.post.Insert(path, handler), nil
	default:
		return nil, fmt.Errorf("router: unsupported method %v in RegisterRoute, use GET or POST", method)
	}
}

// MatchRoute strips any query string from path before matching.
func (r *Router[H]) MatchRoute(method wire.Method, path string) (handler H, handle RouteHandle, params []Param, ok bool) {
	if q := strings.IndexByte(path, '?'); q >= 0 {
		path = path[:q]
	}
	switch method {
	case wire.MethodGET:
		return r.get.Match(path)
	case wire.MethodPOST:
		return r.post.Match(path)
	default:
		var zero H
		return zero, nil, nil, false
	}
}

// PushRouteGroup nests subsequent registrations under prefix on both
// method tries at once.
func (r *Router[H]) PushRouteGroup(prefix string) {
	r.get.PushGroup(prefix)
	r.post.PushGroup(prefix)
}

// PopRouteGroup restores both method tries' cursors to before the matching
// PushRouteGroup.
func (r *Router[H]) PopRouteGroup() {
	r.get.PopGroup()
	r.post.PopGroup()
}
