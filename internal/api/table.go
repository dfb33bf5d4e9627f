// Package api defines the versioned dispatch table handed to user
// registration code: the Go shape of the spec's "single exported
// registration entrypoint receiving a pointer to a versioned function
// table" (the shared-library loading mechanism itself stays external —
// the table shape is what a loaded plugin would receive).
package api

import (
	"sync"

	"github.com/wfxhttp/wfx/internal/engine"
	"github.com/wfxhttp/wfx/internal/middleware"
	"github.com/wfxhttp/wfx/internal/wire"
)

// Table is a flat struct of function pointers bound to one Engine.
// Version is bumped whenever a field is added, never when one is
// removed or changed, so old registration code built against an
// earlier Table keeps compiling against embedded fields.
type Table struct {
	Version int

	RegisterRoute       func(method wire.Method, path string, h engine.Handler) error
	RegisterMiddleware  func(name string, mw middleware.Func[engine.Request, engine.Response])
	LoadMiddlewareOrder func(order []string)

	SetGlobalPtrData func(key string, value any)
	GetGlobalPtrData func(key string) (any, bool)
}

// New builds a version-1 Table bound to e.
func New(e *engine.Engine) *Table {
	g := &globals{data: make(map[string]any)}
	return &Table{
		Version: 1,

		RegisterRoute: func(method wire.Method, path string, h engine.Handler) error {
			_, err := e.Router.RegisterRoute(method, path, h)
			return err
		},
		RegisterMiddleware: func(name string, mw middleware.Func[engine.Request, engine.Response]) {
			e.Middleware.RegisterMiddleware(name, mw)
		},
		LoadMiddlewareOrder: func(order []string) {
			e.Middleware.LoadFromConfig(order)
		},

		SetGlobalPtrData: g.set,
		GetGlobalPtrData: g.get,
	}
}

// globals backs SetGlobalPtrData/GetGlobalPtrData — a small key/value
// store for user data shared across requests, guarded since handlers
// read it from many connection goroutines concurrently.
type globals struct {
	mu   sync.RWMutex
	data map[string]any
}

func (g *globals) set(key string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.data[key] = value
}

func (g *globals) get(key string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.data[key]
	return v, ok
}
