// Package wfx is the public surface of the request-serving engine: the
// Request/Response shapes handler code is written against, and the App
// that wires a configured Engine to a single Register entrypoint — the
// Go shape of the spec's "single exported registration function
// receiving a pointer to a versioned dispatch table".
package wfx

import (
	"github.com/wfxhttp/wfx/internal/api"
	"github.com/wfxhttp/wfx/internal/config"
	"github.com/wfxhttp/wfx/internal/engine"
	"github.com/wfxhttp/wfx/internal/filecache"
	"github.com/wfxhttp/wfx/internal/wlog"
)

// Request and Response are aliased from internal/engine so handler code
// written against wfx.Request/wfx.Response is exactly what the engine
// itself operates on; there is no boxing step at the registration
// boundary.
type (
	Request  = engine.Request
	Response = engine.Response
	Handler  = engine.Handler
	Table    = api.Table
)

// App wraps one configured Engine and the dispatch Table built over it.
type App struct {
	Engine *engine.Engine
	Table  *api.Table
}

// New builds an App from a decoded project configuration. The file
// cache capacity is clamped to min(cfg.Linux.FileCacheLimit, rlimit/2)
// before the cache is constructed.
func New(cfg *config.Project, log wlog.Logger) *App {
	capacity := filecache.ClampToRlimit(cfg.Linux.FileCacheLimit)
	files := filecache.New(capacity)

	e := engine.New(files, cfg.PublicPrefix, log)
	return &App{Engine: e, Table: api.New(e)}
}

// Register hands entrypoint a pointer to the app's dispatch table. It
// is meant to be called exactly once, at startup, before the reactor
// begins accepting connections — the router, middleware stacks, and
// template metadata it populates are treated read-only afterward.
func (a *App) Register(entrypoint func(*Table)) {
	entrypoint(a.Table)
}

// PreCompileTemplates walks root for .html templates, compiling them
// into buildDir/templates/static and registering them for Response.
// SendTemplate, per spec §4.H.
func (a *App) PreCompileTemplates(root, buildDir string) error {
	return a.Engine.Templates.PreCompile(root, buildDir)
}
