// Command wfxd is a minimal entrypoint binary around the wfx engine: load
// a project configuration, register a small set of built-in routes, and
// serve the configured network listener until an interrupt or terminate
// signal requests a graceful shutdown. Grounded on
// nabbar-golib/httpserver/run's StartWaitNotify signal-select pattern,
// adapted to this engine's own App/Worker shapes.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/wfxhttp/wfx"
	"github.com/wfxhttp/wfx/internal/config"
	"github.com/wfxhttp/wfx/internal/filecache"
	"github.com/wfxhttp/wfx/internal/metrics"
	"github.com/wfxhttp/wfx/internal/reactor"
	"github.com/wfxhttp/wfx/internal/wire"
	"github.com/wfxhttp/wfx/internal/wlog"
)

func main() {
	configPath := flag.String("config", "wfx.toml", "path to the project configuration file")
	flag.Parse()

	base := logrus.New()
	log := wlog.New(base)

	v := viper.New()
	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		log.Errorf("wfxd: reading config %q: %v", *configPath, err)
		os.Exit(1)
	}

	cfg, err := config.Decode(v)
	if err != nil {
		log.Errorf("wfxd: decoding config: %v", err)
		os.Exit(1)
	}

	app := wfx.New(cfg, log)
	registerBuiltins(app)

	if cfg.TemplateRoot != "" && cfg.BuildDir != "" {
		if err := app.PreCompileTemplates(cfg.TemplateRoot, cfg.BuildDir); err != nil {
			log.Errorf("wfxd: precompiling templates: %v", err)
			os.Exit(1)
		}
	}

	mx := metrics.New("wfx")
	registry := prometheus.NewRegistry()
	mx.MustRegister(registry)

	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsSrv := &http.Server{Addr: cfg.MetricsListen, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("wfxd: metrics listener: %v", err)
			}
		}()
		defer metricsSrv.Close()
	}

	var tlsCfg *tls.Config
	if cfg.Network.TLSEnabled {
		cert, err := tls.LoadX509KeyPair(cfg.Network.TLSCertFile, cfg.Network.TLSKeyFile)
		if err != nil {
			log.Errorf("wfxd: loading TLS keypair: %v", err)
			os.Exit(1)
		}
		tlsCfg = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	ln, err := net.Listen("tcp", cfg.Network.Listen)
	if err != nil {
		log.Errorf("wfxd: listening on %q: %v", cfg.Network.Listen, err)
		os.Exit(1)
	}

	// Connection slab capacity follows the same fd-rlimit-derived sizing
	// as the file cache (internal/filecache.ClampToRlimit): a generous
	// requested ceiling, clamped to half the process's open-file limit.
	capacity := filecache.ClampToRlimit(65536)
	worker := reactor.NewWorker(cfg.Network, app.Engine, log, mx, tlsCfg, capacity)

	serveErr := make(chan error, 1)
	go func() { serveErr <- worker.Serve(ln) }()
	log.Infof("wfxd: listening on %s (tls=%v)", cfg.Network.Listen, tlsCfg != nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case sig := <-quit:
		log.Infof("wfxd: received %s, shutting down", sig)
	case err := <-serveErr:
		if err != nil {
			log.Errorf("wfxd: serve error: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := worker.Stop(ctx); err != nil {
		log.Errorf("wfxd: shutdown did not complete cleanly: %v", err)
	}
}

// registerBuiltins wires the one route every deployment gets for free: a
// liveness check, registered through the same Table a real entrypoint
// would use rather than special-cased.
func registerBuiltins(app *wfx.App) {
	app.Register(func(t *wfx.Table) {
		_ = t.RegisterRoute(wire.MethodGET, "/healthz", func(req *wfx.Request, res *wfx.Response) {
			res.SendText("text/plain", []byte("ok"))
		})
	})
}
