// Package app assembles the catalogs, their storage and observability
// backends, and the HTTP server from a config.Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"tutorcore/internal/adapters/httpapi"
	"tutorcore/internal/adapters/themeio"
	"tutorcore/internal/blob"
	"tutorcore/internal/config"
	"tutorcore/internal/core"
	"tutorcore/internal/infra/lock/redislock"
	"tutorcore/internal/infra/observability"
	"tutorcore/pkg/domain"
)

// App owns every long-lived dependency of the process.
type App struct {
	cfg      config.Config
	log      *observability.Logger
	store    domain.PersistentStore
	blobs    blob.Store
	registry *prometheus.Registry
	expvar   *core.ExpvarMetricsRecorder

	Students *core.StudentCatalog
	Themes   *core.ThemeCatalog
	ThemeIO  *themeio.Service

	closers []func(context.Context) error
}

// New opens storage, the lock backend and tracing, then builds the catalogs.
// On error everything opened so far is closed again.
func New(ctx context.Context, cfg config.Config, log *observability.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	a.store, err = core.OpenPersistentStore(ctx, cfg.Storage())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })

	a.blobs, err = blob.Open(ctx, cfg.Blob())
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	var locker core.Locker = core.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rl, client, err := redislock.Dial(ctx, cfg.RedisAddr, redislock.WithTTL(cfg.LockTTL))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		locker = rl
	}

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, shutdownTracing)

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewPrometheusRecorder(a.registry)
	if err != nil {
		return nil, err
	}

	var recorder core.MetricsRecorder = metrics
	if cfg.MetricsExpvar {
		a.expvar = core.NewExpvarMetricsRecorder("")
		recorder = core.TeeMetrics{metrics, a.expvar}
	}
	traceOut, err := a.openSink(cfg.TraceJSON)
	if err != nil {
		return nil, err
	}
	var tracer core.Tracer = observability.NewOTelTracer(nil)
	if traceOut != nil {
		tracer = core.NewJSONTracer(traceOut)
	}
	auditOut, err := a.openSink(cfg.AuditJSON)
	if err != nil {
		return nil, err
	}

	opts := []core.ServiceOption{
		core.WithLogger(log),
		core.WithMetricsRecorder(recorder),
		core.WithTracer(tracer),
		core.WithLocker(locker),
	}
	if auditOut != nil {
		opts = append(opts, core.WithAuditRecorder(core.NewJSONAuditRecorder(auditOut)))
	}
	a.Students = core.NewStudentCatalog(a.store, opts...)
	a.Themes = core.NewThemeCatalog(a.store, opts...)
	a.ThemeIO = themeio.New(a.Themes, a.blobs)

	log.Info("catalogs ready",
		"storage", cfg.StorageDriver,
		"blob", string(a.blobs.Driver()),
		"redis_lock", cfg.RedisAddr != "",
		"audit", cfg.AuditJSON,
		"trace_json", cfg.TraceJSON,
		"expvar", cfg.MetricsExpvar,
	)
	return a, nil
}

// Router returns the HTTP handler serving the catalogs.
func (a *App) Router() *gin.Engine {
	return httpapi.NewRouter(httpapi.Config{
		Students:    a.Students,
		Themes:      a.Themes,
		Logger:      a.log,
		Gatherer:    a.registry,
		ServiceName: a.cfg.ServiceName,
		Expvar:      a.expvar != nil,
	})
}

// Serve runs the HTTP server on ln until ctx is cancelled, then shuts it down
// within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openSink resolves a JSON-lines destination. "off" and "" yield a nil
// writer; files are opened for append and closed with the App.
func (a *App) openSink(target string) (io.Writer, error) {
	switch target {
	case "", "off":
		return nil, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open sink %s: %w", target, err)
	}
	a.closers = append(a.closers, func(context.Context) error { return f.Close() })
	return f, nil
}
