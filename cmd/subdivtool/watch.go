package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/subdiv/internal/logger"
	"github.com/Faultbox/subdiv/internal/subdiv"
	"github.com/Faultbox/subdiv/pkg/formats"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// watcher rebuilds one mesh whenever its file changes.
type watcher struct {
	env  *env
	path string
	data *formats.MeshData
	mesh *subdiv.Mesh
	log  *zap.Logger
}

func cmdWatch(e *env, args []string) {
	if len(args) < 1 {
		fatalf("Usage: subdivtool watch <mesh>")
	}

	path, err := filepath.Abs(args[0])
	if err != nil {
		fatalf("Error: %v", err)
	}
	data, m := load(e, path)

	w := &watcher{env: e, path: path, data: data, mesh: m, log: logger.Named("watch")}
	w.log.Info("watching mesh",
		zap.String("path", path),
		zap.Int("faces", m.Structure().NumFaces()),
		zap.Stringer("mesh", m.ID()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := e.cfg.Cache.MetricsAddr; addr != "" {
		srv, err := serveMetrics(e, addr, w.log)
		if err != nil {
			fatalf("Error: %v", err)
		}
		defer srv.Close()
	}

	if err := w.run(ctx); err != nil {
		fatalf("Error: %v", err)
	}
}

// serveMetrics exposes the tessellation cache and Go runtime metrics.
func serveMetrics(e *env, addr string, log *zap.Logger) (*http.Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	if err := e.cache.Register(reg); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv, nil
}

func (w *watcher) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	// Editors often replace the file, so watch the directory.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer <-chan time.Time
	for {
		select {
		case e := <-fsw.Events:
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				timer = time.After(reloadDelay)
			}

		case err := <-fsw.Errors:
			w.log.Warn("watch error", zap.Error(err))

		case <-timer:
			timer = nil
			w.reload()

		case <-ctx.Done():
			w.log.Info("stopped")
			return nil
		}
	}
}

// reload loads the file again and commits only the buffers that changed.
// A broken file leaves the previous mesh in place.
func (w *watcher) reload() {
	data, err := formats.LoadMesh(w.path)
	if err != nil {
		w.log.Warn("reload failed", zap.Error(err))
		return
	}

	mode, err := w.env.boundary(data)
	if err != nil {
		w.log.Warn("reload failed", zap.Error(err))
		return
	}
	w.mesh.SetBoundaryMode(mode)
	w.mesh.SetTessellationRate(w.env.rate(data))

	n, err := setBuffers(w.mesh, w.data, data)
	if err != nil {
		w.log.Warn("reload failed", zap.Error(err))
		return
	}
	// the mesh now holds data's arrays whether or not the commit succeeds
	w.data = data

	pending := w.mesh.Pending()
	if pending == 0 {
		w.log.Debug("file changed, mesh unchanged")
		return
	}

	start := time.Now()
	if err := w.mesh.Commit(); err != nil {
		// the previous structure stays current and the changes stay pending
		w.log.Warn("rebuild failed", zap.Stringer("changes", pending), zap.Error(err))
		return
	}

	s := w.mesh.Structure()
	w.log.Info("mesh rebuilt",
		zap.Stringer("rebuild", w.mesh.LastRebuild()),
		zap.Stringer("changes", pending),
		zap.Int("buffers", n),
		zap.Int("faces", s.NumFaces()),
		zap.Int("valid", s.CountValid(0)),
		zap.Int("non_manifold", len(s.NonManifoldEdges())),
		zap.Uint64("generation", w.mesh.Generation()),
		zap.Duration("elapsed", time.Since(start)),
	)
}
