package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/livid/config"
	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/lifecycle"
	"github.com/wippyai/livid/loader"
	"github.com/wippyai/livid/loader/native"
	"github.com/wippyai/livid/loader/wasm"
	"github.com/wippyai/livid/logging"
	"github.com/wippyai/livid/metrics"
	"github.com/wippyai/livid/reload"
	"github.com/wippyai/livid/source"
	"github.com/wippyai/livid/toolchain"
	"github.com/wippyai/livid/viewer"
	"github.com/wippyai/livid/workspace"
)

// run sets everything up, then supervises the viewer, the reload loop and
// the metrics server until a signal arrives or the viewer exits.
// Failures before the loop starts are returned; failures inside the loop
// are logged and the loop goes on.
func run(parent context.Context, cfg *config.Config, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := workspace.Open(cfg.Workspace)
	if err != nil {
		return err
	}
	defer ws.Close()
	defer fmt.Fprintf(stderr, "livid: workspace %s\n", ws.Dir)

	log, err := logging.New(ws.Log, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Info("livid starting",
		zap.String("workspace", ws.Dir),
		zap.String("backend", cfg.Backend),
		zap.String("input", inputName(cfg.Input)))

	csv, closer, err := source.Open(cfg.Input, cfg.Comma())
	if err != nil {
		return err
	}
	defer closer.Close()
	if !csv.Seekable() {
		log.Debug("input is not seekable; rows are kept in memory for replay")
	}
	src := source.NewAdapter(csv, log.Named("source"))

	tc, err := newToolchain(cfg, ws.Dir, log.Named("toolchain"))
	if err != nil {
		return err
	}
	ld, err := newLoader(ctx, cfg, ws, log.Named("loader"))
	if err != nil {
		return err
	}
	defer ld.Close(context.Background())

	view, err := viewer.Select(cfg.Viewer, viewer.Options{
		Files: viewer.Files{
			Output: ws.Output.Path(),
			Log:    ws.Log.Path(),
			Script: ws.Script(),
			Config: ws.Path(workspace.ViewerScriptName),
		},
		Logger: log.Named("viewer"),
	})
	if err != nil {
		return err
	}
	notifier := viewer.NewNotifier(view, cfg.Reload.RefreshInterval, log.Named("viewer"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	stats := metrics.New(reg)

	mgr, err := lifecycle.New(lifecycle.Options{
		Toolchain:   tc,
		Loader:      ld,
		Source:      src,
		Output:      ws.Output,
		Diagnostics: ws.Log,
		Notifier:    notifier,
		Observer:    stats,
		Logger:      log.Named("lifecycle"),
		Script:      ws.Script(),
		Artifact:    ws.Path(artifactName(cfg.Backend)),
	})
	if err != nil {
		return err
	}
	defer mgr.Close(context.Background())
	if err := mgr.Generate(); err != nil {
		return err
	}

	watcher, err := reload.NewWatcher(ws.Script(), reload.WatcherOptions{
		Logger:   log.Named("watch"),
		Debounce: cfg.Reload.Debounce,
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	orch := reload.New(reload.Options{
		Cycler:   mgr,
		Waiter:   watcher,
		Sinks:    ws,
		Notifier: notifier,
		Logger:   log.Named("reload"),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// The session ends with the viewer.
		defer cancel()
		return view.Run(gctx)
	})
	g.Go(func() error {
		return orch.Run(gctx)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr, reg, log.Named("metrics"))
		})
	}

	err = g.Wait()
	log.Info("livid stopping", zap.Int("iterations", orch.Iterations()), zap.Error(err))
	return err
}

func newToolchain(cfg *config.Config, include string, log *zap.Logger) (*toolchain.Command, error) {
	var args []string
	switch cfg.Backend {
	case loader.BackendWasm:
		args = toolchain.WasmCommand()
		if cfg.Toolchain.Wasm != "" {
			args = toolchain.ParseCommand(cfg.Toolchain.Wasm)
		}
	default:
		args = toolchain.NativeCommand()
		if cfg.Toolchain.Native != "" {
			args = toolchain.ParseCommand(cfg.Toolchain.Native)
		}
	}
	return toolchain.New(args, include, log)
}

func newLoader(ctx context.Context, cfg *config.Config, ws *workspace.Workspace, log *zap.Logger) (loader.Loader, error) {
	switch cfg.Backend {
	case loader.BackendWasm:
		ld, err := wasm.New(ctx, wasm.Options{
			Stdout: ws.Output,
			Stderr: ws.Log,
			Logger: log,
		})
		if err != nil {
			return nil, err
		}
		return ld, nil
	case loader.BackendNative:
		if !native.Supported {
			return nil, errors.Unsupported(errors.PhaseConfig, "native backend is not available in this build; use --backend wasm")
		}
		return native.New(native.Options{Logger: log}), nil
	default:
		return nil, errors.InvalidEnum(errors.PhaseConfig, "backend", cfg.Backend, "backend")
	}
}

func artifactName(backend string) string {
	if backend == loader.BackendWasm {
		return workspace.WasmArtifact
	}
	return workspace.NativeArtifact
}

func inputName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}
