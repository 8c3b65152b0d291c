// Package lifecycle owns the single loaded module and drives it through
// compile, load, run and unload once per reload.
package lifecycle

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/grid"
	"github.com/wippyai/livid/host"
	"github.com/wippyai/livid/loader"
	"github.com/wippyai/livid/schema"
	"github.com/wippyai/livid/toolchain"
)

// Source is the row source adapter as the manager uses it.
type Source interface {
	Input() schema.Columns
	Sample() ([]string, error)
	Bind(output schema.Columns)
	Reset() error
	Next() (schema.Row, error)
}

// Observer is told about every finished cycle.
type Observer interface {
	ObserveCycle(Result)
}

// Options configures a Manager. Script, Artifact, Toolchain, Loader,
// Source and Output are required.
type Options struct {
	Toolchain toolchain.Toolchain
	Loader    loader.Loader
	Source    Source
	// Output receives the rendered grid and module text.
	Output io.Writer
	// Diagnostics receives compiler output.
	Diagnostics io.Writer
	Notifier    grid.Notifier
	Observer    Observer
	Logger      *zap.Logger
	Script      string
	Artifact    string
}

// Manager runs reload cycles. It is not safe for concurrent use.
type Manager struct {
	opts      Options
	log       *zap.Logger
	handle    *Handle
	generated string
	state     State
}

// New validates opts and creates a manager in the waiting state.
func New(opts Options) (*Manager, error) {
	switch {
	case opts.Toolchain == nil:
		return nil, errors.InvalidInput(errors.PhaseConfig, "lifecycle: toolchain is required")
	case opts.Loader == nil:
		return nil, errors.InvalidInput(errors.PhaseConfig, "lifecycle: loader is required")
	case opts.Source == nil:
		return nil, errors.InvalidInput(errors.PhaseConfig, "lifecycle: source is required")
	case opts.Output == nil:
		return nil, errors.InvalidInput(errors.PhaseConfig, "lifecycle: output is required")
	case opts.Script == "" || opts.Artifact == "":
		return nil, errors.InvalidInput(errors.PhaseConfig, "lifecycle: script and artifact paths are required")
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{opts: opts, log: opts.Logger, state: StateWaiting}, nil
}

// State returns the current reload state.
func (m *Manager) State() State { return m.state }

// Loaded reports whether a module is currently loaded.
func (m *Manager) Loaded() bool { return m.handle != nil }

func (m *Manager) setState(s State) {
	if !m.state.CanTransition(s) {
		m.log.Warn("unexpected state transition", zap.Stringer("from", m.state), zap.Stringer("to", s))
	}
	m.state = s
}

// Generate writes the script's generated block from the input header.
// Types are inferred from the first data row. The script is only touched
// when the inferred input column set differs from the last one generated.
func (m *Manager) Generate() error {
	sample, err := m.opts.Source.Sample()
	if err != nil {
		return err
	}
	cols := schema.Infer(m.opts.Source.Input().Names(), sample)
	sig := cols.Signature()
	if sig == m.generated {
		return nil
	}
	wrote, err := WriteStub(m.opts.Script, cols)
	if err != nil {
		return err
	}
	m.generated = sig
	m.log.Info("input columns declared", zap.String("columns", sig), zap.Bool("script_updated", wrote))
	return nil
}

// Waiting marks the manager idle until the next cycle.
func (m *Manager) Waiting() { m.setState(StateWaiting) }

// Cycle compiles, loads, runs and unloads the script once. Failures are
// reported in the result and logged; they never end the session.
func (m *Manager) Cycle(ctx context.Context) Result {
	res := Result{RunID: uuid.NewString()}
	log := m.log.With(zap.String("run_id", res.RunID))

	m.unload(ctx, log)
	m.setState(StateCompiling)

	start := time.Now()
	err := m.opts.Toolchain.Compile(ctx, m.opts.Script, m.opts.Artifact, m.opts.Diagnostics)
	res.Compile = time.Since(start)
	if err != nil {
		return m.fail(res, log, errors.PhaseCompile, err)
	}

	start = time.Now()
	mod, err := m.opts.Loader.Load(ctx, m.opts.Artifact)
	res.Load = time.Since(start)
	if err != nil {
		return m.fail(res, log, errors.PhaseLoad, err)
	}
	m.handle = newHandle(mod, m.opts.Artifact)
	m.setState(StateLoaded)

	info, err := m.handle.Info()
	if err == nil {
		res.Columns = info.Columns
		m.opts.Source.Bind(info.Columns)
		err = m.opts.Source.Reset()
	}
	if err != nil {
		m.unload(ctx, log)
		res.State = StateUnloaded
		res.Phase = errors.PhaseSource
		res.Err = err
		log.Error("cannot prepare input", zap.Error(err))
		m.observe(res)
		return res
	}

	render := grid.New(m.opts.Output, info.Columns, grid.Options{
		Cap:      info.RowCap,
		Notifier: m.opts.Notifier,
		Logger:   log,
	})
	session := host.NewSession(m.opts.Source, render, log)

	m.setState(StateRunning)
	start = time.Now()
	err = m.handle.Run(ctx, session)
	res.Run = time.Since(start)

	res.RowsRead = session.RowsRead()
	res.RowsRendered = render.Rows()
	res.Stopped = render.Stopped()
	if err == nil {
		err = session.Err()
	}
	if err != nil {
		res.Phase = errors.PhaseRun
		res.Err = err
		log.Error("run failed", zap.Error(err))
	}

	m.unload(ctx, log)
	res.State = StateUnloaded
	log.Info("run finished",
		zap.Int("columns", len(info.Columns)),
		zap.Int("rows_read", res.RowsRead),
		zap.Int("rows_rendered", res.RowsRendered),
		zap.Bool("stopped", res.Stopped),
		zap.Duration("compile", res.Compile),
		zap.Duration("run", res.Run))
	m.observe(res)
	return res
}

func (m *Manager) fail(res Result, log *zap.Logger, phase errors.Phase, err error) Result {
	m.setState(StateCompileFailed)
	res.State = StateCompileFailed
	res.Phase = phase
	res.Err = err
	log.Error("script not loaded", zap.String("phase", string(phase)), zap.Error(err))
	m.observe(res)
	return res
}

func (m *Manager) observe(res Result) {
	if m.opts.Observer != nil {
		m.opts.Observer.ObserveCycle(res)
	}
}

func (m *Manager) unload(ctx context.Context, log *zap.Logger) {
	if m.handle == nil {
		return
	}
	if err := m.handle.Release(ctx); err != nil {
		log.Warn("unload failed", zap.Error(err))
	}
	m.handle = nil
	if m.state == StateLoaded || m.state == StateRunning {
		m.setState(StateUnloaded)
	}
}

// Close unloads any loaded module.
func (m *Manager) Close(ctx context.Context) error {
	if m.handle == nil {
		return nil
	}
	err := m.handle.Release(ctx)
	m.handle = nil
	return err
}
