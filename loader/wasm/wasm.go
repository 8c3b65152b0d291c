// Package wasm runs scripts compiled to WebAssembly inside wazero. A fault
// in the script traps and is reported as a run error; the host survives.
package wasm

import (
	"context"
	"io"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/host"
	"github.com/wippyai/livid/loader"
)

// HostModule is the import module name of the host callbacks.
const HostModule = "livid"

// Options configures the wasm loader.
type Options struct {
	// Stdout and Stderr receive the module's standard streams.
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
	// MemoryLimitPages caps each module's linear memory in 64KiB pages.
	// 0 keeps the wazero default.
	MemoryLimitPages uint32
}

// Loader owns the wazero runtime shared by every load.
type Loader struct {
	rt   wazero.Runtime
	opts Options
	log  *zap.Logger
}

var _ loader.Loader = (*Loader)(nil)

type wireKey struct{}

// New creates the runtime and instantiates WASI and the host module.
func New(ctx context.Context, opts Options) (*Loader, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}

	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if opts.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(opts.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate WASI")
	}

	i32 := api.ValueTypeI32
	_, err := rt.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostNext), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("next").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostGrid), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("grid").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(hostWrite), []api.ValueType{i32, i32}, nil).
		Export("write").
		Instantiate(ctx)
	if err != nil {
		rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInstantiation, err, "instantiate host module")
	}

	return &Loader{rt: rt, opts: opts, log: opts.Logger}, nil
}

func wireFrom(ctx context.Context) *host.Wire {
	w, _ := ctx.Value(wireKey{}).(*host.Wire)
	return w
}

func hostNext(ctx context.Context, _ api.Module, stack []uint64) {
	w := wireFrom(ctx)
	if w == nil {
		stack[0] = 0
		return
	}
	stack[0] = api.EncodeU32(uint32(w.Next()))
}

func hostGrid(ctx context.Context, _ api.Module, stack []uint64) {
	w := wireFrom(ctx)
	if w == nil {
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(w.Grid(uint64(api.DecodeU32(stack[1])))))
}

func hostWrite(ctx context.Context, _ api.Module, stack []uint64) {
	if w := wireFrom(ctx); w != nil {
		w.Write(uint64(api.DecodeU32(stack[1])))
	}
}

// Load compiles and instantiates the module at path and reads its
// column table.
func (l *Loader) Load(ctx context.Context, path string) (loader.Module, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseLoad, path, err)
	}
	return l.LoadBytes(ctx, path, bin)
}

// LoadBytes is Load for an in-memory binary; path is used in messages.
func (l *Loader) LoadBytes(ctx context.Context, path string, bin []byte) (loader.Module, error) {
	compiled, err := l.rt.CompileModule(ctx, bin)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
			Path(path).Cause(err).Detail("compile wasm").Build()
	}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize").
		WithStdout(l.opts.Stdout).
		WithStderr(l.opts.Stderr)
	inst, err := l.rt.InstantiateModule(ctx, compiled, cfg)
	if err != nil {
		compiled.Close(ctx)
		return nil, errors.New(errors.PhaseLoad, errors.KindInstantiation).
			Path(path).Cause(err).Detail("instantiate module").Build()
	}

	m := &Module{path: path, compiled: compiled, inst: inst, log: l.log}
	if err := m.bind(); err != nil {
		m.Close(ctx)
		return nil, err
	}
	l.log.Debug("wasm module loaded",
		zap.String("path", path),
		zap.Int("columns", len(m.info.Columns)),
		zap.Int("row_cap", m.info.RowCap))
	return m, nil
}

// Close releases the runtime and every module still loaded.
func (l *Loader) Close(ctx context.Context) error {
	return l.rt.Close(ctx)
}
