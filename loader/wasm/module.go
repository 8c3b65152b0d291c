package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/host"
	"github.com/wippyai/livid/loader"
)

// Module is an instantiated script.
type Module struct {
	compiled wazero.CompiledModule
	inst     api.Module
	mem      *memory
	run      api.Function
	apiInit  api.Function
	alloc    *allocator
	log      *zap.Logger
	path     string
	info     abi.ModuleInfo
	closed   bool
}

var _ loader.Module = (*Module)(nil)

func (m *Module) bind() error {
	if m.inst.Memory() == nil {
		return errors.MissingExport(m.path, "memory")
	}
	m.mem = &memory{mem: m.inst.Memory()}

	if m.run = m.inst.ExportedFunction(abi.SymRun); m.run == nil {
		return errors.MissingExport(m.path, abi.SymRun)
	}
	allocFn := m.inst.ExportedFunction(abi.SymAlloc)
	if allocFn == nil {
		return errors.MissingExport(m.path, abi.SymAlloc)
	}
	m.alloc = &allocator{allocFn: allocFn, freeFn: m.inst.ExportedFunction(abi.SymFree), log: m.log}
	m.apiInit = m.inst.ExportedFunction(abi.SymAPIInit)

	table, err := m.global(abi.SymColumns)
	if err != nil {
		return err
	}
	count, err := m.global(abi.SymColumnsCount)
	if err != nil {
		return err
	}
	var rowCap uint64
	if g := m.inst.ExportedGlobal(abi.SymRowCap); g != nil {
		rowCap = uint64(api.DecodeU32(g.Get()))
	}

	info, err := abi.ReadModuleInfo(m.mem, abi.Wasm32, table, count, rowCap)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Path == "" {
			e.Path = m.path
		}
		return err
	}
	m.info = info
	return nil
}

// global returns the address held by an exported data symbol.
func (m *Module) global(name string) (uint64, error) {
	g := m.inst.ExportedGlobal(name)
	if g == nil {
		return 0, errors.MissingExport(m.path, name)
	}
	return uint64(api.DecodeU32(g.Get())), nil
}

func (m *Module) Info() abi.ModuleInfo { return m.info }

// Run builds the callback table in linear memory and calls run(api).
func (m *Module) Run(ctx context.Context, cb host.Callbacks) error {
	if m.closed {
		return errors.StaleHandle(m.path)
	}
	m.alloc.setContext(ctx)
	defer m.alloc.setContext(nil)

	l := abi.Wasm32
	w := host.NewWire(cb, m.mem, m.alloc, l, m.info.Columns, m.log)
	defer w.Close()

	table, err := m.alloc.Alloc(l.APISize())
	if err != nil {
		return errors.Wrap(errors.PhaseRun, errors.KindAllocation, err, "allocate callback table")
	}
	defer m.alloc.Free(table)
	if err := m.mem.Write(table, make([]byte, l.APISize())); err != nil {
		return err
	}

	ctx = context.WithValue(ctx, wireKey{}, w)
	if m.apiInit != nil {
		if _, err := m.apiInit.Call(ctx, table); err != nil {
			return m.trap(ctx, err, abi.SymAPIInit)
		}
	}
	if _, err := m.run.Call(ctx, table); err != nil {
		return m.trap(ctx, err, abi.SymRun)
	}
	return nil
}

func (m *Module) trap(ctx context.Context, err error, fn string) error {
	if ctx.Err() != nil {
		// The runtime closes the module when the context is done.
		m.closed = true
		return errors.New(errors.PhaseRun, errors.KindTrap).
			Path(m.path).Cause(ctx.Err()).Detail("%s interrupted", fn).Build()
	}
	return errors.New(errors.PhaseRun, errors.KindTrap).
		Path(m.path).Cause(err).Detail("%s trapped", fn).Build()
}

// Close closes the instance and its compiled code.
func (m *Module) Close(ctx context.Context) error {
	if m.inst == nil {
		return nil
	}
	m.closed = true
	err := m.inst.Close(ctx)
	if cerr := m.compiled.Close(ctx); err == nil {
		err = cerr
	}
	m.inst, m.compiled = nil, nil
	return err
}
