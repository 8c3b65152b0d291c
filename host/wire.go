package host

import (
	"go.uber.org/zap"

	"github.com/wippyai/livid"
	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/grid"
	"github.com/wippyai/livid/schema"
)

// Wire adapts Callbacks to the raw callback table: rows travel as
// addresses in module memory. Backends call it from their trampolines.
type Wire struct {
	cb     Callbacks
	mem    livid.Memory
	bridge *abi.Bridge
	cols   schema.Columns
	log    *zap.Logger
	errs   int
}

// NewWire creates a wire for a module with output columns cols.
func NewWire(cb Callbacks, mem livid.Memory, alloc livid.Allocator, l abi.Layout, cols schema.Columns, log *zap.Logger) *Wire {
	if log == nil {
		log = zap.NewNop()
	}
	return &Wire{
		cb:     cb,
		mem:    mem,
		bridge: abi.NewBridge(mem, alloc, l),
		cols:   cols,
		log:    log,
	}
}

// Next places the next row in module memory and returns its address, or
// 0 at the end of the input.
func (w *Wire) Next() uint64 {
	row, ok, err := w.cb.Next()
	if err != nil || !ok {
		return 0
	}
	addr, err := w.bridge.PutRow(row)
	if err != nil {
		w.failed(err)
		return 0
	}
	return addr
}

// Grid decodes the row at addr and displays it.
func (w *Wire) Grid(addr uint64) int8 {
	row, err := w.bridge.GetRow(addr, w.cols)
	if err != nil {
		w.failed(err)
		return int8(grid.StatusError)
	}
	st, err := w.cb.Grid(row)
	if err != nil {
		return int8(grid.StatusError)
	}
	return int8(st)
}

// Write copies the C string at addr to the output.
func (w *Wire) Write(addr uint64) {
	if addr == 0 {
		return
	}
	text, err := w.mem.ReadCString(addr)
	if err != nil {
		w.failed(err)
		return
	}
	_ = w.cb.Write(text)
}

// Errors is the number of marshaling failures.
func (w *Wire) Errors() int { return w.errs }

// Close frees the row buffer.
func (w *Wire) Close() {
	w.bridge.Release()
}

func (w *Wire) failed(err error) {
	w.errs++
	if f, ok := w.cb.(interface{ Fail(error) }); ok {
		f.Fail(err)
		return
	}
	w.log.Warn("callback marshaling failed", zap.Error(err))
}
