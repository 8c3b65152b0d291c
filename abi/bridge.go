package abi

import (
	"github.com/wippyai/livid"
	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/schema"
)

const minRowBuffer = 256

// Bridge places rows into module memory. It owns one buffer, reused for
// every row, so a row pointer it returns is valid until the next PutRow
// or Release.
type Bridge struct {
	mem    livid.Memory
	alloc  livid.Allocator
	layout Layout
	addr   uint64
	cap    uint32
}

// NewBridge creates a bridge that allocates through alloc.
func NewBridge(mem livid.Memory, alloc livid.Allocator, l Layout) *Bridge {
	return &Bridge{mem: mem, alloc: alloc, layout: l}
}

// Layout returns the layout rows are encoded with.
func (b *Bridge) Layout() Layout { return b.layout }

// PutRow writes row into module memory and returns its address.
func (b *Bridge) PutRow(row schema.Row) (uint64, error) {
	need := RowImageSize(b.layout, row)
	if err := b.reserve(need); err != nil {
		return 0, err
	}
	if err := b.mem.Write(b.addr, EncodeRow(b.layout, b.addr, row)); err != nil {
		return 0, errors.Wrap(errors.PhaseABI, errors.KindOutOfBounds, err, "write row")
	}
	return b.addr, nil
}

// GetRow decodes a row the module handed back.
func (b *Bridge) GetRow(addr uint64, cols schema.Columns) (schema.Row, error) {
	return DecodeRow(b.mem, b.layout, addr, cols)
}

func (b *Bridge) reserve(need uint32) error {
	if need <= b.cap {
		return nil
	}
	size := max(need, 2*b.cap, minRowBuffer)
	addr, err := b.alloc.Alloc(size)
	if err != nil {
		return err
	}
	if addr == 0 {
		return errors.AllocationFailed(errors.PhaseABI, size)
	}
	if b.addr != 0 {
		b.alloc.Free(b.addr)
	}
	b.addr, b.cap = addr, size
	return nil
}

// Release frees the row buffer. The bridge can be reused afterwards.
func (b *Bridge) Release() {
	if b.addr != 0 {
		b.alloc.Free(b.addr)
	}
	b.addr, b.cap = 0, 0
}
