package wasm

import (
	"bytes"
	"context"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
)

// memory adapts wazero linear memory to livid.Memory.
type memory struct {
	mem api.Memory
}

func (m *memory) Read(addr uint64, length uint32) ([]byte, error) {
	if addr > math.MaxUint32 {
		return nil, errors.OutOfBounds(errors.PhaseABI, addr, length)
	}
	data, ok := m.mem.Read(uint32(addr), length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseABI, addr, length)
	}
	return data, nil
}

func (m *memory) Write(addr uint64, data []byte) error {
	if addr > math.MaxUint32 || !m.mem.Write(uint32(addr), data) {
		return errors.OutOfBounds(errors.PhaseABI, addr, uint32(len(data)))
	}
	return nil
}

func (m *memory) ReadCString(addr uint64) (string, error) {
	size := uint64(m.mem.Size())
	if addr == 0 {
		return "", errors.NilPointer(errors.PhaseABI, "string")
	}
	if addr >= size {
		return "", errors.OutOfBounds(errors.PhaseABI, addr, 1)
	}
	data, _ := m.mem.Read(uint32(addr), uint32(size-addr))
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", errors.InvalidData(errors.PhaseABI, "string is not NUL-terminated")
	}
	return string(data[:i]), nil
}

// allocator calls the module's lv_alloc and lv_free exports.
type allocator struct {
	allocFn    api.Function
	freeFn     api.Function
	log        *zap.Logger
	currentCtx context.Context
	stack      [1]uint64
	mu         sync.Mutex
}

func (a *allocator) setContext(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentCtx = ctx
}

func (a *allocator) context() context.Context {
	if a.currentCtx == nil {
		return context.Background()
	}
	return a.currentCtx
}

func (a *allocator) Alloc(size uint32) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stack[0] = api.EncodeU32(size)
	if err := a.allocFn.CallWithStack(a.context(), a.stack[:]); err != nil {
		return 0, errors.Wrap(errors.PhaseABI, errors.KindAllocation, err, "lv_alloc trapped")
	}
	addr := uint64(api.DecodeU32(a.stack[0]))
	if addr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseABI, size)
	}
	return addr, nil
}

func (a *allocator) Free(addr uint64) {
	if a.freeFn == nil || addr == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stack[0] = addr
	if err := a.freeFn.CallWithStack(a.context(), a.stack[:]); err != nil {
		a.log.Warn("lv_free failed", zap.Uint64("addr", addr), zap.Error(err))
	}
}
