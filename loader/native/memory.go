//go:build cgo && (linux || darwin)

package native

/*
#include <stdint.h>
#include <stdlib.h>

static void *lv_mem_ptr(uintptr_t p) { return (void *)p; }
*/
import "C"

import (
	"unsafe"

	"github.com/wippyai/livid/errors"
)

// cMemory is the host address space. Addresses are not bounds checked.
type cMemory struct{}

func (cMemory) Read(addr uint64, length uint32) ([]byte, error) {
	if addr == 0 {
		return nil, errors.NilPointer(errors.PhaseABI, "read address")
	}
	return C.GoBytes(C.lv_mem_ptr(C.uintptr_t(addr)), C.int(length)), nil
}

func (cMemory) Write(addr uint64, data []byte) error {
	if addr == 0 {
		return errors.NilPointer(errors.PhaseABI, "write address")
	}
	if len(data) == 0 {
		return nil
	}
	dst := unsafe.Slice((*byte)(C.lv_mem_ptr(C.uintptr_t(addr))), len(data))
	copy(dst, data)
	return nil
}

func (cMemory) ReadCString(addr uint64) (string, error) {
	if addr == 0 {
		return "", errors.NilPointer(errors.PhaseABI, "string")
	}
	return C.GoString((*C.char)(C.lv_mem_ptr(C.uintptr_t(addr)))), nil
}

// cAllocator allocates with malloc.
type cAllocator struct{}

func (cAllocator) Alloc(size uint32) (uint64, error) {
	p := C.malloc(C.size_t(size))
	if p == nil {
		return 0, errors.AllocationFailed(errors.PhaseABI, size)
	}
	return uint64(uintptr(p)), nil
}

func (cAllocator) Free(addr uint64) {
	if addr != 0 {
		C.free(C.lv_mem_ptr(C.uintptr_t(addr)))
	}
}
