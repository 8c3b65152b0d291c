// Package memtest provides an in-process module memory for tests.
package memtest

import (
	"bytes"

	"github.com/wippyai/livid/errors"
)

// Flat is a byte slice addressed from zero with a bump allocator. Addresses
// below Base are left for fixtures placed with PutString and Write.
type Flat struct {
	Data  []byte
	Freed []uint64
	next  uint64
}

// Base is the first address Alloc hands out.
const Base = 0x1000

// New returns a memory of size bytes.
func New(size int) *Flat {
	return &Flat{Data: make([]byte, size), next: Base}
}

func (m *Flat) Read(addr uint64, length uint32) ([]byte, error) {
	end := addr + uint64(length)
	if end > uint64(len(m.Data)) || end < addr {
		return nil, errors.OutOfBounds(errors.PhaseABI, addr, length)
	}
	return m.Data[addr:end], nil
}

func (m *Flat) Write(addr uint64, data []byte) error {
	end := addr + uint64(len(data))
	if end > uint64(len(m.Data)) || end < addr {
		return errors.OutOfBounds(errors.PhaseABI, addr, uint32(len(data)))
	}
	copy(m.Data[addr:], data)
	return nil
}

func (m *Flat) ReadCString(addr uint64) (string, error) {
	if addr >= uint64(len(m.Data)) {
		return "", errors.OutOfBounds(errors.PhaseABI, addr, 1)
	}
	i := bytes.IndexByte(m.Data[addr:], 0)
	if i < 0 {
		return "", errors.InvalidData(errors.PhaseABI, "unterminated string")
	}
	return string(m.Data[addr : addr+uint64(i)]), nil
}

func (m *Flat) Alloc(size uint32) (uint64, error) {
	addr := m.next
	next := (addr + uint64(size) + 7) &^ 7
	if next > uint64(len(m.Data)) {
		return 0, errors.AllocationFailed(errors.PhaseABI, size)
	}
	m.next = next
	return addr, nil
}

func (m *Flat) Free(addr uint64) { m.Freed = append(m.Freed, addr) }

// PutString stores s NUL-terminated at addr.
func (m *Flat) PutString(addr uint64, s string) {
	copy(m.Data[addr:], s)
	m.Data[addr+uint64(len(s))] = 0
}
