package livid

// Memory is the address space a loaded module shares with the host.
// Addresses are module addresses: process pointers for native modules,
// linear memory offsets for wasm modules. Slices returned by Read may
// alias module memory and must not be retained past the current call.
type Memory interface {
	Read(addr uint64, length uint32) ([]byte, error)
	Write(addr uint64, data []byte) error
	// ReadCString returns a copy of the NUL-terminated string at addr.
	ReadCString(addr uint64) (string, error)
}

// Allocator allocates memory the module can address.
type Allocator interface {
	Alloc(size uint32) (uint64, error)
	Free(addr uint64)
}
