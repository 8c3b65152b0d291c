// Package loader defines how compiled script artifacts are opened and run.
// The native backend maps a shared library into the process; the wasm
// backend instantiates a WebAssembly module inside wazero.
package loader

import (
	"context"

	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/host"
)

// Module is a loaded artifact.
type Module interface {
	// Info returns the column table and row cap read at load time.
	Info() abi.ModuleInfo
	// Run calls the module's entry point and blocks until it returns.
	Run(ctx context.Context, cb host.Callbacks) error
	// Close unloads the module. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Loader opens artifacts for one backend.
type Loader interface {
	Load(ctx context.Context, path string) (Module, error)
	Close(ctx context.Context) error
}

// Backend names.
const (
	BackendNative = "native"
	BackendWasm   = "wasm"
)
