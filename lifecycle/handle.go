package lifecycle

import (
	"context"

	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/host"
	"github.com/wippyai/livid/loader"
)

// Handle is the one loaded module. After Release every method except
// Release reports a stale handle.
type Handle struct {
	mod      loader.Module
	path     string
	released bool
}

func newHandle(mod loader.Module, path string) *Handle {
	return &Handle{mod: mod, path: path}
}

// Info returns the module's column table and row cap.
func (h *Handle) Info() (abi.ModuleInfo, error) {
	if h.released {
		return abi.ModuleInfo{}, errors.StaleHandle(h.path)
	}
	return h.mod.Info(), nil
}

// Run calls the module's entry point.
func (h *Handle) Run(ctx context.Context, cb host.Callbacks) error {
	if h.released {
		return errors.StaleHandle(h.path)
	}
	return h.mod.Run(ctx, cb)
}

// Release unloads the module. Releasing twice is a no-op.
func (h *Handle) Release(ctx context.Context) error {
	if h.released {
		return nil
	}
	h.released = true
	mod := h.mod
	h.mod = nil
	return mod.Close(ctx)
}

// Released reports whether the module was unloaded.
func (h *Handle) Released() bool { return h.released }
