//go:build !cgo || !(linux || darwin)

package native

import (
	"context"

	"github.com/wippyai/livid/errors"
	"github.com/wippyai/livid/loader"
)

// Supported reports whether this build can load native modules.
const Supported = false

// Loader reports every load as unsupported; use the wasm backend.
type Loader struct{}

var _ loader.Loader = (*Loader)(nil)

func New(Options) *Loader { return &Loader{} }

func (*Loader) Load(context.Context, string) (loader.Module, error) {
	return nil, errors.Unsupported(errors.PhaseLoad, "native modules need cgo on linux or darwin; use --backend wasm")
}

func (*Loader) Close(context.Context) error { return nil }
