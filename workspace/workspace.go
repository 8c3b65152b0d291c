// Package workspace owns the directory a livid session works in: the
// script, the C header, the compiled artifact and the output and log
// files the viewer watches.
package workspace

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/wippyai/livid/abi"
	"github.com/wippyai/livid/errors"
)

// File names inside the workspace.
const (
	ScriptName       = "script.c"
	OutputName       = "output"
	LogName          = "log"
	ViewerScriptName = "vimrc"
	NativeArtifact   = "liblivid.so"
	WasmArtifact     = "livid.wasm"
)

// TempPattern is the name pattern of workspaces created without -w.
const TempPattern = "livid-wkspace-"

// Workspace is an opened workspace directory.
type Workspace struct {
	Output *Sink
	Log    *Sink
	Dir    string
}

// Open opens dir, creating it if needed. An empty dir creates a fresh
// temporary workspace. The header is (re)written and both sinks are
// created empty.
func Open(dir string) (*Workspace, error) {
	var err error
	if dir == "" {
		dir, err = os.MkdirTemp("", TempPattern)
	} else {
		err = os.MkdirAll(dir, 0o755)
	}
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, dir, err)
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return nil, errors.IO(errors.PhaseConfig, dir, err)
	}

	ws := &Workspace{Dir: dir}
	if err := ws.WriteFile(abi.HeaderName, abi.Header); err != nil {
		return nil, err
	}
	if ws.Output, err = OpenSink(ws.Path(OutputName)); err != nil {
		return nil, err
	}
	if ws.Log, err = OpenSink(ws.Path(LogName)); err != nil {
		ws.Output.Close()
		return nil, err
	}
	return ws, nil
}

// Path returns the absolute path of name inside the workspace.
func (w *Workspace) Path(name string) string { return filepath.Join(w.Dir, name) }

// Script is the path of the user's source file.
func (w *Workspace) Script() string { return w.Path(ScriptName) }

// WriteFile replaces name with data.
func (w *Workspace) WriteFile(name string, data []byte) error {
	if err := os.WriteFile(w.Path(name), data, 0o644); err != nil {
		return errors.IO(errors.PhaseGenerate, w.Path(name), err)
	}
	return nil
}

// ResetSinks empties the output and log files in place.
func (w *Workspace) ResetSinks() error {
	if err := w.Output.Reset(); err != nil {
		return err
	}
	return w.Log.Reset()
}

// Close closes both sinks. The directory is left in place.
func (w *Workspace) Close() error {
	err := w.Output.Close()
	if lerr := w.Log.Close(); err == nil {
		err = lerr
	}
	return err
}

// Sink is a file that is truncated and rewound between runs rather than
// replaced, so readers holding it open keep a valid handle. Writes are
// serialized.
type Sink struct {
	f    *os.File
	path string
	mu   sync.Mutex
}

var _ io.Writer = (*Sink)(nil)

// OpenSink creates or truncates path.
func OpenSink(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.IO(errors.PhaseConfig, path, err)
	}
	return &Sink{f: f, path: path}, nil
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Write(p)
}

// Sync flushes the file; it makes Sink a zapcore.WriteSyncer.
func (s *Sink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Sync()
}

// Reset truncates the file and rewinds the write offset.
func (s *Sink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Truncate(0); err != nil {
		return errors.IO(errors.PhaseRun, s.path, err)
	}
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return errors.IO(errors.PhaseRun, s.path, err)
	}
	return nil
}

// Path is the file's path.
func (s *Sink) Path() string { return s.path }

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}
