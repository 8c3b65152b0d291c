package toolchain

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/livid/errors"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommand_Args(t *testing.T) {
	c, err := New(NativeCommand(), "/ws", nil)
	require.NoError(t, err)
	args := c.Args("/ws/script.c", "/ws/liblivid.so")
	assert.Equal(t, "cc", args[0])
	assert.Contains(t, args, "-I/ws")
	assert.Equal(t, []string{"-o", "/ws/liblivid.so", "/ws/script.c"}, args[len(args)-3:])

	w, err := New(WasmCommand(), "/ws", nil)
	require.NoError(t, err)
	assert.Contains(t, w.Args("a.c", "a.wasm"), "-mexec-model=reactor")

	_, err = New(nil, "", nil)
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, []string{"gcc", "-O2", "-o", "{out}", "{src}"}, ParseCommand("  gcc -O2\t-o {out} {src}\n"))
}

func TestCommand_Success(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "script.c")
	out := filepath.Join(dir, "artifact")
	require.NoError(t, os.WriteFile(src, []byte("int x;"), 0o644))

	c, err := New([]string{"sh", "-c", "echo note: building {src} >&2; cp {src} {out}"}, dir, nil)
	require.NoError(t, err)

	var diag bytes.Buffer
	require.NoError(t, c.Compile(context.Background(), src, out, &diag))
	assert.Contains(t, diag.String(), "note: building")
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "int x;", string(got))
}

func TestCommand_Failure(t *testing.T) {
	requireShell(t)
	c, err := New([]string{"sh", "-c", "echo 'script.c:1:1: error: expected ;' >&2; exit 3"}, "", nil)
	require.NoError(t, err)

	var diag bytes.Buffer
	err = c.Compile(context.Background(), "script.c", "out", &diag)
	require.Error(t, err)

	var tcErr *errors.ToolchainError
	require.ErrorAs(t, err, &tcErr)
	assert.Equal(t, 3, tcErr.ExitCode)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCompile, Kind: errors.KindToolchain})
	assert.Contains(t, diag.String(), "expected ;")
	assert.Contains(t, err.Error(), "expected ;")
}

func TestCommand_NotFound(t *testing.T) {
	c, err := New([]string{"livid-no-such-compiler"}, "", nil)
	require.NoError(t, err)
	err = c.Compile(context.Background(), "a.c", "a.out", nil)
	assert.ErrorIs(t, err, &errors.Error{Phase: errors.PhaseCompile, Kind: errors.KindToolchain})
}
