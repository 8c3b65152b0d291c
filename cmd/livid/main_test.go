package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/livid/config"
	"github.com/wippyai/livid/loader/wasm"
	"github.com/wippyai/livid/workspace"
)

func TestRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"delimiter", "workspace", "backend", "viewer", "metrics-addr", "log-level", "config"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "t", cmd.Flags().Lookup("delimiter").Shorthand)
	assert.Equal(t, "w", cmd.Flags().Lookup("workspace").Shorthand)
}

func TestRootCmd_RejectsBadArgs(t *testing.T) {
	tests := map[string][]string{
		"two inputs":     {"a.csv", "b.csv"},
		"long delimiter": {"-t", ";;", "a.csv"},
		"backend":        {"--backend", "jvm", "a.csv"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cmd := newRootCmd()
			cmd.SetArgs(args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			assert.Error(t, cmd.Execute())
		})
	}
}

func TestRun_MissingInput(t *testing.T) {
	cfg := &config.Config{
		Input:     "/nonexistent/input.csv",
		Delimiter: ",",
		Workspace: t.TempDir(),
		Backend:   "wasm",
		Viewer:    "none",
	}
	var stderr bytes.Buffer
	err := run(context.Background(), cfg, &stderr)
	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "livid: workspace")
}

func TestNewToolchain(t *testing.T) {
	cfg := &config.Config{Backend: "wasm"}
	tc, err := newToolchain(cfg, "/ws", nil)
	require.NoError(t, err)
	assert.Contains(t, tc.Args("s.c", "o.wasm"), "--target=wasm32-wasi")
	assert.Contains(t, tc.Args("s.c", "o.wasm"), "-I/ws")

	cfg = &config.Config{Backend: "native", Toolchain: config.ToolchainConfig{Native: "tcc -shared -o {out} {src}"}}
	tc, err = newToolchain(cfg, "/ws", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"tcc", "-shared", "-o", "lib.so", "s.c"}, tc.Args("s.c", "lib.so"))
}

func TestNewLoader(t *testing.T) {
	ws, err := workspace.Open(t.TempDir())
	require.NoError(t, err)
	defer ws.Close()

	ctx := context.Background()
	ld, err := newLoader(ctx, &config.Config{Backend: "wasm"}, ws, nil)
	require.NoError(t, err)
	assert.IsType(t, &wasm.Loader{}, ld)
	require.NoError(t, ld.Close(ctx))

	_, err = newLoader(ctx, &config.Config{Backend: "jvm"}, ws, nil)
	assert.Error(t, err)

	assert.Equal(t, workspace.WasmArtifact, artifactName("wasm"))
	assert.Equal(t, workspace.NativeArtifact, artifactName("native"))
	assert.Equal(t, "stdin", inputName("-"))
}
