// Package toolchain runs the external C compiler that turns script.c into
// a loadable artifact.
package toolchain

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/livid/errors"
)

// Placeholders substituted in command arguments.
const (
	PlaceholderSource  = "{src}"
	PlaceholderOutput  = "{out}"
	PlaceholderInclude = "{include}"
)

// Toolchain compiles one source file into one artifact.
type Toolchain interface {
	// Compile builds src into out. Compiler diagnostics are copied to
	// diag whether or not the build succeeds.
	Compile(ctx context.Context, src, out string, diag io.Writer) error
}

// NativeCommand builds a shared library for the host.
func NativeCommand() []string {
	return []string{
		"cc", "-std=c11", "-Wall", "-Wextra", "-O1", "-g", "-fPIC", "-shared",
		"-I" + PlaceholderInclude, "-o", PlaceholderOutput, PlaceholderSource,
	}
}

// WasmCommand builds a WASI reactor module exporting the column table.
func WasmCommand() []string {
	return []string{
		"clang", "--target=wasm32-wasi", "-mexec-model=reactor", "-std=c11", "-Wall", "-Wextra", "-O1",
		"-Wl,--export=columns,--export=columns_count,--export=row_display_cap",
		"-I" + PlaceholderInclude, "-o", PlaceholderOutput, PlaceholderSource,
	}
}

// ParseCommand splits a configured command line on whitespace. Quoting is
// not supported.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

// Command runs a compiler as a child process.
type Command struct {
	log     *zap.Logger
	args    []string
	include string
}

var _ Toolchain = (*Command)(nil)

// New creates a toolchain running args, with include substituted for
// {include}. A nil logger disables logging.
func New(args []string, include string, log *zap.Logger) (*Command, error) {
	if len(args) == 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, "empty compiler command")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Command{args: append([]string(nil), args...), include: include, log: log}, nil
}

// Args returns the command line for src and out.
func (c *Command) Args(src, out string) []string {
	r := strings.NewReplacer(
		PlaceholderSource, src,
		PlaceholderOutput, out,
		PlaceholderInclude, c.include,
	)
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = r.Replace(a)
	}
	return args
}

func (c *Command) Compile(ctx context.Context, src, out string, diag io.Writer) error {
	args := c.Args(src, out)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	if diag != nil && output.Len() > 0 {
		diag.Write(output.Bytes())
	}
	c.log.Debug("compiler finished",
		zap.Strings("args", args),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err))

	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return &errors.ToolchainError{
			Command:  args[0],
			Source:   src,
			ExitCode: exitErr.ExitCode(),
			Output:   output.String(),
		}
	}
	return errors.New(errors.PhaseCompile, errors.KindToolchain).
		Path(src).Cause(err).Detail("start %s", args[0]).Build()
}
